package app

import (
	"context"
	"errors"
	"sync"

	"github.com/example/cadence/internal/async"
	"github.com/example/cadence/internal/core/rule"
	"github.com/example/cadence/internal/models"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/ports/secondary"
)

// creationEntry tracks one optimistic creation from launch to settlement.
// done closes exactly once; after that either record or err is set.
type creationEntry struct {
	done   chan struct{}
	record *secondary.RuleRecord
	err    error
}

// Reconciler owns the temporary-id lifecycle: it mints temporary ids for
// optimistic creations, promotes placeholder rows to store-issued ids in
// the background, and answers id-classification queries. The temp-to-real
// mapping lives only in memory; the placeholder row in the store is the
// durable trace, which Sync repairs after an interrupted session.
type Reconciler struct {
	mu        sync.Mutex
	creations map[string]*creationEntry
	resolved  map[string]string // temporary id -> store-issued id

	coord    *async.Coordinator
	ruleRepo secondary.RuleRepository
}

// NewReconciler creates a reconciler bound to a coordinator and rule store.
func NewReconciler(coord *async.Coordinator, ruleRepo secondary.RuleRepository) *Reconciler {
	return &Reconciler{
		creations: make(map[string]*creationEntry),
		resolved:  make(map[string]string),
		coord:     coord,
		ruleRepo:  ruleRepo,
	}
}

// StartOptimisticCreation persists record under a fresh temporary id and
// schedules its promotion to a store-issued id. The returned record is the
// placeholder the caller can render immediately.
func (r *Reconciler) StartOptimisticCreation(ctx context.Context, record *secondary.RuleRecord) (*secondary.RuleRecord, error) {
	placeholder := *record
	placeholder.ID = models.NewTemporaryID()

	if err := r.ruleRepo.Create(ctx, &placeholder); err != nil {
		return nil, rule.WrapStorage(err, "failed to create placeholder rule")
	}

	entry := &creationEntry{done: make(chan struct{})}
	r.mu.Lock()
	r.creations[placeholder.ID] = entry
	r.mu.Unlock()

	// Promotion outlives the caller's request context.
	go func(tempID string) {
		value, err := r.executePromote(context.WithoutCancel(ctx), tempID)

		r.mu.Lock()
		if err != nil {
			entry.err = err
		} else {
			entry.record = value.(*secondary.RuleRecord)
		}
		r.mu.Unlock()
		close(entry.done)
	}(placeholder.ID)

	return &placeholder, nil
}

// Wait blocks until the creation behind tempID settles and returns the
// persisted record. Safe to call multiple times and concurrently. When no
// in-memory trace exists but the placeholder row survives in the store, the
// promotion is repaired on demand.
func (r *Reconciler) Wait(ctx context.Context, tempID string) (*secondary.RuleRecord, error) {
	r.mu.Lock()
	entry := r.creations[tempID]
	realID, isResolved := r.resolved[tempID]
	r.mu.Unlock()

	if entry != nil {
		select {
		case <-entry.done:
		case <-ctx.Done():
			return nil, rule.NewCancelled(tempID)
		}
		r.mu.Lock()
		record, err := entry.record, entry.err
		r.mu.Unlock()
		if err != nil {
			return nil, mapOpError(err, tempID)
		}
		return record, nil
	}

	if isResolved {
		record, err := r.ruleRepo.GetByID(ctx, realID)
		if err != nil {
			return nil, rule.WrapStorage(err, "failed to fetch resolved rule")
		}
		return record, nil
	}

	value, err := r.executePromote(ctx, tempID)
	if err != nil {
		return nil, mapOpError(err, tempID)
	}
	return value.(*secondary.RuleRecord), nil
}

// ValidateID classifies an identifier without blocking on resolution.
func (r *Reconciler) ValidateID(ctx context.Context, id string) (*primary.RuleIDStatus, error) {
	status := &primary.RuleIDStatus{ID: id}

	if !models.IsTemporaryID(id) {
		_, err := r.ruleRepo.GetByID(ctx, id)
		switch {
		case err == nil:
			status.State = primary.IDStatePersisted
		case errors.Is(err, secondary.ErrNotFound):
			status.State = primary.IDStateUnknown
		default:
			return nil, rule.WrapStorage(err, "failed to classify id")
		}
		return status, nil
	}

	r.mu.Lock()
	entry := r.creations[id]
	realID, isResolved := r.resolved[id]
	r.mu.Unlock()

	if isResolved {
		status.State = primary.IDStateTemporaryResolved
		status.ResolvedID = realID
		return status, nil
	}
	if entry != nil {
		select {
		case <-entry.done:
			// Settled without a resolved mapping means the creation failed.
			status.State = primary.IDStateUnknown
		default:
			status.State = primary.IDStateTemporaryPending
		}
		return status, nil
	}

	// No in-memory trace; an orphaned placeholder row still counts as pending.
	_, err := r.ruleRepo.GetByID(ctx, id)
	switch {
	case err == nil:
		status.State = primary.IDStateTemporaryPending
	case errors.Is(err, secondary.ErrNotFound):
		status.State = primary.IDStateUnknown
	default:
		return nil, rule.WrapStorage(err, "failed to classify id")
	}
	return status, nil
}

// Sync reconciles lingering temporary-id state against the store: orphaned
// placeholder rows are promoted to store-issued ids, and mappings whose
// real row no longer exists are dropped.
func (r *Reconciler) Sync(ctx context.Context) (*primary.SyncReport, error) {
	report := &primary.SyncReport{}

	records, err := r.ruleRepo.List(ctx, secondary.RuleFilters{IncludeInactive: true})
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to scan rules")
	}

	for _, rec := range records {
		if !models.IsTemporaryID(rec.ID) {
			continue
		}
		r.mu.Lock()
		_, busy := r.creations[rec.ID]
		r.mu.Unlock()
		if busy {
			continue
		}
		if _, err := r.executePromote(ctx, rec.ID); err != nil {
			return report, mapOpError(err, rec.ID)
		}
		report.Repaired = append(report.Repaired, rec.ID)
	}

	r.mu.Lock()
	snapshot := make(map[string]string, len(r.resolved))
	for tempID, realID := range r.resolved {
		snapshot[tempID] = realID
	}
	r.mu.Unlock()

	for tempID, realID := range snapshot {
		_, err := r.ruleRepo.GetByID(ctx, realID)
		if err == nil {
			continue
		}
		if !errors.Is(err, secondary.ErrNotFound) {
			return report, rule.WrapStorage(err, "failed to verify resolved rule")
		}
		r.mu.Lock()
		delete(r.resolved, tempID)
		delete(r.creations, tempID)
		r.mu.Unlock()
		report.Removed = append(report.Removed, tempID)
	}

	return report, nil
}

// Resolved returns the store-issued id behind a temporary id, if known.
func (r *Reconciler) Resolved(tempID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	realID, ok := r.resolved[tempID]
	return realID, ok
}

// executePromote routes promotion through the coordinator, deduplicated on
// the temporary id so concurrent waiters share one promotion.
func (r *Reconciler) executePromote(ctx context.Context, tempID string) (any, error) {
	key := "rule-promote:" + tempID
	return r.coord.ExecuteOnce(ctx, key, func(ctx context.Context) (any, error) {
		return r.coord.Execute(ctx, key, func(ctx context.Context) (any, error) {
			return r.promote(ctx, tempID)
		}, async.Options{})
	})
}

// promote reassigns the placeholder row to a store-issued id. The
// reassignment is a single atomic store operation, so no reader ever sees
// the temporary and the persisted copy side by side. Idempotent: an
// already-promoted id returns the real record.
func (r *Reconciler) promote(ctx context.Context, tempID string) (*secondary.RuleRecord, error) {
	if _, err := r.ruleRepo.GetByID(ctx, tempID); err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			r.mu.Lock()
			realID, ok := r.resolved[tempID]
			r.mu.Unlock()
			if ok {
				return r.ruleRepo.GetByID(ctx, realID)
			}
			return nil, rule.NewNotFound(tempID)
		}
		return nil, rule.WrapStorage(err, "failed to load placeholder rule")
	}

	realID, err := r.ruleRepo.GetNextID(ctx)
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to generate rule id")
	}

	if err := r.ruleRepo.Promote(ctx, tempID, realID); err != nil {
		return nil, rule.WrapStorage(err, "failed to promote rule")
	}

	record, err := r.ruleRepo.GetByID(ctx, realID)
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to fetch promoted rule")
	}

	r.mu.Lock()
	r.resolved[tempID] = realID
	r.mu.Unlock()

	return record, nil
}
