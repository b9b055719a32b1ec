package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/example/cadence/internal/async"
	"github.com/example/cadence/internal/core/rule"
	"github.com/example/cadence/internal/core/search"
	"github.com/example/cadence/internal/core/similarity"
	"github.com/example/cadence/internal/models"
	"github.com/example/cadence/internal/ports/primary"
	"github.com/example/cadence/internal/ports/secondary"
)

// RuleServiceImpl implements the RuleService interface. All writes are
// routed through the coordinator so they share one retry, timeout, and
// de-duplication contract; duplicate detection runs before any write.
type RuleServiceImpl struct {
	ruleRepo   secondary.RuleRepository
	usageRepo  secondary.UsageRepository
	logWriter  secondary.LogWriter
	coord      *async.Coordinator
	reconciler *Reconciler
	index      *search.Index
	threshold  float64

	indexOnce sync.Once
}

// NewRuleService creates a new RuleService with injected dependencies.
// A threshold <= 0 falls back to the similarity default; a searchDebounce
// <= 0 keeps the index default.
func NewRuleService(
	ruleRepo secondary.RuleRepository,
	usageRepo secondary.UsageRepository,
	logWriter secondary.LogWriter,
	coord *async.Coordinator,
	threshold float64,
	searchDebounce time.Duration,
) *RuleServiceImpl {
	if threshold <= 0 {
		threshold = similarity.DefaultThreshold
	}
	index := search.NewIndex()
	index.SetDebounce(searchDebounce)
	return &RuleServiceImpl{
		ruleRepo:   ruleRepo,
		usageRepo:  usageRepo,
		logWriter:  logWriter,
		coord:      coord,
		reconciler: NewReconciler(coord, ruleRepo),
		index:      index,
		threshold:  threshold,
	}
}

// CreateRule validates and creates a rule. Exact duplicates block unless
// the request allows them; near-duplicates only warn.
func (s *RuleServiceImpl) CreateRule(ctx context.Context, req primary.CreateRuleRequest) (*primary.CreateRuleResponse, error) {
	record, warnings, err := s.prepareCreate(ctx, &req)
	if err != nil {
		return nil, err
	}

	// Double-submitted creates coalesce on the normalized name: callers
	// overlapping in flight share one persisted row and one outcome.
	key := "rule-create:" + similarity.NormalizeName(req.Name)
	value, err := s.coord.ExecuteOnce(ctx, key, func(ctx context.Context) (any, error) {
		return s.coord.Execute(ctx, key, func(ctx context.Context) (any, error) {
			nextID, err := s.ruleRepo.GetNextID(ctx)
			if err != nil {
				return nil, err
			}
			record.ID = nextID
			if err := s.ruleRepo.Create(ctx, record); err != nil {
				return nil, err
			}
			return s.ruleRepo.GetByID(ctx, nextID)
		}, async.Options{})
	})
	if err != nil {
		return nil, mapOpError(err, "rule-create")
	}

	created := value.(*secondary.RuleRecord)
	_ = s.logWriter.LogCreate(ctx, "rule", created.ID)
	s.refreshIndex(ctx)

	return &primary.CreateRuleResponse{
		RuleID:          created.ID,
		Rule:            recordToRule(created),
		SimilarWarnings: warnings,
	}, nil
}

// CreateRuleOptimistic returns a placeholder rule with a temporary id
// immediately and schedules the real creation asynchronously. Validation
// and duplicate blocking still happen synchronously, so a rejected draft
// never produces a placeholder.
func (s *RuleServiceImpl) CreateRuleOptimistic(ctx context.Context, req primary.CreateRuleRequest) (*primary.Rule, error) {
	record, _, err := s.prepareCreate(ctx, &req)
	if err != nil {
		return nil, err
	}

	placeholder, err := s.reconciler.StartOptimisticCreation(ctx, record)
	if err != nil {
		return nil, err
	}
	s.refreshIndex(ctx)

	return recordToRule(placeholder), nil
}

// WaitForRuleCreation returns the eventual persisted rule for a temporary
// id. Safe to call multiple times and concurrently.
func (s *RuleServiceImpl) WaitForRuleCreation(ctx context.Context, tempID string) (*primary.Rule, error) {
	if !models.IsTemporaryID(tempID) {
		return s.GetRule(ctx, tempID)
	}
	record, err := s.reconciler.Wait(ctx, tempID)
	if err != nil {
		return nil, err
	}
	s.refreshIndex(ctx)
	return recordToRule(record), nil
}

// ValidateRuleID classifies an id as temporary-pending, temporary-resolved,
// persisted, or unknown.
func (s *RuleServiceImpl) ValidateRuleID(ctx context.Context, id string) (*primary.RuleIDStatus, error) {
	return s.reconciler.ValidateID(ctx, id)
}

// SyncRuleStates reconciles lingering temporary-id state against the store.
func (s *RuleServiceImpl) SyncRuleStates(ctx context.Context) (*primary.SyncReport, error) {
	report, err := s.reconciler.Sync(ctx)
	if err != nil {
		return report, err
	}
	s.refreshIndex(ctx)
	return report, nil
}

// GetRule retrieves a rule by ID. Temporary ids resolve through the
// reconciler when a mapping exists; a pending placeholder row is returned
// as-is.
func (s *RuleServiceImpl) GetRule(ctx context.Context, ruleID string) (*primary.Rule, error) {
	record, err := s.getRecord(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	return recordToRule(record), nil
}

// ListRules retrieves rules matching the given filters.
func (s *RuleServiceImpl) ListRules(ctx context.Context, req primary.ListRulesRequest) ([]*primary.Rule, error) {
	records, err := s.ruleRepo.List(ctx, secondary.RuleFilters{
		Scope:           req.Scope,
		Type:            req.Type,
		ChainID:         req.ChainID,
		IncludeInactive: req.IncludeInactive,
	})
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to list rules")
	}

	rules := make([]*primary.Rule, len(records))
	for i, r := range records {
		rules[i] = recordToRule(r)
	}
	return rules, nil
}

// UpdateRule applies a partial update; renames re-run duplicate checks
// against the rule's own partition.
func (s *RuleServiceImpl) UpdateRule(ctx context.Context, req primary.UpdateRuleRequest) (*primary.Rule, error) {
	record, err := s.getRecord(ctx, req.RuleID)
	if err != nil {
		return nil, err
	}

	type fieldChange struct {
		name     string
		old, new string
	}
	var changes []fieldChange

	if req.Name != nil {
		newName := strings.TrimSpace(*req.Name)
		if newName == "" {
			return nil, rule.NewValidation("rule name must not be empty")
		}
		if similarity.NormalizeName(newName) != similarity.NormalizeName(record.Name) {
			existing, err := s.partitionRules(ctx, record.Scope, record.Type, record.ID)
			if err != nil {
				return nil, err
			}
			detect := similarity.DetectDuplicates(newName, existing, s.threshold)
			if detect.HasExactMatch && !req.AllowDuplicate {
				return nil, rule.NewDuplicateName(newName, similarity.SuggestNames(newName, ruleNames(existing)))
			}
		}
		if newName != record.Name {
			changes = append(changes, fieldChange{name: "name", old: record.Name, new: newName})
			record.Name = newName
		}
	}
	if req.Description != nil && *req.Description != record.Description {
		changes = append(changes, fieldChange{name: "description", old: record.Description, new: *req.Description})
		record.Description = *req.Description
	}

	if len(changes) == 0 {
		return recordToRule(record), nil
	}

	value, err := s.coord.Execute(ctx, "rule-update:"+record.ID,
		func(ctx context.Context) (any, error) {
			if err := s.ruleRepo.Update(ctx, record); err != nil {
				return nil, err
			}
			return s.ruleRepo.GetByID(ctx, record.ID)
		}, async.Options{})
	if err != nil {
		return nil, mapOpError(err, record.ID)
	}

	for _, c := range changes {
		_ = s.logWriter.LogUpdate(ctx, "rule", record.ID, c.name, c.old, c.new)
	}
	s.refreshIndex(ctx)

	return recordToRule(value.(*secondary.RuleRecord)), nil
}

// DeleteRule soft-deletes a rule. Idempotent: deleting an unknown or
// already-inactive rule is not an error, and usage history is preserved.
func (s *RuleServiceImpl) DeleteRule(ctx context.Context, ruleID string) error {
	record, err := s.getRecord(ctx, ruleID)
	if err != nil {
		if rule.KindOf(err) == rule.KindNotFound {
			return nil
		}
		return err
	}
	if !record.IsActive {
		return nil
	}

	record.IsActive = false
	_, err = s.coord.Execute(ctx, "rule-delete:"+record.ID,
		func(ctx context.Context) (any, error) {
			return nil, s.ruleRepo.Update(ctx, record)
		}, async.Options{})
	if err != nil {
		return mapOpError(err, record.ID)
	}

	_ = s.logWriter.LogDelete(ctx, "rule", record.ID)
	s.refreshIndex(ctx)
	return nil
}

// UseRule records one application of a rule to a session action. The
// rule's usage count and last-used timestamp move together with the
// record, inside one coordinated write.
func (s *RuleServiceImpl) UseRule(ctx context.Context, req primary.UseRuleRequest) (*primary.UseRuleResponse, error) {
	ruleID := req.RuleID
	if models.IsTemporaryID(ruleID) {
		record, err := s.reconciler.Wait(ctx, ruleID)
		if err != nil {
			return nil, err
		}
		ruleID = record.ID
	}

	record, err := s.getRecord(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	guard := rule.CanUseRule(rule.UseContext{
		RuleID:       record.ID,
		RuleActive:   record.IsActive,
		RuleType:     models.RuleType(record.Type),
		RuleScope:    models.RuleScope(record.Scope),
		RuleChainID:  record.ChainID,
		ActionType:   models.RuleActionType(req.ActionType),
		SessionChain: req.ChainID,
	})
	if err := guard.Error(); err != nil {
		return nil, err
	}

	usedAt := time.Now().UTC().Format(time.RFC3339)
	type useOutcome struct {
		rule     *secondary.RuleRecord
		recordID string
	}

	value, err := s.coord.Execute(ctx, "rule-use:"+record.ID,
		func(ctx context.Context) (any, error) {
			recordID, err := s.usageRepo.GetNextID(ctx)
			if err != nil {
				return nil, err
			}
			err = s.usageRepo.Create(ctx, &secondary.UsageRecord{
				ID:               recordID,
				RuleID:           record.ID,
				ChainID:          req.ChainID,
				ChainName:        req.ChainName,
				ElapsedSeconds:   req.ElapsedSeconds,
				RemainingSeconds: req.RemainingSeconds,
				ActionType:       req.ActionType,
				UsedAt:           usedAt,
			})
			if err != nil {
				return nil, err
			}

			record.UsageCount++
			record.LastUsedAt = usedAt
			if err := s.ruleRepo.Update(ctx, record); err != nil {
				return nil, err
			}
			updated, err := s.ruleRepo.GetByID(ctx, record.ID)
			if err != nil {
				return nil, err
			}
			return useOutcome{rule: updated, recordID: recordID}, nil
		}, async.Options{})
	if err != nil {
		return nil, mapOpError(err, record.ID)
	}

	outcome := value.(useOutcome)
	_ = s.logWriter.LogCreate(ctx, "usage", outcome.recordID)
	s.refreshIndex(ctx)

	return &primary.UseRuleResponse{
		Rule:     recordToRule(outcome.rule),
		RecordID: outcome.recordID,
		UsedAt:   outcome.rule.LastUsedAt,
	}, nil
}

// SearchRules scores the active rule set against a query.
func (s *RuleServiceImpl) SearchRules(ctx context.Context, query string) ([]*primary.SearchResult, error) {
	records, err := s.ruleRepo.List(ctx, secondary.RuleFilters{})
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to list rules")
	}
	rules := recordsToModels(records)

	s.indexOnce.Do(func() { s.index.Update(rules) })

	return searchResults(s.index.Search(rules, query)), nil
}

// SearchRulesDebounced schedules a search after the configured quiet
// window; a burst of calls collapses to one execution of the latest query,
// delivered to fn. Superseded calls never observe a callback.
func (s *RuleServiceImpl) SearchRulesDebounced(ctx context.Context, query string, fn func([]*primary.SearchResult)) error {
	records, err := s.ruleRepo.List(ctx, secondary.RuleFilters{})
	if err != nil {
		return rule.WrapStorage(err, "failed to list rules")
	}
	rules := recordsToModels(records)

	s.indexOnce.Do(func() { s.index.Update(rules) })

	s.index.SearchDebounced(rules, query, func(results []search.Result) {
		fn(searchResults(results))
	})
	return nil
}

func searchResults(results []search.Result) []*primary.SearchResult {
	out := make([]*primary.SearchResult, len(results))
	for i, res := range results {
		ranges := make([]primary.MatchRange, len(res.Ranges))
		for j, rg := range res.Ranges {
			ranges[j] = primary.MatchRange{Start: rg.Start, End: rg.End}
		}
		out[i] = &primary.SearchResult{
			Rule:   modelToRule(res.Rule),
			Score:  res.Score,
			Tier:   tierName(res.Tier),
			Ranges: ranges,
		}
	}
	return out
}

// SuggestNames returns up to three alternative names for a partial input.
func (s *RuleServiceImpl) SuggestNames(ctx context.Context, partial string) ([]string, error) {
	records, err := s.ruleRepo.List(ctx, secondary.RuleFilters{})
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to list rules")
	}
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return similarity.SuggestNames(partial, names), nil
}

// prepareCreate validates the draft and runs duplicate detection. The
// returned record is ready to persist once an id is assigned; warnings
// carry the near-duplicates (and allowed exact matches) for display.
func (s *RuleServiceImpl) prepareCreate(ctx context.Context, req *primary.CreateRuleRequest) (*secondary.RuleRecord, []primary.SimilarWarning, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Scope == "" {
		req.Scope = string(models.RuleScopeGlobal)
	}

	draft := rule.Draft{
		Name:    req.Name,
		Type:    models.RuleType(req.Type),
		Scope:   models.RuleScope(req.Scope),
		ChainID: req.ChainID,
	}
	if draft.Scope == models.RuleScopeChain && req.ChainID != "" {
		exists, err := s.ruleRepo.ChainExists(ctx, req.ChainID)
		if err != nil {
			return nil, nil, rule.WrapStorage(err, "failed to check chain")
		}
		draft.ChainExists = exists
	}
	if err := rule.ValidateDraft(draft).Error(); err != nil {
		return nil, nil, err
	}

	existing, err := s.partitionRules(ctx, req.Scope, req.Type, "")
	if err != nil {
		return nil, nil, err
	}

	threshold := req.SimilarityThreshold
	if threshold <= 0 {
		threshold = s.threshold
	}
	detect := similarity.DetectDuplicates(req.Name, existing, threshold)
	if detect.HasExactMatch && !req.AllowDuplicate {
		return nil, nil, rule.NewDuplicateName(req.Name, similarity.SuggestNames(req.Name, ruleNames(existing)))
	}

	var warnings []primary.SimilarWarning
	for _, exact := range detect.ExactMatches {
		r := exact
		warnings = append(warnings, primary.SimilarWarning{Rule: modelToRule(r), Score: 1.0})
	}
	for _, sim := range detect.SimilarRules {
		warnings = append(warnings, primary.SimilarWarning{Rule: modelToRule(sim.Rule), Score: sim.Score})
	}

	return &secondary.RuleRecord{
		Name:        req.Name,
		Type:        req.Type,
		Scope:       req.Scope,
		ChainID:     req.ChainID,
		Description: req.Description,
		IsActive:    true,
	}, warnings, nil
}

// getRecord resolves an id to its stored record. A resolved temporary id
// follows the mapping; a pending one returns its placeholder row.
func (s *RuleServiceImpl) getRecord(ctx context.Context, id string) (*secondary.RuleRecord, error) {
	lookup := id
	if models.IsTemporaryID(id) {
		if realID, ok := s.reconciler.Resolved(id); ok {
			lookup = realID
		}
	}
	record, err := s.ruleRepo.GetByID(ctx, lookup)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, rule.NewNotFound(id)
		}
		return nil, rule.WrapStorage(err, "failed to get rule")
	}
	return record, nil
}

// partitionRules loads the active rules sharing a (scope, type) partition,
// excluding excludeID (for renames).
func (s *RuleServiceImpl) partitionRules(ctx context.Context, scope, ruleType, excludeID string) ([]models.ExceptionRule, error) {
	records, err := s.ruleRepo.List(ctx, secondary.RuleFilters{Scope: scope, Type: ruleType})
	if err != nil {
		return nil, rule.WrapStorage(err, "failed to list rules")
	}
	rules := make([]models.ExceptionRule, 0, len(records))
	for _, r := range records {
		if r.ID == excludeID {
			continue
		}
		rules = append(rules, recordToModel(r))
	}
	return rules, nil
}

// refreshIndex rebuilds the search index from the active rule set. Best
// effort: a failed read leaves the previous index in place.
func (s *RuleServiceImpl) refreshIndex(ctx context.Context) {
	records, err := s.ruleRepo.List(ctx, secondary.RuleFilters{})
	if err != nil {
		return
	}
	s.indexOnce.Do(func() {})
	s.index.Update(recordsToModels(records))
}

func ruleNames(rules []models.ExceptionRule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

func modelToRule(r models.ExceptionRule) *primary.Rule {
	out := &primary.Rule{
		ID:          r.ID,
		Name:        r.Name,
		Type:        string(r.Type),
		Scope:       string(r.Scope),
		ChainID:     r.ChainID,
		Description: r.Description,
		UsageCount:  r.UsageCount,
		IsActive:    r.IsActive,
	}
	if !r.LastUsedAt.IsZero() {
		out.LastUsedAt = r.LastUsedAt.Format(time.RFC3339)
	}
	if !r.CreatedAt.IsZero() {
		out.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	return out
}

// Ensure RuleServiceImpl implements the interface.
var _ primary.RuleService = (*RuleServiceImpl)(nil)
