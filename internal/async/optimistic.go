package async

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// OptimisticSpec describes one optimistic update: the UI sees the
// optimistic value synchronously, then either the real result on success
// or a single rollback on failure. UpdateUI is never called with a failed
// or partial value.
type OptimisticSpec struct {
	ID              string
	Thunk           Thunk
	OptimisticValue any
	UpdateUI        func(any)
	Rollback        func()
	Timeout         time.Duration // 0 means DefaultTimeout
	RetryCount      int           // 0 means DefaultRetryCount; NoRetries disables
}

// OptimisticUpdate applies the optimistic value synchronously, runs the
// thunk through Execute, and reconciles: real value on success, rollback
// exactly once on failure. Concurrent calls sharing an ID coalesce onto
// one underlying execution via the pending table.
func (c *Coordinator) OptimisticUpdate(ctx context.Context, spec OptimisticSpec) (any, error) {
	if spec.UpdateUI != nil {
		spec.UpdateUI(spec.OptimisticValue)
	}

	value, err := c.runCoalesced(ctx, spec)
	if err != nil {
		if spec.Rollback != nil {
			spec.Rollback()
		}
		return nil, err
	}

	if spec.UpdateUI != nil {
		spec.UpdateUI(value)
	}
	return value, nil
}

// BatchOptimisticUpdate applies every item's optimistic value before any
// execution starts, then runs the underlying operations concurrently.
// The aggregate result follows first-rejection-fails-the-whole-batch
// semantics; items are not settled independently.
func (c *Coordinator) BatchOptimisticUpdate(ctx context.Context, specs []OptimisticSpec) error {
	for _, s := range specs {
		if s.UpdateUI != nil {
			s.UpdateUI(s.OptimisticValue)
		}
	}

	p := pool.New().WithErrors().WithFirstError()
	for _, s := range specs {
		s := s
		p.Go(func() error {
			value, err := c.runCoalesced(ctx, s)
			if err != nil {
				if s.Rollback != nil {
					s.Rollback()
				}
				return err
			}
			if s.UpdateUI != nil {
				s.UpdateUI(value)
			}
			return nil
		})
	}
	return p.Wait()
}

// runCoalesced routes the spec's thunk through Execute, deduplicated on
// the spec's ID so concurrent optimistic updates share one execution.
func (c *Coordinator) runCoalesced(ctx context.Context, spec OptimisticSpec) (any, error) {
	return c.ExecuteOnce(ctx, spec.ID, func(ctx context.Context) (any, error) {
		return c.Execute(ctx, spec.ID, spec.Thunk, Options{
			Timeout:    spec.Timeout,
			RetryCount: spec.RetryCount,
		})
	})
}
