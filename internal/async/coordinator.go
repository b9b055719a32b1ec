// Package async is a generic execution engine giving every asynchronous
// write a uniform retry, timeout, de-duplication, and optimistic-update
// contract. The coordinator owns an in-memory operation-state map and a
// pending-execution table; both are mutated only by its own methods.
package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Status is the lifecycle state of a tracked operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// OperationState is transient bookkeeping for one unit of work. It is
// created when the operation starts and purged a fixed time after it
// reaches a terminal state. Never persisted.
type OperationState struct {
	ID        string
	Status    Status
	Attempts  int
	StartTime time.Time
	Err       error
}

// Thunk is the unit of work the coordinator executes. Thunks should honor
// ctx at suspension points; cancellation is cooperative only.
type Thunk func(ctx context.Context) (any, error)

const (
	// DefaultTimeout is the per-attempt window.
	DefaultTimeout = 5 * time.Second
	// DefaultRetryCount is how many times a failed attempt is retried.
	DefaultRetryCount = 2
	// NoRetries disables retrying for a single operation.
	NoRetries = -1

	backoffBase = 500 * time.Millisecond
	backoffCap  = 5 * time.Second

	defaultPurgeDelay   = 30 * time.Second
	defaultQueueWorkers = 3
)

// Options tune a single Execute call. Zero values take defaults.
type Options struct {
	Timeout    time.Duration
	RetryCount int // 0 means DefaultRetryCount; use NoRetries to disable
	OnRetry    func(attempt int)
}

// Config tunes a coordinator instance. Zero values take defaults.
type Config struct {
	PurgeDelay   time.Duration
	QueueWorkers int

	// DefaultTimeout and DefaultRetryCount replace the package defaults
	// for Execute calls that leave Options zero.
	DefaultTimeout    time.Duration
	DefaultRetryCount int
}

// inflight is one shared execution on the pending table: every concurrent
// caller for the same key blocks on done and observes the same outcome.
type inflight struct {
	done  chan struct{}
	value any
	err   error
}

type debounceEntry struct {
	timer *time.Timer
}

// Coordinator tracks operation states and de-duplicates executions.
// Safe for concurrent use. Construct with NewCoordinator and pass by
// reference; there is deliberately no package-level instance.
type Coordinator struct {
	mu        sync.Mutex
	states    map[string]*OperationState
	pending   map[string]*inflight
	cancels   map[string]context.CancelFunc
	debounced map[string]*debounceEntry
	closed    bool

	queue      *pool.Pool
	purgeDelay time.Duration
	defTimeout time.Duration
	defRetries int
}

// NewCoordinator creates a coordinator with the given config.
func NewCoordinator(cfg Config) *Coordinator {
	purge := cfg.PurgeDelay
	if purge <= 0 {
		purge = defaultPurgeDelay
	}
	workers := cfg.QueueWorkers
	if workers <= 0 {
		workers = defaultQueueWorkers
	}
	defTimeout := cfg.DefaultTimeout
	if defTimeout <= 0 {
		defTimeout = DefaultTimeout
	}
	defRetries := cfg.DefaultRetryCount
	if defRetries == 0 {
		defRetries = DefaultRetryCount
	}
	return &Coordinator{
		states:     make(map[string]*OperationState),
		pending:    make(map[string]*inflight),
		cancels:    make(map[string]context.CancelFunc),
		debounced:  make(map[string]*debounceEntry),
		queue:      pool.New().WithMaxGoroutines(workers),
		purgeDelay: purge,
		defTimeout: defTimeout,
		defRetries: defRetries,
	}
}

// Execute runs thunk with per-attempt timeout and retry. Failed attempts
// retry with exponential backoff capped at backoffCap, unless the error is
// marked Permanent. Exhausting retries surfaces the last error. State for
// id is tracked from creation through terminal status and purged later.
func (c *Coordinator) Execute(ctx context.Context, id string, thunk Thunk, opts Options) (any, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.defTimeout
	}
	retries := opts.RetryCount
	if retries == 0 {
		retries = c.defRetries
	}
	if retries == NoRetries {
		retries = 0
	}

	opCtx, cancel := context.WithCancel(ctx)
	state := &OperationState{ID: id, Status: StatusPending, StartTime: time.Now()}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	c.states[id] = state
	c.cancels[id] = cancel
	c.mu.Unlock()

	var (
		value any
		err   error
	)
	for attempt := 0; ; attempt++ {
		c.mu.Lock()
		cancelled := state.Status == StatusCancelled
		if !cancelled {
			state.Attempts = attempt + 1
		}
		c.mu.Unlock()
		if cancelled {
			err = ErrCancelled
			break
		}

		value, err = runAttempt(opCtx, thunk, timeout)
		if err == nil {
			break
		}
		if IsPermanent(err) || attempt >= retries || errors.Is(err, context.Canceled) {
			break
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt + 1)
		}
		select {
		case <-time.After(backoffDelay(attempt)):
		case <-opCtx.Done():
			err = ErrCancelled
		}
		if errors.Is(err, ErrCancelled) {
			break
		}
	}

	cancel()

	c.mu.Lock()
	if state.Status == StatusCancelled {
		// The caller already considers this operation cancelled; its state
		// is untracked and no result is reported.
		c.mu.Unlock()
		return nil, ErrCancelled
	}
	if err != nil {
		state.Status = StatusError
		state.Err = err
	} else {
		state.Status = StatusSuccess
	}
	c.mu.Unlock()

	c.schedulePurge(id)

	if err != nil {
		return nil, err
	}
	return value, nil
}

// ExecuteOnce guarantees at most one concrete execution per key: if one is
// already in flight, every additional caller blocks on it and observes the
// same outcome instead of starting a new execution.
func (c *Coordinator) ExecuteOnce(ctx context.Context, key string, thunk Thunk) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if f, ok := c.pending[key]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.value, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &inflight{done: make(chan struct{})}
	c.pending[key] = f
	c.mu.Unlock()

	f.value, f.err = thunk(ctx)

	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
	close(f.done)

	return f.value, f.err
}

// Queue admits op into a bounded FIFO worker pool for work that should not
// all fire at once (background maintenance). Admission blocks while the
// cap is saturated; there is no ordering promise beyond FIFO admission.
func (c *Coordinator) Queue(op func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.queue.Go(op)
}

// Cancel marks the operation cancelled and stops tracking it. This is
// cooperative only: an in-flight thunk is signalled through its context
// but may still complete and produce side effects.
func (c *Coordinator) Cancel(id string) bool {
	c.mu.Lock()
	state, ok := c.states[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	state.Status = StatusCancelled
	delete(c.states, id)
	cancel := c.cancels[id]
	delete(c.cancels, id)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

// OperationStatus returns a copy of the tracked state for id.
func (c *Coordinator) OperationStatus(id string) (OperationState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[id]
	if !ok {
		return OperationState{}, false
	}
	return *state, true
}

// Close stops accepting new work and waits for queued operations.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, e := range c.debounced {
		e.timer.Stop()
	}
	c.debounced = make(map[string]*debounceEntry)
	c.mu.Unlock()

	c.queue.Wait()
}

// runAttempt gives the thunk its own timeout window.
func runAttempt(ctx context.Context, thunk Thunk, timeout time.Duration) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := thunk(attemptCtx)
		ch <- outcome{value: v, err: err}
	}()

	select {
	case o := <-ch:
		return o.value, o.err
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrCancelled
	}
}

// backoffDelay is exponential from backoffBase, capped at backoffCap.
func backoffDelay(attempt int) time.Duration {
	delay := backoffBase << attempt
	if delay > backoffCap || delay <= 0 {
		return backoffCap
	}
	return delay
}

// schedulePurge removes terminal state a fixed time after completion.
func (c *Coordinator) schedulePurge(id string) {
	time.AfterFunc(c.purgeDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if state, ok := c.states[id]; ok && state.Status != StatusPending {
			delete(c.states, id)
			delete(c.cancels, id)
		}
	})
}
