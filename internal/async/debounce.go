package async

import (
	"context"
	"time"
)

// DefaultDebounce is the quiet window for Debounce when none is given.
const DefaultDebounce = 300 * time.Millisecond

// Debounce collapses a burst of calls sharing key into a single execution
// of the last requested thunk, fired delay after the last call. Earlier
// thunks in the window never execute. The fire is routed through
// ExecuteOnce so it also coalesces with direct callers on the same key.
func (c *Coordinator) Debounce(key string, thunk Thunk, delay time.Duration) {
	if delay <= 0 {
		delay = DefaultDebounce
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if e, ok := c.debounced[key]; ok {
		e.timer.Stop()
	}
	e := &debounceEntry{}
	e.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		delete(c.debounced, key)
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		// Outcome is intentionally dropped; debounced work is fire-and-forget.
		c.ExecuteOnce(context.Background(), key, thunk)
	})
	c.debounced[key] = e
}
