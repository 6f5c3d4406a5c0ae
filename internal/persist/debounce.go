// Package persist provides persistence collaborators for the outfit store:
// a JSON file backend, a sqlite backend, a postgres backend, and a
// debouncing wrapper that coalesces bursts of saves.
package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"wardrobe/internal/outfit"
)

// DefaultDebounce is the write-coalescing window.
const DefaultDebounce = 2 * time.Second

// Debounced wraps a Persistence and coalesces Save calls: only the latest
// snapshot within the window is written. Flush forces the pending snapshot
// through immediately, which callers need before reading the same data
// back (chat resets).
type Debounced struct {
	inner    outfit.Persistence
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending *outfit.State
	timer   *time.Timer
	closed  bool
}

// NewDebounced wraps inner. A non-positive interval falls back to
// DefaultDebounce.
func NewDebounced(inner outfit.Persistence, interval time.Duration, logger *zap.Logger) *Debounced {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Debounced{inner: inner, interval: interval, logger: logger}
}

// Load passes straight through after flushing any pending write, so a
// load never observes state older than the last save.
func (d *Debounced) Load(ctx context.Context) (*outfit.State, error) {
	if err := d.Flush(ctx); err != nil {
		return nil, err
	}
	return d.inner.Load(ctx)
}

// Save records the snapshot and schedules the write.
func (d *Debounced) Save(ctx context.Context, state *outfit.State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return d.inner.Save(ctx, state)
	}
	d.pending = state
	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.fire)
	} else {
		d.timer.Reset(d.interval)
	}
	return nil
}

// fire runs on the timer goroutine; failures here have no caller to reach
// and are logged.
func (d *Debounced) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Flush(ctx); err != nil {
		d.logger.Error("debounced outfit save failed", zap.Error(err))
	}
}

// Flush writes the pending snapshot, if any, and cancels the timer.
func (d *Debounced) Flush(ctx context.Context) error {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	if pending == nil {
		return nil
	}
	return d.inner.Save(ctx, pending)
}

// Close flushes and closes the underlying persistence.
func (d *Debounced) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	if err := d.Flush(ctx); err != nil {
		return err
	}
	return d.inner.Close(ctx)
}

var _ outfit.Persistence = (*Debounced)(nil)
