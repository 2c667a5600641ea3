// Package autosave debounces draft saves on the caller side. The workflow
// core holds no timers; a client session owns one Debouncer per draft key.
package autosave

import (
	"context"
	"sync"
	"time"
)

// SaveFunc persists the latest content. It is never called concurrently.
type SaveFunc func(ctx context.Context) error

type Debouncer struct {
	interval time.Duration
	save     SaveFunc
	onError  func(error)

	mu    sync.Mutex
	dirty bool

	trigger chan struct{}
}

// New returns a debouncer that saves at most once per interval while dirty.
func New(interval time.Duration, save SaveFunc, onError func(error)) *Debouncer {
	return &Debouncer{
		interval: interval,
		save:     save,
		onError:  onError,
		trigger:  make(chan struct{}, 1),
	}
}

// Touch marks the content as changed since the last save.
func (d *Debouncer) Touch() {
	d.mu.Lock()
	d.dirty = true
	d.mu.Unlock()
}

// Trigger requests an immediate save, e.g. on an explicit "save" click.
func (d *Debouncer) Trigger() {
	d.Touch()
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// Run saves on every tick or trigger while dirty and returns when ctx is
// done, after flushing any pending change.
func (d *Debouncer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.flush(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
			d.flush(ctx)
		case <-d.trigger:
			d.flush(ctx)
		}
	}
}

func (d *Debouncer) flush(ctx context.Context) {
	d.mu.Lock()
	if !d.dirty {
		d.mu.Unlock()
		return
	}
	d.dirty = false
	d.mu.Unlock()

	if err := d.save(ctx); err != nil {
		d.Touch()
		if d.onError != nil {
			d.onError(err)
		}
	}
}
