package querycache

import (
	"sync"
	"time"
)

// Debouncer delivers only the last value triggered within a quiet period.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	pending T
	armed   bool
	stopped bool
}

// NewDebouncer returns a debouncer that calls fn delay after the last Trigger.
func NewDebouncer[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger records v and restarts the quiet period. Any earlier pending
// value is discarded.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = v
	d.armed = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Flush delivers the pending value now, if there is one.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.deliverLocked()
}

// Stop cancels the pending value. Later triggers are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
	d.armed = false
	var zero T
	d.pending = zero
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.deliverLocked()
}

// deliverLocked must be called with d.mu held; it releases it.
func (d *Debouncer[T]) deliverLocked() {
	if !d.armed || d.stopped {
		d.mu.Unlock()
		return
	}
	v := d.pending
	var zero T
	d.pending = zero
	d.armed = false
	d.mu.Unlock()
	d.fn(v)
}
