package debounce

import (
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts the timer primitive so tests can drive time by hand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock uses the time package.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// AfterFunc wraps time.AfterFunc.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Debouncer collapses bursts of Call into one callback run after the quiet
// period that follows the last call.
type Debouncer[T any] struct {
	mu    sync.Mutex
	clock Clock
	m     *Machine[T]
	timer Timer
	fn    func(T)
}

// New returns a Debouncer running fn. A nil clock uses RealClock.
func New[T any](delay time.Duration, clock Clock, fn func(T)) *Debouncer[T] {
	if clock == nil {
		clock = RealClock{}
	}
	return &Debouncer[T]{clock: clock, m: NewMachine[T](delay), fn: fn}
}

// Call schedules fn(v), replacing any pending call.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	tok := d.m.Schedule(d.clock.Now(), v)
	d.timer = d.clock.AfterFunc(d.m.Delay(), func() { d.fire(tok) })
}

func (d *Debouncer[T]) fire(tok Token) {
	d.mu.Lock()
	v, ok := d.m.Fire(tok)
	if ok {
		d.timer = nil
	}
	d.mu.Unlock()

	if ok {
		d.fn(v)
	}
}

// Now cancels any pending call and runs fn(v) synchronously.
func (d *Debouncer[T]) Now(v T) {
	d.Stop()
	d.fn(v)
}

// Flush runs the pending call synchronously, if there is one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v, ok := d.m.Flush()
	d.mu.Unlock()

	if ok {
		d.fn(v)
	}
	return ok
}

// Stop cancels any pending call.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.m.Cancel()
}

// Pending reports whether a call is waiting.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.m.Phase() == Pending
}
