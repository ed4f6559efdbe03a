// Package debounce implements trailing-edge debouncing as an explicit state
// machine, plus a timer-driven wrapper for callback use.
package debounce

import "time"

// Phase is the state of a Machine.
type Phase int

const (
	// Idle means nothing is pending.
	Idle Phase = iota
	// Pending means a value waits for its deadline.
	Pending
	// Fired means the last pending value was delivered.
	Fired
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Fired:
		return "fired"
	default:
		return "unknown"
	}
}

// Token identifies one scheduled value. Only the latest token can fire.
type Token uint64

// Machine holds at most one pending value. It never starts timers itself:
// the caller schedules a wake-up for the returned deadline and calls Fire with
// the token it was given.
type Machine[T any] struct {
	delay    time.Duration
	phase    Phase
	token    Token
	deadline time.Time
	pending  T
}

// NewMachine returns an idle machine with the given quiet period.
func NewMachine[T any](delay time.Duration) *Machine[T] {
	return &Machine[T]{delay: delay}
}

// Delay returns the quiet period.
func (m *Machine[T]) Delay() time.Duration {
	return m.delay
}

// Phase returns the current phase.
func (m *Machine[T]) Phase() Phase {
	return m.phase
}

// Deadline returns when the pending value becomes due.
func (m *Machine[T]) Deadline() time.Time {
	return m.deadline
}

// Schedule replaces any pending value with v, due delay after now.
func (m *Machine[T]) Schedule(now time.Time, v T) Token {
	m.token++
	m.pending = v
	m.deadline = now.Add(m.delay)
	m.phase = Pending
	return m.token
}

// Fire delivers the pending value if tok is the latest token. Stale tokens
// and repeated fires return false.
func (m *Machine[T]) Fire(tok Token) (T, bool) {
	var zero T
	if m.phase != Pending || tok != m.token {
		return zero, false
	}
	v := m.pending
	m.pending = zero
	m.phase = Fired
	return v, true
}

// Flush delivers the pending value immediately, if any.
func (m *Machine[T]) Flush() (T, bool) {
	return m.Fire(m.token)
}

// Cancel drops the pending value. Tokens handed out so far become stale.
func (m *Machine[T]) Cancel() {
	var zero T
	if m.phase == Pending {
		m.token++
		m.phase = Idle
	}
	m.pending = zero
}
