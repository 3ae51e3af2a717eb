// Package breaker implements a consecutive-failure circuit breaker.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed allows all calls.
	Closed State = iota
	// Open rejects calls until the cooldown elapses.
	Open
	// HalfOpen allows trial calls to probe recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// Breaker trips after failureThreshold consecutive failures and closes again
// after successThreshold consecutive half-open successes.
type Breaker struct {
	mu               sync.Mutex
	failureThreshold uint32
	successThreshold uint32
	cooldown         time.Duration
	state            State
	failures         uint32
	successes        uint32
	openedAt         time.Time
	now              func() time.Time
}

// New creates a closed breaker. Zero thresholds are treated as 1.
func New(failureThreshold, successThreshold uint32, cooldown time.Duration) *Breaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// State returns the current state, moving Open to HalfOpen once the cooldown
// has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

func (b *Breaker) refresh() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = HalfOpen
		b.successes = 0
	}
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	if b.state == Open {
		return ErrOpen
	}
	return nil
}

// record updates counters with a call outcome. Caller cancellation is not
// counted against the dependency.
func (b *Breaker) record(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		switch b.state {
		case HalfOpen:
			b.trip()
		case Closed:
			b.failures++
			if b.failures >= b.failureThreshold {
				b.trip()
			}
		}
		return
	}

	switch b.state {
	case HalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = Closed
			b.failures = 0
			b.successes = 0
		}
	case Closed:
		b.failures = 0
	}
}

func (b *Breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.failures = 0
	b.successes = 0
}

// Do runs fn unless the breaker is open, and records its outcome.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if err := b.allow(); err != nil {
		var zero T
		return zero, err
	}
	v, err := fn()
	b.record(err)
	return v, err
}
