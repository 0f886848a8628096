package errors

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is the cause of every rejection by an open Breaker.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the position of a Breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	// StateHalfOpen admits a single trial call.
	StateHalfOpen
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// Breaker guards one embedding provider. It opens after threshold
// consecutive failures and rejects calls until cooldown has passed,
// then admits one trial call whose outcome closes or reopens it.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	streak   int
	openedAt time.Time
	trial    bool
}

// NewBreaker creates a closed breaker. Non-positive arguments fall back
// to 5 failures and a 30s cooldown.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

func (b *Breaker) state() State {
	switch {
	case b.openedAt.IsZero():
		return StateClosed
	case b.now().Sub(b.openedAt) >= b.cooldown:
		return StateHalfOpen
	default:
		return StateOpen
	}
}

// State reports the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state()
}

// Allow returns nil when a call may proceed, or a fatal provider error
// wrapping ErrCircuitOpen.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state() {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if !b.trial {
			b.trial = true
			return nil
		}
	}
	return New(ErrCodeProviderCircuitOpen,
		fmt.Sprintf("embedding provider %s is unavailable after %d consecutive failures", b.name, b.streak),
		ErrCircuitOpen).
		WithSuggestion("check that the embedding provider is running and reachable")
}

// Success closes the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streak = 0
	b.openedAt = time.Time{}
	b.trial = false
}

// Release gives back an admitted call that ended without an outcome,
// such as one cancelled by its caller. The streak is unchanged.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
}

// Failure extends the failure streak. A failed trial reopens at once.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.streak++
	if b.trial || b.streak >= b.threshold {
		b.openedAt = b.now()
	}
	b.trial = false
}
