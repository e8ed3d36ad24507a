package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker trips after a run of consecutive failures and probes
// the dependency with a bounded number of half-open requests once the
// open window has elapsed.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int

	state         CircuitState
	failureRun    int
	openedAt      time.Time
	probeInFlight int
	probePassed   int
	clock         func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if openTimeout <= 0 {
		openTimeout = 15 * time.Second
	}
	if halfOpenMaxReq < 1 {
		halfOpenMaxReq = 1
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		halfOpenMaxReq:   halfOpenMaxReq,
		state:            CircuitStateClosed,
		clock:            time.Now,
	}
}

// Allow reports whether a request may proceed. Half-open admits at most
// halfOpenMaxReq concurrent probes.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.clock().Sub(b.openedAt) < b.openTimeout {
			return ErrCircuitOpen
		}
		b.enter(CircuitStateHalfOpen)
	}

	if b.state == CircuitStateHalfOpen {
		if b.probeInFlight >= b.halfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probeInFlight++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failureRun = 0
	case CircuitStateHalfOpen:
		if b.probeInFlight > 0 {
			b.probeInFlight--
		}
		b.probePassed++
		if b.probePassed >= b.halfOpenMaxReq && b.probeInFlight == 0 {
			b.enter(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failureRun++
		if b.failureRun >= b.failureThreshold {
			b.enter(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		if b.probeInFlight > 0 {
			b.probeInFlight--
		}
		b.enter(CircuitStateOpen)
	case CircuitStateOpen:
		// Late failure from a request admitted earlier; restart the window.
		b.openedAt = b.clock()
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.clock().Sub(b.openedAt) >= b.openTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) enter(state CircuitState) {
	b.state = state
	b.probeInFlight = 0
	b.probePassed = 0
	switch state {
	case CircuitStateClosed:
		b.failureRun = 0
		b.openedAt = time.Time{}
	case CircuitStateOpen:
		b.openedAt = b.clock()
	}
}
