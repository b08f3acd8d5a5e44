package resilience

import (
	"sync"
	"time"
)

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker opens after threshold consecutive failures and lets a single
// trial call through once resetTimeout has passed.
type CircuitBreaker struct {
	mu               sync.Mutex
	name             string
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time

	consecutiveFailures int
	state               CircuitState
	reopenAt            time.Time
	onChange            func(name string, from, to CircuitState)
}

func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
		state:            CircuitClosed,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// OnStateChange registers fn to be called after every state transition.
// fn runs outside the breaker's lock.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onChange = fn
}

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	from := cb.state
	allowed := false
	switch cb.state {
	case CircuitOpen:
		if !cb.now().Before(cb.reopenAt) {
			cb.state = CircuitHalfOpen
			allowed = true
		}
	case CircuitHalfOpen:
	default:
		allowed = true
	}
	notify := cb.transitionLocked(from)
	cb.mu.Unlock()

	notify()
	return allowed
}

func (cb *CircuitBreaker) RecordResult(err error) {
	cb.mu.Lock()
	from := cb.state
	if err == nil {
		cb.consecutiveFailures = 0
		cb.state = CircuitClosed
	} else {
		cb.consecutiveFailures++
		if cb.state == CircuitHalfOpen || cb.consecutiveFailures >= cb.failureThreshold {
			cb.state = CircuitOpen
			cb.reopenAt = cb.now().Add(cb.resetTimeout)
		}
	}
	notify := cb.transitionLocked(from)
	cb.mu.Unlock()

	notify()
}

func (cb *CircuitBreaker) transitionLocked(from CircuitState) func() {
	to, fn, name := cb.state, cb.onChange, cb.name
	if fn == nil || from == to {
		return func() {}
	}
	return func() { fn(name, from, to) }
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
