package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("remote", 3, 30*time.Second)
	cb.now = func() time.Time { return now }
	fail := errors.New("boom")

	for i := 0; i < 2; i++ {
		assert.True(t, cb.Allow())
		cb.RecordResult(fail)
	}
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordResult(fail)
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	now = now.Add(31 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.False(t, cb.Allow(), "only one trial call while half open")

	cb.RecordResult(nil)
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("remote", 1, time.Second)
	cb.now = func() time.Time { return now }

	cb.RecordResult(errors.New("x"))
	now = now.Add(2 * time.Second)
	assert.True(t, cb.Allow())

	cb.RecordResult(errors.New("y"))
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
	assert.Equal(t, "open", cb.State().String())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker("remote", 1, time.Second)
	cb.now = func() time.Time { return now }

	var transitions []string
	cb.OnStateChange(func(name string, from, to CircuitState) {
		assert.Equal(t, "remote", name)
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	cb.RecordResult(nil)
	cb.RecordResult(errors.New("x"))
	cb.Allow()
	now = now.Add(2 * time.Second)
	cb.Allow()
	cb.RecordResult(nil)

	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}
