package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvService_Typed(t *testing.T) {
	t.Setenv("SG_BOOL", "true")
	t.Setenv("SG_INT", "42")
	t.Setenv("SG_FLOAT", "0.35")
	t.Setenv("SG_DUR", "6s")
	t.Setenv("SG_MS", "1500")
	t.Setenv("SG_BAD", "nope")

	e := &EnvService{}

	assert.True(t, e.GetBool("SG_BOOL", false))
	assert.Equal(t, 42, e.GetInt("SG_INT", 0))
	assert.InDelta(t, 0.35, e.GetFloat("SG_FLOAT", 0), 1e-9)
	assert.Equal(t, 6*time.Second, e.GetDuration("SG_DUR", 0))
	assert.Equal(t, 1500*time.Millisecond, e.GetDuration("SG_MS", 0))

	assert.Equal(t, 7, e.GetInt("SG_BAD", 7))
	assert.Equal(t, time.Second, e.GetDuration("SG_BAD", time.Second))
	assert.Equal(t, "fallback", e.GetWithDefault("SG_UNSET", "fallback"))
}
