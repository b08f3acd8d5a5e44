package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource map[string]string

func (m mapSource) Get(key string) string { return m[key] }

func (m mapSource) MustGet(key string) string { return m[key] }

func (m mapSource) GetWithDefault(key, def string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return def
}

func (m mapSource) GetBool(key string, def bool) bool {
	switch m[key] {
	case "true":
		return true
	case "false":
		return false
	}
	return def
}

func (m mapSource) GetInt(key string, def int) int {
	if m[key] == "7" {
		return 7
	}
	return def
}

func (m mapSource) GetFloat(key string, def float64) float64 {
	if m[key] == "0.8" {
		return 0.8
	}
	return def
}

func (m mapSource) GetDuration(key string, def time.Duration) time.Duration {
	if v, ok := m[key]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10*time.Second, cfg.Guidance.WatchdogTimeout)
	assert.Equal(t, 5*time.Second, cfg.Guidance.RecoveryBackoff)
	assert.Equal(t, time.Second, cfg.Guidance.RestartDelay)
	assert.Equal(t, 5, cfg.Guidance.UICap)
	assert.Equal(t, 10, cfg.Detection.MaxDetections)
	assert.Empty(t, cfg.Detection.ObjectModelURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(mapSource{
		"LLM_PROVIDER":                    "gemini",
		"DETECTION_MAX_RESULTS":           "7",
		"DETECTION_REMOTE_ENABLED":        "false",
		"DETECTION_OBJECT_MIN_CONFIDENCE": "0.8",
		"GUIDANCE_RESTART_DELAY":          "2s",
		"DETECTION_OBJECT_MODEL_URL":      "http://localhost:8100",
		"DETECTION_OBJECT_MODEL_TIMEOUT":  "1500ms",
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 7, cfg.Detection.MaxDetections)
	assert.False(t, cfg.Detection.EnableRemote)
	assert.InDelta(t, 0.8, cfg.Detection.ObjectMinConfidence, 1e-9)
	assert.Equal(t, 2*time.Second, cfg.Guidance.RestartDelay)
	assert.Equal(t, "http://localhost:8100", cfg.Detection.ObjectModelURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Detection.ObjectModelTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  mapSource
	}{
		{"unknown provider", mapSource{"LLM_PROVIDER": "other"}},
		{"file mode without path", mapSource{"CAPTURE_MODE": "file"}},
		{"remote timeout above watchdog", mapSource{"DETECTION_SERVICE_TIMEOUT": "12s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
