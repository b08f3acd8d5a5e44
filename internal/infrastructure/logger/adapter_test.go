package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "open_gmail_com", sanitize("open gmail.com"))
	assert.Equal(t, "session", sanitize(""))
	assert.Len(t, sanitize(strings.Repeat("a", 100)), 60)
}

func TestLoggerAdapter_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLoggerAdapter(Config{Dir: dir, Name: "guide", Level: "debug"})
	require.NoError(t, err)

	log.WithField("component", "cascade").Info("tier hit", "tier", "heuristic", "count", 3)
	require.NoError(t, log.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_guide.log"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, `"message":"tier hit"`)
	assert.Contains(t, line, `"component":"cascade"`)
	assert.Contains(t, line, `"tier":"heuristic"`)
	assert.Contains(t, line, `"level":"INFO"`)
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.WithFields(map[string]any{"a": 1}).Error("ignored")
	assert.NoError(t, log.Close())
}
