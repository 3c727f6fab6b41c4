package logger

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_FiltersAndElides(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("receiver call failed", "receiver", "farm.near", "memo", "")
	out := buf.String()
	assert.Contains(t, out, "receiver call failed")
	assert.Contains(t, out, "receiver=farm.near")
	assert.NotContains(t, out, "memo=")
}

func TestFormatRFC3339Millis(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 45, 123_456_789, time.FixedZone("x", 3600))
	assert.Equal(t, "2024-03-01T11:30:45.123Z", formatRFC3339Millis(ts))
}
