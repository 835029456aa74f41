package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "json config", config: &Config{Level: "debug", Format: "json", Output: io.Discard}},
		{name: "console config", config: &Config{Level: "info", Format: "console", Output: io.Discard}},
		{name: "nil output", config: &Config{Level: "warn"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, New(tt.config))
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf})

	l.Info("adapter ready")

	entry := decode(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "adapter ready", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_Component(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf})

	l.Component("sqlite").With().Int("conn", 1).Logger().Info("opened")

	entry := decode(t, buf)
	assert.Equal(t, "sqlite", entry["component"])
	assert.Equal(t, float64(1), entry["conn"])
}

func TestLogger_Query(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "debug", Format: "json", Output: buf})

	l.Query("query_raw", "SELECT ?", []any{1})

	entry := decode(t, buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "query_raw", entry["op"])
	assert.Equal(t, "SELECT ?", entry["sql"])
	assert.Equal(t, []any{float64(1)}, entry["args"])

	buf.Reset()
	quiet := New(&Config{Level: "info", Format: "json", Output: buf})
	quiet.Query("query_raw", "SELECT 1", nil)
	assert.Empty(t, buf.String())
}

func TestLogger_WarnWith(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "warn", Format: "json", Output: buf})

	l.WarnWith("rollback failed", errors.New("disk I/O error"), map[string]any{"adapter": "sqlite"})

	entry := decode(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "rollback failed", entry["message"])
	assert.Equal(t, "disk I/O error", entry["error"])
	assert.Equal(t, "sqlite", entry["adapter"])
}

func TestLogger_Context(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf})

	ctx := l.WithContext(context.Background())
	FromContext(ctx).Info("from context")

	entry := decode(t, buf)
	assert.Equal(t, "from context", entry["message"])
}

func TestFromContext_Missing(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	l.Info("discarded")
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFunc  func(*Logger)
		expected bool
	}{
		{name: "debug level logs debug", level: "debug", logFunc: func(l *Logger) { l.Debug("d") }, expected: true},
		{name: "info level skips debug", level: "info", logFunc: func(l *Logger) { l.Debug("d") }, expected: false},
		{name: "error level logs error", level: "error", logFunc: func(l *Logger) { l.Error("e") }, expected: true},
		{name: "error level skips warn", level: "error", logFunc: func(l *Logger) { l.Warn("w") }, expected: false},
		{name: "unknown level falls back to info", level: "loud", logFunc: func(l *Logger) { l.Info("i") }, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.logFunc(New(&Config{Level: tt.level, Format: "json", Output: buf}))

			if tt.expected {
				assert.NotEmpty(t, buf.String(), "expected log output")
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("debug"))
	assert.False(t, ValidLevel("verbose"))
}

func BenchmarkLogger_Query_Disabled(b *testing.B) {
	l := New(&Config{Level: "info", Format: "json", Output: io.Discard})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Query("query_raw", "SELECT 1", nil)
	}
}
