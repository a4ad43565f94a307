package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
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
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, New(tt.config))
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "info", Format: "json", Output: buf})

	logger.Info("profiling started")

	entry := decode(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "profiling started", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_WithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "info", Format: "json", Output: buf})

	child := logger.Named("profiler").With().
		Str("table", "hero").
		Int64("record_count", 2).
		Logger()

	child.Info("table profiled")

	entry := decode(t, buf)
	assert.Equal(t, "profiler", entry["component"])
	assert.Equal(t, "hero", entry["table"])
	assert.Equal(t, float64(2), entry["record_count"])
}

func TestLogger_WarnWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "warn", Format: "json", Output: buf})

	logger.WarnWith("column statistic skipped", errors.New("function avg(boolean) does not exist"), map[string]interface{}{
		"table":  "hero",
		"column": "active",
		"step":   "avg_char_length",
	})

	entry := decode(t, buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "function avg(boolean) does not exist", entry["error"])
	assert.Equal(t, "avg_char_length", entry["step"])
}

func TestLogger_ErrorWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "error", Format: "json", Output: buf})

	logger.ErrorWith("failed to connect", errors.New("database connection failed"), map[string]interface{}{
		"host": "localhost",
		"port": 5432,
	})

	entry := decode(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "database connection failed", entry["error"])
	assert.Equal(t, float64(5432), entry["port"])
}

func TestLogger_FromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "info", Format: "json", Output: buf})

	h := logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/report", nil))

	first, _, ok := bytes.Cut(buf.Bytes(), []byte("\n"))
	require.True(t, ok)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(first, &entry))
	assert.Equal(t, "inside handler", entry["message"])
	assert.Equal(t, "/api/v1/report", entry["path"])
	assert.Equal(t, "GET", entry["method"])
}

func TestLogger_FromContextWithoutLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		FromContext(context.Background()).Info("discarded")
	})
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFunc  func(*Logger)
		expected bool
	}{
		{"debug level logs debug", "debug", func(l *Logger) { l.Debug("debug message") }, true},
		{"info level skips debug", "info", func(l *Logger) { l.Debug("debug message") }, false},
		{"warn level skips info", "warn", func(l *Logger) { l.Info("info message") }, false},
		{"error level logs error", "error", func(l *Logger) { l.ErrorWith("error message", errors.New("boom"), nil) }, true},
		{"error level skips warn", "error", func(l *Logger) { l.Warn("warn message") }, false},
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

func TestLogger_Nop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With().Str("k", "v").Logger().Warn("discarded")
	})
}

func TestLogger_Middleware(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(&Config{Level: "info", Format: "json", Output: buf})

	h := logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tables", nil))

	entry := decode(t, buf)
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/v1/tables", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
}

func BenchmarkLogger_WithFields(b *testing.B) {
	logger := New(&Config{Level: "info", Format: "json", Output: io.Discard})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.With().
			Str("table", "hero").
			Int("column_index", i).
			Logger().
			Info("benchmark message")
	}
}
