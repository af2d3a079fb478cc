package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentApp, JSON: true, Output: &buf})

	logger.WithComponent(ComponentAnalytics).Info("hello", FieldOrganizationID, "org-1")
	logger.Debug("debugging")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, ComponentAnalytics, lines[0][FieldComponent])
	assert.Equal(t, "org-1", lines[0][FieldOrganizationID])
	assert.Equal(t, ComponentApp, lines[1][FieldComponent])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Component: ComponentApp, JSON: true, Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestMiddlewareStoresLogger(t *testing.T) {
	logger := Discard()
	var got *Logger
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Same(t, logger, got)
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestStructuredLoggerSnapshot(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentApp, JSON: true, Output: &buf}))

	sl.LogSnapshotComputed(context.Background(), "org-1", 10, 2, 5, true)
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentLedger, OpRead, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "org-1", lines[0][FieldOrganizationID])
	assert.EqualValues(t, 2, lines[0][FieldEntriesSkipped])
	assert.Equal(t, true, lines[0][FieldCacheHit])
	assert.Equal(t, ComponentSnapshot, lines[0][FieldComponent])
	assert.Equal(t, "bad", lines[1][FieldError])
	assert.Equal(t, ComponentLedger, lines[1][FieldComponent])
}
