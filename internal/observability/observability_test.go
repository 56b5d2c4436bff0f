package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeHandler_FollowsPrimaryLevel(t *testing.T) {
	var primary, copied bytes.Buffer
	h := teeHandler{
		primary: slog.NewTextHandler(&primary, &slog.HandlerOptions{Level: slog.LevelWarn}),
		copy:    slog.NewJSONHandler(&copied, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	logger := slog.New(h).With("run", "alpha").WithGroup("split")

	logger.Info("dropped by both")
	logger.Warn("kept by both", "rows", 7)

	assert.NotContains(t, primary.String(), "dropped by both")
	assert.NotContains(t, copied.String(), "dropped by both")
	assert.Contains(t, primary.String(), "split.rows=7")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(copied.Bytes()), &rec))
	assert.Equal(t, "kept by both", rec["msg"])
	assert.Equal(t, "alpha", rec["run"])
	assert.Equal(t, map[string]any{"rows": 7.0}, rec["split"])
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.log")
	logger, closer := NewLogger(LogOptions{Level: "info", Format: "json", File: path})
	logger.Info("run finished", "samples", 42)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "run finished", rec["msg"])
	assert.Equal(t, 42.0, rec["samples"])
}

func TestNewLogger_FileFollowsSharedLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.log")
	logger, closer := NewLogger(LogOptions{Level: "WARNING", Format: "text", File: path})
	logger.Info("timestep read")
	logger.Warn("zero variance in training data")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "zero variance in training data", rec["msg"])
}

func TestMetrics_RegistryGathersRunMetrics(t *testing.T) {
	m := NewMetricsForTesting()
	m.SamplesAssembled.WithLabelValues("train", "west").Add(14)
	m.LastRunSuccess.Set(1)

	assert.Equal(t, 14.0, testutil.ToFloat64(m.SamplesAssembled.WithLabelValues("train", "west")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "ocean_etl_samples_assembled_total")
	assert.Contains(t, names, "ocean_etl_last_run_success")
}

func TestPushMetrics(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetricsForTesting()
	m.RunDuration.Set(12.5)

	require.NoError(t, PushMetrics(context.Background(), srv.URL, "ocean-extract", m))
	assert.Equal(t, "/metrics/job/ocean-extract", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPushMetrics_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := PushMetrics(context.Background(), srv.URL, "ocean-extract", NewMetricsForTesting())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), srv.URL))
}
