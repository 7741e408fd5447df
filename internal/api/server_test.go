package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/github-stars-crawler/internal/progress"
	"github.com/JakeFAU/github-stars-crawler/internal/progress/sinks"
)

func newTestServer(t *testing.T, state *sinks.StateSink) *httptest.Server {
	t.Helper()
	registry := prometheus.NewRegistry()
	_, err := sinks.NewPrometheusSink(registry)
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(registry, state, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, sinks.NewStateSink())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
}

func TestMetricsEndpointServesCollectors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, sinks.NewStateSink())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(payload), "starcrawl_runs_started_total")
}

func TestCurrentRunReflectsState(t *testing.T) {
	t.Parallel()

	state := sinks.NewStateSink()
	srv := newTestServer(t, state)

	runUUID := uuid.New()
	now := time.Unix(1700000000, 0).UTC()
	require.NoError(t, state.Consume(context.Background(), []progress.Event{
		{RunUUID: runUUID, TS: now, Stage: progress.StageRunStart, Target: 1000},
		{TS: now.Add(time.Minute), Stage: progress.StageChunkDone, Chunk: 1, Chunks: 5, Seen: 123},
	}))

	resp, err := http.Get(srv.URL + "/runs/current")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got sinks.RunState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, runUUID, got.RunUUID)
	require.Equal(t, "running", got.Status)
	require.Equal(t, int64(1000), got.Target)
	require.Equal(t, int64(123), got.Seen)
	require.Equal(t, 1, got.ChunksDone)
}

func TestCurrentRunWithoutStateSink(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	srv := httptest.NewServer(NewServer(registry, nil, nil).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/runs/current")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
