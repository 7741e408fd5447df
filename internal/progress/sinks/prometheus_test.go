package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/github-stars-crawler/internal/progress"
)

func TestPrometheusSinkCountsEvents(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runUUID := uuid.New()
	now := time.Unix(1700000000, 0).UTC()

	batch := []progress.Event{
		{RunUUID: runUUID, TS: now, Stage: progress.StageRunStart, Target: 1000},
		{TS: now, Stage: progress.StageChunkDone, Chunk: 1, Chunks: 4, Fresh: 120, Seen: 120},
		{TS: now, Stage: progress.StageChunkDone, Chunk: 2, Chunks: 4, Fresh: 80, Seen: 200},
		{TS: now, Stage: progress.StageQueryAbandoned, Query: "language:go"},
		{TS: now, Stage: progress.StageRatePause, Dur: time.Minute},
		{RunUUID: runUUID, TS: now, Stage: progress.StageRunDone, Seen: 200, Dur: 90 * time.Second},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, float64(1), testutil.ToFloat64(sink.runsStarted))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")))
	require.Equal(t, float64(2), testutil.ToFloat64(sink.chunksCompleted))
	require.Equal(t, float64(200), testutil.ToFloat64(sink.freshRepos))
	require.Equal(t, float64(200), testutil.ToFloat64(sink.reposSeen))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.queriesAbandoned))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.ratePauses))
	require.Equal(t, float64(60), testutil.ToFloat64(sink.ratePauseSeconds))
}

func TestPrometheusSinkFailedRun(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runUUID := uuid.New()
	now := time.Unix(1700000000, 0).UTC()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunUUID: runUUID, TS: now, Stage: progress.StageRunStart},
		{RunUUID: runUUID, TS: now, Stage: progress.StageRunError, Note: "boom", Dur: time.Second},
	}))

	require.Equal(t, float64(1), testutil.ToFloat64(sink.runsCompleted.WithLabelValues("failed")))
	require.Equal(t, float64(0), testutil.ToFloat64(sink.runsCompleted.WithLabelValues("success")))
}

func TestPrometheusSinkDoubleRegisterFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
