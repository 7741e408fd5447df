package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/github-stars-crawler/internal/progress"
)

func TestLogSinkLogsStructuredFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))

	runUUID := uuid.New()
	now := time.Unix(1700000000, 0).UTC()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunUUID: runUUID, TS: now, Stage: progress.StageRunStart, Target: 500},
		{TS: now, Stage: progress.StageQueryAbandoned, Query: "language:go", Note: "exhausted retries"},
	}))

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	require.Equal(t, "RUN_START", first["stage"])
	require.Equal(t, runUUID.String(), first["run_uuid"])
	require.Equal(t, int64(500), first["target"])

	second := entries[1].ContextMap()
	require.Equal(t, "QUERY_ABANDONED", second["stage"])
	require.Equal(t, "language:go", second["query"])
	require.Equal(t, "exhausted retries", second["note"])
}

func TestLogSinkNilLogger(t *testing.T) {
	t.Parallel()

	sink := NewLogSink(nil)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{TS: time.Now().UTC(), Stage: progress.StageChunkDone},
	}))
	require.NoError(t, sink.Close(context.Background()))
}
