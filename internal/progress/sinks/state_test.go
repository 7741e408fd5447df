package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/github-stars-crawler/internal/progress"
)

func TestStateSinkFoldsRunLifecycle(t *testing.T) {
	t.Parallel()

	sink := NewStateSink()
	require.Equal(t, "idle", sink.Snapshot().Status)

	runUUID := uuid.New()
	start := time.Unix(1700000000, 0).UTC()

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunUUID: runUUID, TS: start, Stage: progress.StageRunStart, Target: 1000},
		{TS: start.Add(time.Minute), Stage: progress.StageChunkDone, Chunk: 1, Chunks: 3, Seen: 400},
		{TS: start.Add(time.Minute), Stage: progress.StageQueryAbandoned, Query: "q"},
		{TS: start.Add(2 * time.Minute), Stage: progress.StageChunkDone, Chunk: 2, Chunks: 3, Seen: 900},
	}))

	state := sink.Snapshot()
	require.Equal(t, runUUID, state.RunUUID)
	require.Equal(t, "running", state.Status)
	require.Equal(t, int64(1000), state.Target)
	require.Equal(t, int64(900), state.Seen)
	require.Equal(t, 2, state.ChunksDone)
	require.Equal(t, 3, state.ChunksTotal)
	require.Equal(t, 1, state.QueriesAbandoned)
	require.Equal(t, start, state.StartedAt)

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunUUID: runUUID, TS: start.Add(3 * time.Minute), Stage: progress.StageRunDone, Seen: 1000},
	}))
	require.Equal(t, "success", sink.Snapshot().Status)
	require.Equal(t, int64(1000), sink.Snapshot().Seen)
}

func TestStateSinkRunErrorKeepsNote(t *testing.T) {
	t.Parallel()

	sink := NewStateSink()
	runUUID := uuid.New()
	now := time.Unix(1700000000, 0).UTC()

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunUUID: runUUID, TS: now, Stage: progress.StageRunStart, Target: 50},
		{RunUUID: runUUID, TS: now.Add(time.Second), Stage: progress.StageRunError, Note: "connection reset"},
	}))

	state := sink.Snapshot()
	require.Equal(t, "failed", state.Status)
	require.Equal(t, "connection reset", state.Note)
}

func TestStateSinkNewRunResetsState(t *testing.T) {
	t.Parallel()

	sink := NewStateSink()
	now := time.Unix(1700000000, 0).UTC()

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunUUID: uuid.New(), TS: now, Stage: progress.StageRunStart, Target: 10},
		{TS: now, Stage: progress.StageQueryAbandoned, Query: "q"},
	}))
	require.Equal(t, 1, sink.Snapshot().QueriesAbandoned)

	second := uuid.New()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunUUID: second, TS: now.Add(time.Hour), Stage: progress.StageRunStart, Target: 20},
	}))

	state := sink.Snapshot()
	require.Equal(t, second, state.RunUUID)
	require.Zero(t, state.QueriesAbandoned)
	require.Equal(t, int64(20), state.Target)
}
