package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/github-stars-crawler/internal/progress"
)

// RunState is a point-in-time snapshot of the current crawl run, served by
// the ops HTTP endpoint.
type RunState struct {
	RunUUID          uuid.UUID `json:"run_uuid,omitempty"`
	Status           string    `json:"status"`
	Target           int64     `json:"target"`
	Seen             int64     `json:"seen"`
	ChunksDone       int       `json:"chunks_done"`
	ChunksTotal      int       `json:"chunks_total"`
	QueriesAbandoned int       `json:"queries_abandoned"`
	StartedAt        time.Time `json:"started_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
	Note             string    `json:"note,omitempty"`
}

// StateSink folds progress events into an in-memory RunState snapshot.
type StateSink struct {
	mu    sync.RWMutex
	state RunState
}

// NewStateSink returns a StateSink with an idle initial state.
func NewStateSink() *StateSink {
	return &StateSink{state: RunState{Status: "idle"}}
}

// Consume applies each event to the snapshot in order.
func (s *StateSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.apply(evt)
	}
	return nil
}

func (s *StateSink) apply(evt progress.Event) {
	s.state.UpdatedAt = evt.TS
	switch evt.Stage {
	case progress.StageRunStart:
		s.state = RunState{
			RunUUID:   evt.RunUUID,
			Status:    "running",
			Target:    evt.Target,
			StartedAt: evt.TS,
			UpdatedAt: evt.TS,
		}
	case progress.StageRunDone:
		s.state.Status = "success"
		s.state.Seen = evt.Seen
	case progress.StageRunError:
		s.state.Status = "failed"
		s.state.Note = evt.Note
	case progress.StageChunkDone:
		s.state.Seen = evt.Seen
		s.state.ChunksDone = evt.Chunk
		s.state.ChunksTotal = evt.Chunks
	case progress.StageQueryAbandoned:
		s.state.QueriesAbandoned++
	}
}

// Snapshot returns a copy of the current run state.
func (s *StateSink) Snapshot() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Close implements the Sink interface; the last snapshot stays readable.
func (s *StateSink) Close(context.Context) error {
	return nil
}
