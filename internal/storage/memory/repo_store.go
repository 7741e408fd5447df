// Package memory provides an in-memory RepoStore for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/github-stars-crawler/internal/crawler"
)

// Run mirrors one crawl_runs row.
type Run struct {
	ID         int64
	RunUUID    uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Status     crawler.RunStatus
	ErrorText  string
}

type snapshotKey struct {
	nodeID     string
	recordedAt time.Time
}

// RepoStore keeps everything in maps guarded by one mutex. Upserts follow
// the same idempotence rules as the Postgres store: repositories replace on
// node_id, star snapshots are append-only and ignore duplicates.
type RepoStore struct {
	mu        sync.Mutex
	repos     map[string]crawler.Repo
	snapshots map[snapshotKey]int
	runs      []Run
	nextRunID int64
}

// NewRepoStore returns an empty store.
func NewRepoStore() *RepoStore {
	return &RepoStore{
		repos:     make(map[string]crawler.Repo),
		snapshots: make(map[snapshotKey]int),
		nextRunID: 1,
	}
}

// CreateRun registers a new running run and returns its ID.
func (s *RepoStore) CreateRun(_ context.Context, runUUID uuid.UUID, startedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextRunID
	s.nextRunID++
	s.runs = append(s.runs, Run{
		ID:        id,
		RunUUID:   runUUID,
		StartedAt: startedAt,
		Status:    crawler.RunStatusRunning,
	})
	return id, nil
}

// UpsertBatch replaces repositories by node ID and appends star snapshots,
// silently ignoring duplicate (node_id, recorded_at) pairs.
func (s *RepoStore) UpsertBatch(_ context.Context, repos []crawler.Repo, recordedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range repos {
		s.repos[r.NodeID] = r
		key := snapshotKey{nodeID: r.NodeID, recordedAt: recordedAt}
		if _, ok := s.snapshots[key]; !ok {
			s.snapshots[key] = r.StarCount
		}
	}
	return nil
}

// FinishRun records the run's terminal state.
func (s *RepoStore) FinishRun(
	_ context.Context,
	runID int64,
	total int,
	status crawler.RunStatus,
	errText string,
	finishedAt time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == runID {
			s.runs[i].FinishedAt = finishedAt
			s.runs[i].Total = total
			s.runs[i].Status = status
			s.runs[i].ErrorText = errText
			return nil
		}
	}
	return fmt.Errorf("run %d not found", runID)
}

// RepoCount reports how many distinct repositories are stored.
func (s *RepoStore) RepoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.repos)
}

// SnapshotCount reports how many star snapshots are stored.
func (s *RepoStore) SnapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// Repo returns a stored repository by node ID.
func (s *RepoStore) Repo(nodeID string) (crawler.Repo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[nodeID]
	return r, ok
}

// Runs returns a copy of the recorded runs.
func (s *RepoStore) Runs() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Run(nil), s.runs...)
}
