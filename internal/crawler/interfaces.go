package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PageFetcher fetches one page of search results for a query at a cursor.
// Implementations own retry and backoff for transient transport failures and
// must handle explicit rate-limit signals internally; an error is returned
// only once the retry budget is exhausted, signaling a non-recoverable
// condition for that query.
type PageFetcher interface {
	FetchPage(ctx context.Context, query, cursor string) (Page, error)
}

// QueryGenerator enumerates the search queries whose result sets jointly
// cover the target domain. Generate is pure and deterministic; it performs
// no I/O.
type QueryGenerator interface {
	Generate() []string
}

// Deduplicator tracks the set of repository identifiers observed so far in a
// run. FilterFresh must be safe for concurrent callers: the check-and-mark is
// atomic as a unit, so no two concurrent calls treat the same identifier as
// fresh.
type Deduplicator interface {
	FilterFresh(repos []Repo) []Repo
	TotalSeen() int
}

// RepoStore persists crawl output. UpsertBatch is idempotent: applying the
// same batch twice must not duplicate or corrupt state.
type RepoStore interface {
	CreateRun(ctx context.Context, runUUID uuid.UUID, startedAt time.Time) (int64, error)
	UpsertBatch(ctx context.Context, repos []Repo, recordedAt time.Time) error
	FinishRun(ctx context.Context, runID int64, total int, status RunStatus, errText string, finishedAt time.Time) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
