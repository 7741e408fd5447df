package crawler

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a crawl run.
type RunStatus string

// Run status values persisted in the crawl_runs table.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "success"
	RunStatusFailed    RunStatus = "failed"
)

// Repo is the immutable domain entity for one GitHub repository. Values are
// constructed once from a raw API node and never mutated; a later observation
// of the same NodeID produces a new value that replaces the old one in
// storage, not in crawl state.
type Repo struct {
	NodeID          string     `json:"node_id"`
	NameWithOwner   string     `json:"name_with_owner"`
	Name            string     `json:"name"`
	OwnerLogin      string     `json:"owner_login"`
	Description     string     `json:"description,omitempty"`
	PrimaryLanguage string     `json:"primary_language,omitempty"`
	IsPrivate       bool       `json:"is_private"`
	StarCount       int        `json:"star_count"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// Page is the result of fetching one search query at one pagination cursor.
// EndCursor is opaque and owned by the query's fetch loop; an empty string
// means no cursor (the first page).
type Page struct {
	Repos         []Repo
	HasNext       bool
	EndCursor     string
	RateRemaining int
}

// CrawlResult summarizes a finished crawl run. Produced exactly once, at the
// end of the run, for both successful and failed outcomes.
type CrawlResult struct {
	RunID      int64
	RunUUID    uuid.UUID
	TotalRepos int
	Status     RunStatus
	Elapsed    time.Duration
	ErrorText  string
}

// StarCount is one row of the latest-star-count export.
type StarCount struct {
	NodeID        string
	NameWithOwner string
	OwnerLogin    string
	Name          string
	StarCount     int
	RecordedAt    time.Time
}
