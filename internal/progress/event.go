// Package progress defines the event stream emitted while a crawl runs and
// the hub that fans events out to sinks.
package progress

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart       Stage = "RUN_START"
	StageRunDone        Stage = "RUN_DONE"
	StageRunError       Stage = "RUN_ERROR"
	StageChunkDone      Stage = "CHUNK_DONE"
	StageBatchPersisted Stage = "BATCH_PERSISTED"
	StageQueryAbandoned Stage = "QUERY_ABANDONED"
	StageRatePause      Stage = "RATE_PAUSE"
)

// Event captures a single milestone of crawl progress.
type Event struct {
	// RunUUID identifies the crawl run. Required for RUN_* stages; chunk and
	// query level emitters may leave it zero.
	RunUUID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Query optionally scopes query-level events to the search expression.
	Query string
	// Chunk and Chunks report chunk progress for CHUNK_DONE.
	Chunk  int
	Chunks int
	// Fresh is the number of newly seen repositories carried by the event.
	Fresh int64
	// Seen is the running unique total at emission time.
	Seen int64
	// Target is the run's target count.
	Target int64
	// Dur captures elapsed time for run completions and rate pauses.
	Dur time.Duration
	// Note lets emitters attach low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
		if e.RunUUID == uuid.Nil {
			return errors.New("run stages require a run uuid")
		}
	case StageChunkDone, StageBatchPersisted, StageRatePause:
	case StageQueryAbandoned:
		if e.Query == "" {
			return errors.New("query abandoned requires the query")
		}
	default:
		return errors.New("unknown stage")
	}
	return nil
}
