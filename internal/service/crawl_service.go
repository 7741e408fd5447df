// Package service implements the top-level crawl use case: drive the
// orchestrator, trim overshoot, persist batches, and finalize the run record.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/github-stars-crawler/internal/crawler"
	"github.com/JakeFAU/github-stars-crawler/internal/progress"
)

// Collector streams deduplicated batches for one run.
type Collector interface {
	Collect(ctx context.Context, target int) <-chan []crawler.Repo
}

// CrawlService persists what the orchestrator yields and produces exactly
// one CrawlResult per execution, success or failure. All dependencies arrive
// via constructor injection.
type CrawlService struct {
	collector Collector
	store     crawler.RepoStore
	clock     crawler.Clock
	emitter   progress.Emitter
	logger    *zap.Logger
}

// New constructs a CrawlService. The emitter may be nil.
func New(
	collector Collector,
	store crawler.RepoStore,
	clock crawler.Clock,
	emitter progress.Emitter,
	logger *zap.Logger,
) *CrawlService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrawlService{
		collector: collector,
		store:     store,
		clock:     clock,
		emitter:   emitter,
		logger:    logger,
	}
}

// Execute runs a full crawl for target repositories. The returned error is
// non-nil exactly when the run finalizes as failed; partial progress already
// persisted is retained either way, and the result reports how much was
// collected before any failure.
func (s *CrawlService) Execute(ctx context.Context, target int) (crawler.CrawlResult, error) {
	startedAt := s.clock.Now()
	runUUID := uuid.New()

	runID, err := s.store.CreateRun(ctx, runUUID, startedAt)
	if err != nil {
		return crawler.CrawlResult{}, fmt.Errorf("create run: %w", err)
	}

	s.logger.Info("crawl run started",
		zap.Int64("run_id", runID),
		zap.String("run_uuid", runUUID.String()),
		zap.Int("target", target),
	)
	s.emit(progress.Event{
		RunUUID: runUUID,
		TS:      startedAt,
		Stage:   progress.StageRunStart,
		Target:  int64(target),
	})

	// Cancel the collector once we stop consuming, so its producer goroutine
	// never stays blocked on a send.
	collectCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := 0
	for batch := range s.collector.Collect(collectCtx, target) {
		// Deterministic front-trim: keep the first target-total items.
		if remaining := target - total; len(batch) > remaining {
			batch = batch[:remaining]
		}
		if err := s.store.UpsertBatch(ctx, batch, s.clock.Now()); err != nil {
			return s.finishFailed(ctx, runID, runUUID, total, startedAt, err)
		}
		total += len(batch)

		elapsed := s.clock.Now().Sub(startedAt)
		s.logger.Info("batch persisted",
			zap.Int("batch", len(batch)),
			zap.Int("total", total),
			zap.Int("target", target),
			zap.Float64("repos_per_sec", perSecond(total, elapsed)),
		)
		s.emit(progress.Event{
			RunUUID: runUUID,
			TS:      s.clock.Now(),
			Stage:   progress.StageBatchPersisted,
			Fresh:   int64(len(batch)),
			Seen:    int64(total),
			Target:  int64(target),
		})
		if total >= target {
			break
		}
	}

	// A canceled context also ends the stream; such a run must not be
	// recorded as a success.
	if err := ctx.Err(); err != nil && total < target {
		return s.finishFailed(ctx, runID, runUUID, total, startedAt, fmt.Errorf("crawl interrupted: %w", err))
	}

	finishedAt := s.clock.Now()
	elapsed := finishedAt.Sub(startedAt)
	if err := s.store.FinishRun(ctx, runID, total, crawler.RunStatusSucceeded, "", finishedAt); err != nil {
		return s.finishFailed(ctx, runID, runUUID, total, startedAt, err)
	}

	s.logger.Info("crawl run complete",
		zap.Int64("run_id", runID),
		zap.Int("total", total),
		zap.Duration("elapsed", elapsed),
		zap.Float64("repos_per_sec", perSecond(total, elapsed)),
	)
	s.emit(progress.Event{
		RunUUID: runUUID,
		TS:      finishedAt,
		Stage:   progress.StageRunDone,
		Seen:    int64(total),
		Target:  int64(target),
		Dur:     elapsed,
	})

	return crawler.CrawlResult{
		RunID:      runID,
		RunUUID:    runUUID,
		TotalRepos: total,
		Status:     crawler.RunStatusSucceeded,
		Elapsed:    elapsed,
	}, nil
}

// finishFailed finalizes the run record as failed and reports the partial
// total. Already-persisted batches are never rolled back.
func (s *CrawlService) finishFailed(
	ctx context.Context,
	runID int64,
	runUUID uuid.UUID,
	total int,
	startedAt time.Time,
	cause error,
) (crawler.CrawlResult, error) {
	finishedAt := s.clock.Now()
	elapsed := finishedAt.Sub(startedAt)

	s.logger.Error("crawl run failed",
		zap.Int64("run_id", runID),
		zap.Int("total", total),
		zap.Duration("elapsed", elapsed),
		zap.Error(cause),
	)

	// Finalization must survive a canceled run context.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.store.FinishRun(finishCtx, runID, total, crawler.RunStatusFailed, cause.Error(), finishedAt); err != nil {
		s.logger.Error("finalize failed run", zap.Int64("run_id", runID), zap.Error(err))
	}

	s.emit(progress.Event{
		RunUUID: runUUID,
		TS:      finishedAt,
		Stage:   progress.StageRunError,
		Seen:    int64(total),
		Dur:     elapsed,
		Note:    cause.Error(),
	})

	return crawler.CrawlResult{
		RunID:      runID,
		RunUUID:    runUUID,
		TotalRepos: total,
		Status:     crawler.RunStatusFailed,
		Elapsed:    elapsed,
		ErrorText:  cause.Error(),
	}, cause
}

func (s *CrawlService) emit(evt progress.Event) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(evt)
}

func perSecond(total int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(total) / elapsed.Seconds()
}
