// Package orchestrator schedules search queries across a bounded worker pool
// and streams deduplicated result batches.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/github-stars-crawler/internal/crawler"
	"github.com/JakeFAU/github-stars-crawler/internal/progress"
)

// Config holds the orchestrator's scheduling knobs. Every value is injected;
// tests run with tiny values.
type Config struct {
	// MaxConcurrency caps simultaneous in-flight page fetches across the
	// entire run.
	MaxConcurrency int
	// ChunkMultiplier sizes query chunks as MaxConcurrency * ChunkMultiplier.
	ChunkMultiplier int
	// RateLowWater triggers a cooldown when a page reports less remaining
	// quota than this.
	RateLowWater int
	// Cooldown is how long a worker pauses after observing low quota.
	Cooldown time.Duration
}

// Orchestrator drives all queries for one crawl and yields fresh-entity
// batches. All collaborators are injected; the orchestrator creates nothing
// itself, so tests can pass a fake fetcher, a static generator, and an
// in-memory seen-set.
type Orchestrator struct {
	fetcher   crawler.PageFetcher
	generator crawler.QueryGenerator
	dedup     crawler.Deduplicator
	cfg       Config
	emitter   progress.Emitter
	logger    *zap.Logger
}

// New constructs an Orchestrator. The emitter may be nil.
func New(
	fetcher crawler.PageFetcher,
	generator crawler.QueryGenerator,
	dedup crawler.Deduplicator,
	cfg Config,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 15
	}
	if cfg.ChunkMultiplier <= 0 {
		cfg.ChunkMultiplier = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		generator: generator,
		dedup:     dedup,
		cfg:       cfg,
		emitter:   emitter,
		logger:    logger,
	}
}

// Collect produces a finite stream of fresh-repository batches until the
// seen-set reaches target or every query is exhausted or abandoned. The
// channel is closed when the stream ends. Batches arrive in chunk order and
// are never empty; each unique identifier appears in at most one batch. A
// call is not restartable: it owns a fresh stop signal and shares only the
// injected deduplicator.
func (o *Orchestrator) Collect(ctx context.Context, target int) <-chan []crawler.Repo {
	out := make(chan []crawler.Repo)
	go func() {
		defer close(out)
		o.run(ctx, target, out)
	}()
	return out
}

func (o *Orchestrator) run(ctx context.Context, target int, out chan<- []crawler.Repo) {
	queries := o.generator.Generate()
	chunkSize := o.cfg.MaxConcurrency * o.cfg.ChunkMultiplier
	chunks := (len(queries) + chunkSize - 1) / chunkSize
	stop := newStopSignal()
	// One limiter for the whole run, not per chunk.
	sem := semaphore.NewWeighted(int64(o.cfg.MaxConcurrency))

	o.logger.Info("starting crawl",
		zap.Int("queries", len(queries)),
		zap.Int("concurrency", o.cfg.MaxConcurrency),
		zap.Int("target", target),
	)

	for i := 0; i < len(queries); i += chunkSize {
		if stop.stopped() || o.dedup.TotalSeen() >= target || ctx.Err() != nil {
			break
		}

		end := min(i+chunkSize, len(queries))
		batch := o.runChunk(ctx, queries[i:end], target, sem, stop)

		chunk := i/chunkSize + 1
		o.emit(progress.Event{
			TS:     time.Now().UTC(),
			Stage:  progress.StageChunkDone,
			Chunk:  chunk,
			Chunks: chunks,
			Fresh:  int64(len(batch)),
			Seen:   int64(o.dedup.TotalSeen()),
			Target: int64(target),
		})
		if len(batch) == 0 {
			continue
		}

		select {
		case out <- batch:
		case <-ctx.Done():
			return
		}
		o.logger.Info("chunk complete",
			zap.Int("chunk", chunk),
			zap.Int("chunks", chunks),
			zap.Int("fresh", len(batch)),
			zap.Int("seen", o.dedup.TotalSeen()),
			zap.Int("target", target),
		)
	}

	o.logger.Info("crawl complete", zap.Int("unique_repos", o.dedup.TotalSeen()))
}

// runChunk launches every query in the chunk and blocks until all of them
// are exhausted, abandoned, or stopped. The returned batch holds the chunk's
// fresh repositories; arrival order across queries is nondeterministic.
func (o *Orchestrator) runChunk(
	ctx context.Context,
	chunk []string,
	target int,
	sem *semaphore.Weighted,
	stop *stopSignal,
) []crawler.Repo {
	var (
		mu    sync.Mutex
		batch []crawler.Repo
		wg    sync.WaitGroup
	)
	for _, q := range chunk {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			o.runQuery(ctx, query, target, sem, stop, func(fresh []crawler.Repo) {
				mu.Lock()
				batch = append(batch, fresh...)
				mu.Unlock()
			})
		}(q)
	}
	wg.Wait()
	return batch
}

// runQuery drains one query's pages. State is just the cursor plus an
// implicit exhausted flag: the loop returns once the page reports no
// successor, the query errors out, or the stop signal fires. The signal is
// checked at page boundaries only; an in-flight fetch is never interrupted.
func (o *Orchestrator) runQuery(
	ctx context.Context,
	query string,
	target int,
	sem *semaphore.Weighted,
	stop *stopSignal,
	deliver func([]crawler.Repo),
) {
	cursor := ""
	for !stop.stopped() {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		page, err := o.fetcher.FetchPage(ctx, query, cursor)
		sem.Release(1)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Retries are already exhausted at the fetch layer; abandon this
			// query and keep the run going.
			o.logger.Warn("query abandoned",
				zap.String("query", truncate(query, 60)),
				zap.Error(err),
			)
			o.emit(progress.Event{
				TS:    time.Now().UTC(),
				Stage: progress.StageQueryAbandoned,
				Query: truncate(query, 60),
				Note:  err.Error(),
			})
			return
		}

		// Filter-then-yield: the fresh subset is committed to the seen-set
		// before anything is delivered, so a racing duplicate from another
		// query is excluded.
		fresh := o.dedup.FilterFresh(page.Repos)
		if len(fresh) > 0 {
			deliver(fresh)
		}

		if !page.HasNext || len(page.Repos) == 0 {
			return
		}
		if o.dedup.TotalSeen() >= target {
			stop.set()
			return
		}
		if page.RateRemaining < o.cfg.RateLowWater {
			// Cooperative, approximate throttle: each worker reacts to the
			// shared quota reading it happens to observe. Several workers may
			// pause at once; the overshoot is accepted safety margin.
			o.logger.Info("rate limit low; cooling down",
				zap.Int("remaining", page.RateRemaining),
				zap.Duration("cooldown", o.cfg.Cooldown),
			)
			o.emit(progress.Event{
				TS:    time.Now().UTC(),
				Stage: progress.StageRatePause,
				Dur:   o.cfg.Cooldown,
			})
			if err := sleepCtx(ctx, o.cfg.Cooldown); err != nil {
				return
			}
		}
		cursor = page.EndCursor
	}
}

func (o *Orchestrator) emit(evt progress.Event) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(evt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
