// Package app wires the application's dependencies. It is the composition
// root: every other component receives its collaborators via constructor
// injection and creates nothing itself.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/JakeFAU/github-stars-crawler/internal/api"
	"github.com/JakeFAU/github-stars-crawler/internal/clock/system"
	"github.com/JakeFAU/github-stars-crawler/internal/config"
	"github.com/JakeFAU/github-stars-crawler/internal/crawler"
	"github.com/JakeFAU/github-stars-crawler/internal/dedup"
	"github.com/JakeFAU/github-stars-crawler/internal/fetcher/github"
	"github.com/JakeFAU/github-stars-crawler/internal/logging"
	"github.com/JakeFAU/github-stars-crawler/internal/orchestrator"
	"github.com/JakeFAU/github-stars-crawler/internal/progress"
	"github.com/JakeFAU/github-stars-crawler/internal/progress/sinks"
	"github.com/JakeFAU/github-stars-crawler/internal/query"
	"github.com/JakeFAU/github-stars-crawler/internal/service"
	memorystore "github.com/JakeFAU/github-stars-crawler/internal/storage/memory"
	pgstore "github.com/JakeFAU/github-stars-crawler/internal/storage/postgres"
)

// App holds the long-lived services for one crawl process.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	hub      *progress.Hub
	state    *sinks.StateSink
	service  *service.CrawlService
	pgStore  *pgstore.RepoStore
	srv      *http.Server
}

// Build creates the application's dependencies from config. It fails fast if
// any critical service cannot be initialized.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	logger.Info("building application dependencies")

	a := &App{cfg: cfg, logger: logger}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector())
	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		return nil, fmt.Errorf("metrics init failed: %w", err)
	}
	a.state = sinks.NewStateSink()
	a.hub = progress.NewHub(
		progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		promSink,
		a.state,
	)

	store, err := a.setupStore(ctx)
	if err != nil {
		return nil, err
	}

	fetcher, err := a.setupFetcher()
	if err != nil {
		return nil, err
	}

	partitioner := query.NewPartitioner(cfg.Query.Languages, cfg.Query.StarRanges, cfg.Query.YearRanges)
	seen := dedup.NewSeenSet()

	orch := orchestrator.New(fetcher, partitioner, seen, orchestrator.Config{
		MaxConcurrency:  cfg.Crawl.MaxConcurrency,
		ChunkMultiplier: cfg.Crawl.ChunkMultiplier,
		RateLowWater:    cfg.Crawl.RateLowWater,
		Cooldown:        cfg.Crawl.Cooldown(),
	}, a.hub, logger)

	a.service = service.New(orch, store, system.Clock{}, a.hub, logger)

	if cfg.Server.Enabled {
		apiServer := api.NewServer(a.registry, a.state, logger)
		a.srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return a, nil
}

func (a *App) setupStore(ctx context.Context) (crawler.RepoStore, error) {
	switch a.cfg.Storage.Provider {
	case "postgres":
		a.logger.Info("connecting to postgres")
		store, err := pgstore.NewRepoStore(ctx, pgstore.StoreConfig{
			DSN:      a.cfg.DB.DSN,
			MaxConns: a.cfg.DB.MaxConns,
			MinConns: a.cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		a.pgStore = store
		return store, nil
	case "memory":
		a.logger.Info("using in-memory store; results are discarded on exit")
		return memorystore.NewRepoStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", a.cfg.Storage.Provider)
	}
}

func (a *App) setupFetcher() (crawler.PageFetcher, error) {
	if a.cfg.GitHub.Token == "" {
		return nil, errors.New("github.token is required (STARCRAWL_GITHUB_TOKEN)")
	}
	httpClient := &http.Client{Timeout: a.cfg.GitHub.Timeout()}
	return github.NewClient(github.Config{
		Token:          a.cfg.GitHub.Token,
		APIURL:         a.cfg.GitHub.APIURL,
		PageSize:       a.cfg.GitHub.PageSize,
		MaxRetries:     a.cfg.GitHub.MaxRetries,
		BackoffInitial: a.cfg.GitHub.BackoffInitial(),
		BackoffMax:     a.cfg.GitHub.BackoffMax(),
		RateLimitSleep: a.cfg.GitHub.RateLimitSleep(),
	}, httpClient, a.logger), nil
}

// Run executes one crawl, serving the ops endpoint alongside it when
// enabled, and blocks until the crawl finishes or a termination signal
// arrives. The returned error is non-nil when the run finalized as failed.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.srv != nil {
		go func() {
			a.logger.Info("ops server started", zap.String("addr", a.srv.Addr))
			if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("ops server error", zap.Error(err))
			}
		}()
	}

	result, runErr := a.service.Execute(ctx, a.cfg.Crawl.Target)
	a.logger.Info("run finished",
		zap.Int64("run_id", result.RunID),
		zap.String("status", string(result.Status)),
		zap.Int("total_repos", result.TotalRepos),
		zap.Duration("elapsed", result.Elapsed),
	)

	a.Close(context.Background())
	return runErr
}

// Close gracefully shuts down the application's services.
func (a *App) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.srv != nil {
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("ops server shutdown failed", zap.Error(err))
		}
	}
	if err := a.hub.Close(shutdownCtx); err != nil {
		a.logger.Warn("progress hub close failed", zap.Error(err))
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	_ = a.logger.Sync()
}
