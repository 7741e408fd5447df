package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/github-stars-crawler/internal/progress"
)

// PrometheusSink exports crawl progress metrics. It owns all collectors for
// runs, chunks, fresh repositories, abandoned queries, and rate-limit pauses.
type PrometheusSink struct {
	runsStarted      prometheus.Counter
	runsCompleted    *prometheus.CounterVec
	runRuntime       *prometheus.HistogramVec
	chunksCompleted  prometheus.Counter
	freshRepos       prometheus.Counter
	reposSeen        prometheus.Gauge
	queriesAbandoned prometheus.Counter
	ratePauses       prometheus.Counter
	ratePauseSeconds prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "starcrawl_runs_started_total",
			Help: "Total crawl runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "starcrawl_runs_completed_total",
			Help: "Total crawl runs completed partitioned by result.",
		}, []string{"result"}),
		runRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "starcrawl_run_runtime_seconds",
			Help:    "Wall time per completed crawl run.",
			Buckets: []float64{30, 60, 300, 900, 1800, 3600, 7200, 14400},
		}, []string{"result"}),
		chunksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "starcrawl_chunks_completed_total",
			Help: "Total query chunks fully processed.",
		}),
		freshRepos: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "starcrawl_fresh_repos_total",
			Help: "Total unique repositories yielded downstream.",
		}),
		reposSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "starcrawl_repos_seen",
			Help: "Running count of unique repositories seen this run.",
		}),
		queriesAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "starcrawl_queries_abandoned_total",
			Help: "Queries abandoned after the fetch retry budget was exhausted.",
		}),
		ratePauses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "starcrawl_rate_pauses_total",
			Help: "Cooldown pauses taken because the remaining quota fell below the low-water mark.",
		}),
		ratePauseSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "starcrawl_rate_pause_seconds_total",
			Help: "Total seconds spent in rate-limit cooldown pauses.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runRuntime,
		s.chunksCompleted,
		s.freshRepos,
		s.reposSeen,
		s.queriesAbandoned,
		s.ratePauses,
		s.ratePauseSeconds,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the provided batch. Safe for concurrent
// use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		s.reposSeen.Set(0)
	case progress.StageRunDone:
		s.runsCompleted.WithLabelValues("success").Inc()
		s.runRuntime.WithLabelValues("success").Observe(evt.Dur.Seconds())
	case progress.StageRunError:
		s.runsCompleted.WithLabelValues("failed").Inc()
		s.runRuntime.WithLabelValues("failed").Observe(evt.Dur.Seconds())
	case progress.StageChunkDone:
		s.chunksCompleted.Inc()
		s.freshRepos.Add(float64(evt.Fresh))
		s.reposSeen.Set(float64(evt.Seen))
	case progress.StageQueryAbandoned:
		s.queriesAbandoned.Inc()
	case progress.StageRatePause:
		s.ratePauses.Inc()
		s.ratePauseSeconds.Add(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
