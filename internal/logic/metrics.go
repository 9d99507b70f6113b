package logic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dowstats_reports_ingested_total",
		Help: "Telemetry reports processed by outcome",
	}, []string{"outcome"})

	matchesConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dowstats_matches_confirmed_total",
		Help: "Games rows transitioned to confirmed",
	})

	degradedSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dowstats_degraded_steps_total",
		Help: "Non-critical ingest steps that failed",
	}, []string{"step"})

	ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dowstats_ingest_duration_seconds",
		Help:    "Duration of report reconciliation",
		Buckets: prometheus.DefBuckets,
	})

	ladderCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dowstats_ladder_cache_total",
		Help: "Ladder page cache lookups by result",
	}, []string{"result"})
)
