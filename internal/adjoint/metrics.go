package adjoint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// adjointRunsTotal counts RunAdjointSimulation calls by thread role and result
	adjointRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adjointmc_adjoint_runs_total",
		Help: "Adjoint simulations started, by thread role and result",
	}, []string{"role", "result"})

	// adjointPrimariesTotal counts generated adjoint primaries by forward species
	adjointPrimariesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adjointmc_adjoint_primaries_total",
		Help: "Adjoint primaries generated, by forward particle",
	}, []string{"particle"})

	adjointTracksRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adjointmc_adjoint_tracks_recorded_total",
		Help: "Adjoint tracks that reached the external source and were recorded",
	})

	adjointTracksKilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adjointmc_adjoint_tracks_killed_total",
		Help: "Events whose adjoint tracks never reached the external source",
	})

	adjointLookupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adjointmc_adjoint_lookup_failures_total",
		Help: "Track records appended with an unresolved forward particle",
	})

	// adjointPrimaryWeight tracks the importance weight of generated primaries
	adjointPrimaryWeight = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "adjointmc_adjoint_primary_weight",
		Help:    "Importance weight of generated adjoint primaries",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	})
)
