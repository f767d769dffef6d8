package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adjointmc_transport_events_total",
		Help: "Events processed, by thread role",
	}, []string{"role"})

	// tracksTotal counts finished tracks by final status
	tracksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adjointmc_transport_tracks_total",
		Help: "Tracks finished, by final status",
	}, []string{"status"})

	stepsPerTrack = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "adjointmc_transport_steps_per_track",
		Help:    "Number of steps per finished track",
		Buckets: prometheus.ExponentialBuckets(1, 2, 11),
	})

	beamOnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "adjointmc_transport_beam_on_duration_seconds",
		Help:    "Wall time of a BeamOn batch",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)
