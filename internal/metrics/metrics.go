// Package metrics holds the Prometheus instruments for the quiz pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submission path
	QuizSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Graded and persisted quiz submissions",
		},
		[]string{"passed"},
	)

	ZeroPointQuizzes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_zero_point_gradings_total",
			Help: "Submissions graded against a quiz worth zero points (data-quality defect)",
		},
	)

	// Publisher
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events accepted by the broker",
		},
		[]string{"topic"},
	)

	PublishRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_retries_total",
			Help: "Publish attempts that failed and were retried",
		},
		[]string{"topic"},
	)

	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_dead_letters_total",
			Help: "Events written to the dead-letter store after retry exhaustion",
		},
		[]string{"topic"},
	)

	// Consumer
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Events handled by the preference aggregator by outcome",
		},
		[]string{"topic", "outcome"}, // applied, duplicate, malformed, failed
	)

	CatalogLookupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_lookup_failures_total",
			Help: "Course lookups that exhausted retries; the category update was dropped",
		},
	)

	ProfileConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_update_conflicts_total",
			Help: "Optimistic-lock conflicts while saving a preference profile",
		},
	)

	// Recommendations
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time to load a profile and catalog snapshot and rank it",
			Buckets: prometheus.DefBuckets,
		},
	)

	ProfileCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_cache_lookups_total",
			Help: "Profile cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)
)
