// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	swipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_swipes_total",
			Help: "Swipes processed, by direction",
		},
		[]string{"direction"},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_matches_created_total",
			Help: "Matches created",
		},
	)

	conflictsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_match_conflicts_recovered_total",
			Help: "Match creation races resolved by fetching the winning row",
		},
	)

	limitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_limit_rejections_total",
			Help: "Swipes rejected by the daily limit, by action",
		},
		[]string{"action"},
	)

	undosTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_undos_total",
			Help: "Undo attempts, by outcome",
		},
		[]string{"outcome"},
	)

	qualityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_quality_scores",
			Help:    "Distribution of computed match-quality scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

func RecordSwipe(direction string) { swipesTotal.WithLabelValues(direction).Inc() }

func RecordMatch() { matchesTotal.Inc() }

func RecordConflictRecovered() { conflictsRecovered.Inc() }

func RecordLimitRejection(action string) { limitRejections.WithLabelValues(action).Inc() }

func RecordUndo(outcome string) { undosTotal.WithLabelValues(outcome).Inc() }

func RecordQualityScore(score float64) { qualityScores.Observe(score) }
