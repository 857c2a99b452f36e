package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var EventsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_events_evaluated_total",
	Help: "Number of gateway events run through the detector",
}, []string{"type"})

var EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_events_skipped_total",
	Help: "Number of events skipped before detection",
}, []string{"reason"})

var Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_decisions_total",
	Help: "Number of decisions produced by the detector",
}, []string{"rule", "action"})

var EvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "automod_evaluation_duration_seconds",
	Help:    "Time spent evaluating one event",
	Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
}, []string{"type"})

var ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_actions_executed_total",
	Help: "Number of enforcement actions carried out",
}, []string{"action"})

var ActionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_action_failures_total",
	Help: "Number of enforcement platform calls that failed",
}, []string{"action", "step"})

var ActionsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_actions_dropped_total",
	Help: "Number of actions dropped because the executor queue was full",
})

var TrackedWindows = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "automod_tracked_windows",
	Help: "Number of window keys held by the detector",
}, []string{"scope"})
