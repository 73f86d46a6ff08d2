package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики регистрируются в глобальном реестре, который отдает /metrics сервера.
var (
	sessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulation_sessions_started_total",
			Help: "Total number of simulation sessions started, partitioned by scenario.",
		},
		[]string{"scenario"},
	)
	sessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulation_sessions_completed_total",
			Help: "Total number of simulation sessions completed, partitioned by scenario.",
		},
		[]string{"scenario"},
	)
	actionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulation_actions_total",
			Help: "Total number of simulation actions, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
	versionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_session_version_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts on session writes.",
		},
	)
	overallScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simulation_overall_score",
			Help:    "Distribution of overall scores of completed simulations.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)
	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Total number of Paystack webhook events, partitioned by event and result.",
		},
		[]string{"event", "result"},
	)
	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of transactional emails, partitioned by kind and result.",
		},
		[]string{"kind", "result"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
