package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts Stripe webhook requests by event type and HTTP status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subgate",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "subgate",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// WebhookOutcomesTotal counts acknowledged deliveries by outcome.
	WebhookOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subgate",
		Subsystem: "billing",
		Name:      "webhook_outcomes_total",
		Help:      "Acknowledged webhook deliveries by event type and outcome.",
	}, []string{"event_type", "outcome"})

	// TransitionsTotal counts reconciliation transitions by action and result.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subgate",
		Subsystem: "billing",
		Name:      "transitions_total",
		Help:      "Subscriber state transitions by action and result.",
	}, []string{"action", "result"})

	// AccessDecisionsTotal counts gate decisions by reason.
	AccessDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subgate",
		Subsystem: "gate",
		Name:      "decisions_total",
		Help:      "Access gate decisions by reason.",
	}, []string{"reason"})
)
