// Package metrics defines and registers all custom Prometheus metrics for the
// YaMDb API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "yamdb"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// SignupsTotal counts signup outcomes.
// Label:
//   - result: "created", "resent", "rejected", "throttled" or "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup requests, by result.",
	},
	[]string{"result"},
)

// TokensTotal counts token exchange outcomes.
// Label:
//   - result: "issued" or "rejected"
var TokensTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_total",
		Help:      "Total number of confirmation code exchanges, by result.",
	},
	[]string{"result"},
)

// PermissionDenialsTotal counts requests refused by the permission evaluator.
// Labels:
//   - kind: resource family (e.g. "title", "review", "user")
//   - status: "401" or "403"
var PermissionDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_denials_total",
		Help:      "Total number of requests denied by the permission evaluator.",
	},
	[]string{"kind", "status"},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// EmailsSentTotal counts outbound email attempts.
// Labels:
//   - backend: "smtp" or "console"
//   - result: "sent" or "failed"
var EmailsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Total number of outbound emails, by backend and result.",
	},
	[]string{"backend", "result"},
)

// ── Rating metrics ────────────────────────────────────────────────────────────

// RatingQueueDepth tracks the number of rating refreshes waiting per worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var RatingQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rating_queue_depth",
		Help:      "Current number of rating refreshes pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// RatingRefreshDuration measures one rating recalculation.
// Label:
//   - result: "ok" or "error"
var RatingRefreshDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rating_refresh_duration_seconds",
		Help:      "Duration of a title rating recalculation.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
