package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of orders submitted by buyers",
	})

	OrdersModeratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_moderated_total",
		Help: "Total number of moderation decisions",
	}, []string{"decision"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order submissions",
	}, []string{"reason"})

	UpdatesHandledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_updates_handled_total",
		Help: "Total number of inbound chat events handled",
	}, []string{"kind"})

	SessionsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_sessions_started_total",
		Help: "Total number of conversation flows started",
	}, []string{"flow"})

	SessionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_sessions_expired_total",
		Help: "Total number of idle conversation sessions evicted",
	})

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Total number of failed outbound notifications",
	}, []string{"kind"})

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_errors_total",
		Help: "Total number of record store failures",
	}, []string{"collection", "op"})

	DispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bot_dispatch_latency_seconds",
		Help:    "Latency of handling one inbound chat event",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests on the ops surface",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests on the ops surface",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
