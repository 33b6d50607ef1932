// Package metrics exposes the hub's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppns_notifications_ingested_total",
		Help: "Total notifications accepted by DeliveryCoordinator.SaveAndMaybePush.",
	})

	PushesAttempted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppns_pushes_attempted_total",
		Help: "Total push attempts made by PushDispatcher, by result.",
	}, []string{"result"})

	RetryExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppns_retry_exhausted_total",
		Help: "Total notifications transitioned to FAILED by retry-window exhaustion.",
	})

	CallbackValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppns_callback_validations_total",
		Help: "Total callback URL validations, by result.",
	}, []string{"result"})

	PushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ppns_push_duration_seconds",
		Help:    "Duration of a single PushDispatcher.Push call, including gateway round-trip.",
		Buckets: prometheus.DefBuckets,
	})
)
