// Package metrics exposes the counters served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LinesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmserver_lines_received_total",
		Help: "Lines received from the Envisalink.",
	})
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmserver_decode_errors_total",
		Help: "Malformed messages dropped by the codec.",
	})
	UnhandledCodes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmserver_unhandled_codes_total",
		Help: "Lines whose code has no configured handler.",
	})
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmserver_reconnects_total",
		Help: "Reconnect attempts to the Envisalink.",
	})
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarmserver_notifications_total",
		Help: "Notification events fanned out to subscribers.",
	}, []string{"event"})
	WebhookDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmserver_webhook_deliveries_total",
		Help: "Webhook payloads delivered successfully.",
	})
	WebhookFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmserver_webhook_failures_total",
		Help: "Webhook deliveries that failed and were dropped.",
	})
	WebhookSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmserver_webhook_suppressed_total",
		Help: "Webhook payloads suppressed as repeats.",
	})
	WebhookEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmserver_webhook_evictions_total",
		Help: "Oldest queue items evicted to make room for new ones.",
	})
)
