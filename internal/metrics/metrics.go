// Package metrics exposes Prometheus instrumentation for the bot's
// periodic cycles and outbound notifications. Collectors are registered
// on the default registry and served by Handler; label cardinality is
// kept to the cycle name only.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CycleRuns counts completed scheduler ticks by cycle ("license"
	// or "certificate").
	CycleRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expirybot_cycle_runs_total",
			Help: "Total number of completed scheduler cycle runs.",
		},
		[]string{"cycle"},
	)

	// ProbesTotal counts certificate probes by outcome.
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expirybot_probes_total",
			Help: "Total number of TLS certificate probes.",
		},
		[]string{"outcome"}, // ok | error
	)

	// NotificationsSent counts successfully delivered notifications.
	NotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expirybot_notifications_sent_total",
			Help: "Total number of notifications delivered.",
		},
	)

	// NotificationsFailed counts notification deliveries that errored.
	NotificationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expirybot_notifications_failed_total",
			Help: "Total number of notification deliveries that failed.",
		},
	)
)

func init() {
	prometheus.MustRegister(CycleRuns, ProbesTotal, NotificationsSent, NotificationsFailed)
}

// Handler returns the exposition handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
