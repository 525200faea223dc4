package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Poll loop metrics
	PollCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_poll_cycles_total",
			Help: "Total poll cycles",
		},
		[]string{"result"}, // "ok" or "error"
	)

	MessagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_messages_persisted_total",
			Help: "Total messages persisted from the foreign log",
		},
		[]string{"direction"}, // "inbound" or "outbound"
	)

	// Broadcast metrics
	EventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_events_broadcast_total",
			Help: "Total events fanned out to subscribers",
		},
		[]string{"type"},
	)

	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_connected_clients",
			Help: "Currently connected streaming subscribers",
		},
	)

	// Send metrics
	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_sends_total",
			Help: "Total outbound send requests",
		},
		[]string{"result"}, // "ok" or "failed"
	)

	SendRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_send_retries_total",
			Help: "Total send retry attempts after a failure",
		},
	)
)
