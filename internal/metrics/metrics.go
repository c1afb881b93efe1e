package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbound webhook metrics
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_relay_webhooks_total",
			Help: "Total number of inbound MCP webhooks by outcome",
		},
		[]string{"outcome"},
	)

	// Delivery metrics
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_relay_delivery_attempts_total",
			Help: "Total number of outbound delivery attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mcp_relay_delivery_duration_seconds",
			Help:    "Duration of a single outbound delivery attempt in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_relay_deliveries_total",
			Help: "Total number of relayed events by final status",
		},
		[]string{"status"},
	)

	DeliveriesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mcp_relay_deliveries_in_flight",
			Help: "Number of events currently being rendered or delivered",
		},
	)

	// Session metrics
	SessionConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mcp_relay_slack_session_connected",
			Help: "1 when the Slack Socket Mode session is authenticated, 0 otherwise",
		},
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_relay_slack_session_transitions_total",
			Help: "Total number of Slack session lifecycle transitions by state",
		},
		[]string{"state"},
	)
)
