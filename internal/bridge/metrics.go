package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cloudbox_bridge_queue_depth",
		Help: "Commands waiting for the storage worker",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudbox_bridge_commands_total",
		Help: "Commands executed by the storage worker",
	}, []string{"kind", "status"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cloudbox_bridge_command_duration_seconds",
		Help:    "Time spent executing a command on the remote connection",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})

	connectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cloudbox_bridge_connection_state",
		Help: "Remote connection state (0=not started, 1=connecting, 2=authorizing, 3=ready, 4=failed)",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudbox_bridge_events_total",
		Help: "File events handed to the broker (status: ok, error, dropped)",
	}, []string{"type", "status"})

	discardedReplies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cloudbox_bridge_discarded_replies_total",
		Help: "Results nobody was waiting for",
	})
)
