package h2

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "h2"

var (
	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_connections",
			Help:      "Connections currently running their read/write loops",
		},
	)

	activeStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_streams",
			Help:      "Streams registered on a connection and not yet removed, across all connections",
		},
	)

	framesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_read_total",
			Help:      "Frames read off the wire, by frame type",
		},
		[]string{"type"},
	)

	framesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_written_total",
			Help:      "Frames written to the wire, by frame type",
		},
		[]string{"type"},
	)

	streamsRefused = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "streams_refused_total",
			Help:      "Peer-initiated streams refused via RST_STREAM(REFUSED_STREAM)",
		},
	)

	streamsReset = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "streams_reset_total",
			Help:      "Established streams torn down mid-flight via RST_STREAM, by error code",
		},
		[]string{"code"},
	)

	connectionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_closed_total",
			Help:      "Connections closed, by the GOAWAY error code sent",
		},
		[]string{"code"},
	)
)
