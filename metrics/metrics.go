// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LiveConnections tracks currently open client connections.
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "msgboard",
		Name:      "live_connections",
		Help:      "Open client connections.",
	})

	// RejectedConnections counts connects refused at the capacity cap.
	RejectedConnections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "msgboard",
		Name:      "rejected_connections_total",
		Help:      "Connections refused because the server was at capacity.",
	})

	// Requests counts framed requests received, labelled by operation.
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "msgboard",
		Name:      "requests_total",
		Help:      "Framed requests received by operation name.",
	}, []string{"op"})
)
