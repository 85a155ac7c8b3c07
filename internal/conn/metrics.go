// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package conn

import "github.com/prometheus/client_golang/prometheus"

// ConnectionTransitions counts connected/disconnected transitions.
// Use RegisterMetrics to register this with a Prometheus registry.
var ConnectionTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoclient_connection_transitions_total",
		Help: "Total number of connection state transitions",
	},
	[]string{"state"},
)

// DialAttempts counts dial attempts by outcome.
var DialAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoclient_dial_attempts_total",
		Help: "Total number of server dial attempts by status",
	},
	[]string{"status"},
)

// RegisterMetrics registers connection metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ConnectionTransitions)
	reg.MustRegister(DialAttempts)
}
