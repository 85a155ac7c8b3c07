// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Transitions counts dialog state transitions.
// Use RegisterMetrics to register this with a Prometheus registry.
var Transitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoclient_session_transitions_total",
		Help: "Total number of session dialog state transitions",
	},
	[]string{"from", "to"},
)

// EventsSent counts server-bound events by outcome.
var EventsSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoclient_events_sent_total",
		Help: "Total number of events sent to the server",
	},
	[]string{"event", "status"},
)

// EventsReceived counts server-pushed events handled by the session.
var EventsReceived = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoclient_events_received_total",
		Help: "Total number of events received from the server",
	},
	[]string{"event"},
)

// IdentityCalls counts identity provider calls by outcome.
var IdentityCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoclient_identity_calls_total",
		Help: "Total number of identity provider calls",
	},
	[]string{"operation", "status"},
)

// IdentityDuration observes identity provider latency.
var IdentityDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "holoclient_identity_call_duration_seconds",
		Help:    "Identity provider call duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// RegisterMetrics registers session metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Transitions)
	reg.MustRegister(EventsSent)
	reg.MustRegister(EventsReceived)
	reg.MustRegister(IdentityCalls)
	reg.MustRegister(IdentityDuration)
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

func recordIdentityCall(op string, err error, elapsed time.Duration) {
	IdentityCalls.WithLabelValues(op, statusOf(err)).Inc()
	IdentityDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}
