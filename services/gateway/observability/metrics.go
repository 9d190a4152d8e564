// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the gateway's
// relay operations. Metrics are exposed on /metrics; use with
// Prometheus + Grafana for dashboards and alerting.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "aleutian"
	gatewaySubsystem = "gateway"
)

// GatewayMetrics holds the Prometheus metrics for relay operations.
//
// # Fields
//
//   - RequestsTotal: Counter by endpoint (chat, image, csv), mode
//     (stream, atomic) and status (success, error).
//   - ChunksRelayedTotal: Counter of relayed fragments by endpoint.
//   - RelayDurationSeconds: Histogram of end-to-end relay duration.
//   - ActiveStreams: Gauge of in-flight SSE streams by endpoint.
//   - ErrorsTotal: Counter by endpoint and error kind (input, downstream,
//     partial_stream).
//
// # Thread Safety
//
// All operations are thread-safe via Prometheus's internal locking.
type GatewayMetrics struct {
	RequestsTotal        *prometheus.CounterVec
	ChunksRelayedTotal   *prometheus.CounterVec
	RelayDurationSeconds *prometheus.HistogramVec
	ActiveStreams        *prometheus.GaugeVec
	ErrorsTotal          *prometheus.CounterVec
}

// Error kind labels.
const (
	ErrorKindInput         = "input"
	ErrorKindDownstream    = "downstream"
	ErrorKindPartialStream = "partial_stream"
)

// NewGatewayMetrics registers the gateway metric set with reg.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	factory := promauto.With(reg)
	return &GatewayMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "requests_total",
			Help:      "Relay requests by endpoint, mode and status.",
		}, []string{"endpoint", "mode", "status"}),
		ChunksRelayedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "chunks_relayed_total",
			Help:      "Streamed fragments forwarded to clients.",
		}, []string{"endpoint"}),
		RelayDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "relay_duration_seconds",
			Help:      "End-to-end relay duration.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"endpoint", "status"}),
		ActiveStreams: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "active_streams",
			Help:      "Currently open SSE streams.",
		}, []string{"endpoint"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: gatewaySubsystem,
			Name:      "errors_total",
			Help:      "Relay errors by endpoint and kind.",
		}, []string{"endpoint", "kind"}),
	}
}
