// Package metrics exposes Prometheus instrumentation for the portal core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsApplied counts successful status transitions by edge
	TransitionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_status_transitions_total",
			Help: "Successful incident status transitions",
		},
		[]string{"from", "to", "actor_class"},
	)

	// TransitionsRejected counts transition attempts rejected by the tables
	// or lost to concurrent updates
	TransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_status_transitions_rejected_total",
			Help: "Rejected incident status transitions",
		},
		[]string{"reason"},
	)

	// Acknowledgments counts incident acknowledgments; repeated no-ops are
	// labelled separately
	Acknowledgments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_incident_acknowledgments_total",
			Help: "Incident acknowledgments by clients",
		},
		[]string{"repeated"},
	)

	// SLAQueries counts SLA computations by kind and cache outcome
	SLAQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_sla_queries_total",
			Help: "SLA aggregate computations",
		},
		[]string{"kind", "cache"},
	)

	// ForbiddenAttempts counts tenant-scope violations; a spike usually
	// means probing or a misconfigured account
	ForbiddenAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_forbidden_attempts_total",
			Help: "Operations rejected by the tenant isolation guard",
		},
		[]string{"operation"},
	)

	// IncidentsPublished counts incidents published to tenants by priority
	IncidentsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_incidents_published_total",
			Help: "Incidents published to client tenants",
		},
		[]string{"priority"},
	)
)
