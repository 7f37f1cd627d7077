package models

import (
	"time"

	"github.com/google/uuid"
)

// SLATarget is the acknowledgment and resolution time budget for one
// priority, in whole minutes.
type SLATarget struct {
	AckMinutes     int64 `json:"ackMinutes"`
	ResolveMinutes int64 `json:"resolveMinutes"`
}

// SLATargets maps priority to its time budgets. Loaded once at process start
// from configuration; not editable at runtime.
type SLATargets map[Priority]SLATarget

// For returns the target for a priority, falling back to the low-priority
// budget when the priority is unknown.
func (t SLATargets) For(p Priority) SLATarget {
	if target, ok := t[p]; ok {
		return target
	}
	return t[PriorityLow]
}

// DefaultSLATargets mirrors the budgets shipped with the portal. Resolution
// budgets follow the standard service tiers (4h / 1d / 3d / 7d).
func DefaultSLATargets() SLATargets {
	return SLATargets{
		PriorityCritical: {AckMinutes: 15, ResolveMinutes: 240},
		PriorityHigh:     {AckMinutes: 60, ResolveMinutes: 1440},
		PriorityMedium:   {AckMinutes: 240, ResolveMinutes: 4320},
		PriorityLow:      {AckMinutes: 480, ResolveMinutes: 10080},
	}
}

// SLASummary is an aggregate over a set of incidents. Nil fields mean
// "undefined for this period", never zero.
type SLASummary struct {
	MTTAMinutes    *float64 `json:"mttaMinutes"`
	MTTRMinutes    *float64 `json:"mttrMinutes"`
	CompliancePct  *int     `json:"compliancePct"`
	IncidentsTotal int      `json:"incidentsTotal"`
}

// SLAPoint is one calendar day of an SLA time series
type SLAPoint struct {
	Date string `json:"date"`
	SLASummary
}

// SLASnapshot is a periodically persisted SLA aggregate. Snapshots are a
// derived cache for trend charts; live queries always recompute from
// incident timestamps.
type SLASnapshot struct {
	ID             uuid.UUID        `json:"id"`
	TenantID       uuid.UUID        `json:"tenantId"`
	PeriodStart    time.Time        `json:"periodStart"`
	PeriodEnd      time.Time        `json:"periodEnd"`
	MTTAMinutes    *float64         `json:"mttaMinutes"`
	MTTRMinutes    *float64         `json:"mttrMinutes"`
	CompliancePct  *int             `json:"compliancePct"`
	IncidentsTotal int              `json:"incidentsTotal"`
	ByPriority     map[Priority]int `json:"byPriority,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}
