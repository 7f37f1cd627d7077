package models

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the workflow status of a published incident
type Status string

const (
	StatusNew              Status = "new"
	StatusInProgress       Status = "in_progress"
	StatusAwaitingCustomer Status = "awaiting_customer"
	StatusAwaitingSOC      Status = "awaiting_soc"
	StatusResolved         Status = "resolved"
	StatusClosed           Status = "closed"
	StatusFalsePositive    Status = "false_positive"
)

// Statuses lists every valid incident status
var Statuses = []Status{
	StatusNew,
	StatusInProgress,
	StatusAwaitingCustomer,
	StatusAwaitingSOC,
	StatusResolved,
	StatusClosed,
	StatusFalsePositive,
}

// Valid reports whether s is a known incident status
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no actor has an outgoing edge from s
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusFalsePositive
}

// Priority represents the severity assigned by the SIEM at publish time.
// It is fixed once the incident is published.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priorities lists every valid incident priority
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// IOCIndicator is a single indicator of compromise attached to an incident
type IOCIndicator struct {
	Type    string `json:"type"`
	Value   string `json:"value"`
	Context string `json:"context,omitempty"`
}

// AffectedAsset is an asset annotated on an incident by a SOC analyst
type AffectedAsset struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	IP          string `json:"ip,omitempty"`
	Criticality string `json:"criticality,omitempty"`
}

// IncidentComment is one entry in an incident's append-only comment thread
type IncidentComment struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenantId"`
	IncidentID uuid.UUID `json:"incidentId"`
	UserID     uuid.UUID `json:"userId"`
	UserName   string    `json:"userName"`
	Text       string    `json:"text"`
	IsSOC      bool      `json:"isSoc"`
	CreatedAt  time.Time `json:"createdAt"`
}

// StatusChange is one entry in an incident's append-only status audit log
type StatusChange struct {
	ID         uuid.UUID `json:"id"`
	IncidentID uuid.UUID `json:"incidentId"`
	UserID     uuid.UUID `json:"userId"`
	UserName   string    `json:"userName,omitempty"`
	OldStatus  Status    `json:"oldStatus"`
	NewStatus  Status    `json:"newStatus"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Acknowledgment records the set-once client acknowledgment of an incident
type Acknowledgment struct {
	AcknowledgedAt time.Time `json:"acknowledgedAt"`
	ActorID        uuid.UUID `json:"actorId"`
	ActorName      string    `json:"actorName"`
}

// Incident is a security incident published from the SIEM to a single
// tenant. Fields in the SIEM block are copied once at publish time and never
// re-derived. Workflow state (status, acknowledgment, annotations, comments,
// history) is owned locally.
type Incident struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenantId"`

	// From SIEM, immutable after publish
	SIEMIncidentID  int64      `json:"siemIncidentId"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Priority        Priority   `json:"priority"`
	Category        string     `json:"category,omitempty"`
	MitreID         string     `json:"mitreId,omitempty"`
	SourceIPs       []string   `json:"sourceIps"`
	SourceHostnames []string   `json:"sourceHostnames"`
	Symptoms        []string   `json:"symptoms"`
	EventCount      int        `json:"eventCount"`
	SIEMCreatedAt   *time.Time `json:"siemCreatedAt,omitempty"`

	// SOC analyst owned
	Status          Status          `json:"status"`
	Recommendations string          `json:"recommendations,omitempty"`
	SOCActions      string          `json:"socActions,omitempty"`
	IOCIndicators   []IOCIndicator  `json:"iocIndicators"`
	AffectedAssets  []AffectedAsset `json:"affectedAssets"`

	// Client owned
	ClientResponse string `json:"clientResponse,omitempty"`

	// Tracking
	PublishedBy        uuid.UUID  `json:"publishedBy"`
	PublishedByName    string     `json:"publishedByName,omitempty"`
	PublishedAt        time.Time  `json:"publishedAt"`
	AcknowledgedAt     *time.Time `json:"acknowledgedAt,omitempty"`
	AcknowledgedBy     *uuid.UUID `json:"acknowledgedBy,omitempty"`
	AcknowledgedByName string     `json:"acknowledgedByName,omitempty"`
	ClosedBy           *uuid.UUID `json:"closedBy,omitempty"`
	ClosedByName       string     `json:"closedByName,omitempty"`
	ClosedAt           *time.Time `json:"closedAt,omitempty"`
	UpdatedAt          time.Time  `json:"updatedAt"`

	// Populated on detail fetches only
	Comments      []IncidentComment `json:"comments,omitempty"`
	StatusHistory []StatusChange    `json:"statusHistory,omitempty"`

	// Populated on list fetches only
	CommentsCount int `json:"commentsCount"`
}

// Acknowledged reports whether the client has acknowledged the incident
func (i *Incident) Acknowledged() bool {
	return i.AcknowledgedAt != nil
}

// IncidentFilter narrows incident list queries
type IncidentFilter struct {
	TenantID *uuid.UUID
	Status   Status
	Priority Priority
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// IncidentStats holds dashboard counts grouped by status and priority
type IncidentStats struct {
	Total      int              `json:"total"`
	Open       int              `json:"open"`
	ByPriority map[Priority]int `json:"byPriority"`
	ByStatus   map[Status]int   `json:"byStatus"`
}
