package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a client organization whose incidents, log sources and users are
// isolated from every other tenant. Deactivation keeps all data but blocks
// logins and dashboard visibility.
type Tenant struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ShortName    string    `json:"shortName"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	ContactPhone string    `json:"contactPhone,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SourceStatus classifies log source health from event recency
type SourceStatus string

const (
	SourceActive   SourceStatus = "active"
	SourceDegraded SourceStatus = "degraded"
	SourceNoLogs   SourceStatus = "no_logs"
	SourceError    SourceStatus = "error"
	SourceUnknown  SourceStatus = "unknown"
)

// LogSource is one log feed monitored for a tenant
type LogSource struct {
	ID          uuid.UUID    `json:"id"`
	TenantID    uuid.UUID    `json:"tenantId"`
	Name        string       `json:"name"`
	SourceType  string       `json:"sourceType"`
	Host        string       `json:"host"`
	Vendor      string       `json:"vendor,omitempty"`
	Product     string       `json:"product,omitempty"`
	Status      SourceStatus `json:"status"`
	LastEventAt *time.Time   `json:"lastEventAt,omitempty"`
	EPS         *float64     `json:"eps,omitempty"`
	IsActive    bool         `json:"isActive"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// SourceStats summarizes log source health for a dashboard widget
type SourceStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Degraded int `json:"degraded"`
	NoLogs   int `json:"noLogs"`
	Error    int `json:"error"`
	Unknown  int `json:"unknown"`
}

// Notification is an in-app notification row for a tenant's users.
// Delivery channels (email etc.) are handled outside this service.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenantId"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	IsRead    bool       `json:"isRead"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Notification types
const (
	NotifyNewIncident   = "new_incident"
	NotifyStatusChange  = "status_change"
	NotifySOCComment    = "soc_comment"
	NotifyClientComment = "client_comment"
)

// AuditEntry records a security-relevant action for compliance review
type AuditEntry struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     *uuid.UUID `json:"tenantId,omitempty"`
	UserID       *uuid.UUID `json:"userId,omitempty"`
	Action       string     `json:"action"`
	ResourceType string     `json:"resourceType,omitempty"`
	ResourceID   string     `json:"resourceId,omitempty"`
	Details      string     `json:"details,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
