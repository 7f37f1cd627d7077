package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a portal user role. SOC roles belong to the provider's staff and
// carry no tenant binding; client roles are always bound to one tenant.
type Role string

const (
	RoleSOCAdmin       Role = "soc_admin"
	RoleSOCAnalyst     Role = "soc_analyst"
	RoleClientAdmin    Role = "client_admin"
	RoleClientSecurity Role = "client_security"
	RoleClientAuditor  Role = "client_auditor"
	RoleClientReadOnly Role = "client_readonly"
)

// IsSOC reports whether the role belongs to SOC staff
func (r Role) IsSOC() bool {
	return r == RoleSOCAdmin || r == RoleSOCAnalyst
}

// Class maps the role onto the actor class used by the transition tables
func (r Role) Class() ActorClass {
	if r.IsSOC() {
		return ActorSOC
	}
	return ActorClient
}

// CanEditIncidents reports whether the role may change incident state.
// Auditor and read-only client roles can only view.
func (r Role) CanEditIncidents() bool {
	switch r {
	case RoleSOCAdmin, RoleSOCAnalyst, RoleClientAdmin, RoleClientSecurity:
		return true
	}
	return false
}

// User is a portal account. TenantID is nil for SOC staff.
type User struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     *uuid.UUID `json:"tenantId,omitempty"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
