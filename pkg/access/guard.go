// Package access enforces tenant isolation. The guard is a stateless
// predicate evaluated on every operation; nothing here is cached, because a
// user's tenant binding can change between requests.
package access

import (
	"github.com/google/uuid"

	"github.com/mssp-soc/portal-gateway/pkg/models"
)

// Actor describes the caller of an operation. TenantID is always set for
// client actors and nil for SOC staff (who may optionally select a tenant
// per request instead).
type Actor struct {
	UserID   uuid.UUID
	Name     string
	Role     models.Role
	TenantID *uuid.UUID
}

// IsSOC reports whether the actor is SOC staff
func (a Actor) IsSOC() bool {
	return a.Role.IsSOC()
}

// Class returns the actor class used by the transition tables
func (a Actor) Class() models.ActorClass {
	return a.Role.Class()
}

// CheckTenantAccess decides whether the actor may operate on an entity owned
// by targetTenant. SOC staff pass for any tenant; client actors pass only
// for their own. Violations come back as ErrForbidden so the server side can
// log probing attempts; the API boundary decides how to present them.
func CheckTenantAccess(actor Actor, targetTenant uuid.UUID) error {
	if actor.IsSOC() {
		return nil
	}
	if actor.TenantID != nil && *actor.TenantID == targetTenant {
		return nil
	}
	return models.ErrForbidden
}

// Scope resolves the tenant filter for a query-shaped operation. SOC actors
// get the requested tenant, or nil meaning all tenants. Client actors are
// always pinned to their own tenant; requesting any other is Forbidden, and
// a client without a binding has no scope at all.
func Scope(actor Actor, requested *uuid.UUID) (*uuid.UUID, error) {
	if actor.IsSOC() {
		return requested, nil
	}
	if actor.TenantID == nil {
		return nil, models.ErrForbidden
	}
	if requested != nil && *requested != *actor.TenantID {
		return nil, models.ErrForbidden
	}
	return actor.TenantID, nil
}
