package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mssp-soc/portal-gateway/pkg/access"
	"github.com/mssp-soc/portal-gateway/pkg/auth"
	"github.com/mssp-soc/portal-gateway/pkg/metrics"
	"github.com/mssp-soc/portal-gateway/pkg/models"
	"github.com/mssp-soc/portal-gateway/pkg/postgres"
)

// TenantService manages client organizations and their accounts. All write
// operations are SOC-only; clients see at most their own tenant record.
type TenantService struct {
	store postgres.PortalStore
	now   func() time.Time
}

// NewTenantService creates a tenant service
func NewTenantService(store postgres.PortalStore) *TenantService {
	return &TenantService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns one tenant after the tenant guard passes
func (s *TenantService) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Tenant, error) {
	if err := access.CheckTenantAccess(actor, id); err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("get_tenant").Inc()
		return nil, err
	}
	return s.store.GetTenant(ctx, id)
}

// List returns all tenants. SOC only.
func (s *TenantService) List(ctx context.Context, actor access.Actor, activeOnly bool) ([]models.Tenant, error) {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("list_tenants").Inc()
		return nil, models.ErrForbidden
	}
	return s.store.ListTenants(ctx, activeOnly)
}

// Create registers a new client organization. SOC only.
func (s *TenantService) Create(ctx context.Context, actor access.Actor, t *models.Tenant) (*models.Tenant, error) {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("create_tenant").Inc()
		return nil, models.ErrForbidden
	}
	now := s.now()
	t.ID = uuid.New()
	t.IsActive = true
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.store.CreateTenant(ctx, t); err != nil {
		return nil, err
	}
	logrus.Infof("Created tenant %s (%s)", t.Name, t.ShortName)
	return t, nil
}

// Update rewrites a tenant's attributes, including activation. Deactivation
// keeps all data but stops logins and dashboard visibility. SOC only.
func (s *TenantService) Update(ctx context.Context, actor access.Actor, t *models.Tenant) (*models.Tenant, error) {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("update_tenant").Inc()
		return nil, models.ErrForbidden
	}
	existing, err := s.store.GetTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	if err := s.store.UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	if existing.IsActive && !t.IsActive {
		logrus.Warnf("Tenant %s deactivated by %s", t.ShortName, actor.UserID)
	}
	return s.store.GetTenant(ctx, t.ID)
}

// CreateUserRequest describes a new portal account
type CreateUserRequest struct {
	TenantID *uuid.UUID  `json:"tenantId,omitempty"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

// CreateUser registers a portal account. SOC roles carry no tenant; client
// roles must name one. SOC only.
func (s *TenantService) CreateUser(ctx context.Context, actor access.Actor, req CreateUserRequest) (*models.User, error) {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("create_user").Inc()
		return nil, models.ErrForbidden
	}
	if req.Role.IsSOC() {
		req.TenantID = nil
	} else {
		if req.TenantID == nil {
			return nil, models.ErrForbidden
		}
		tenant, err := s.store.GetTenant(ctx, *req.TenantID)
		if err != nil {
			return nil, err
		}
		if !tenant.IsActive {
			return nil, ErrTenantInactive
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     req.TenantID,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	logrus.Infof("Created %s account %s", user.Role, user.Email)
	return user, nil
}

// ListUsers returns accounts visible to the actor: SOC sees any scope,
// clients only their own tenant's accounts
func (s *TenantService) ListUsers(ctx context.Context, actor access.Actor, tenantID *uuid.UUID) ([]models.User, error) {
	scope, err := access.Scope(actor, tenantID)
	if err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("list_users").Inc()
		return nil, err
	}
	return s.store.ListUsers(ctx, scope)
}

// Notifications returns a tenant's recent notifications
func (s *TenantService) Notifications(ctx context.Context, actor access.Actor, tenantID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if err := access.CheckTenantAccess(actor, tenantID); err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("list_notifications").Inc()
		return nil, err
	}
	return s.store.ListNotifications(ctx, tenantID, unreadOnly, limit)
}

// MarkNotificationRead flags one notification as read
func (s *TenantService) MarkNotificationRead(ctx context.Context, actor access.Actor, tenantID, id uuid.UUID) error {
	if err := access.CheckTenantAccess(actor, tenantID); err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("mark_notification").Inc()
		return err
	}
	return s.store.MarkNotificationRead(ctx, id, tenantID)
}
