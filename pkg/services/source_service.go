package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mssp-soc/portal-gateway/pkg/access"
	"github.com/mssp-soc/portal-gateway/pkg/metrics"
	"github.com/mssp-soc/portal-gateway/pkg/models"
	"github.com/mssp-soc/portal-gateway/pkg/postgres"
)

// SourceService manages tenant log source visibility. Health status is
// derived from event recency by a periodic job; clients only read.
type SourceService struct {
	store postgres.PortalStore
	now   func() time.Time
}

// NewSourceService creates a log source service
func NewSourceService(store postgres.PortalStore) *SourceService {
	return &SourceService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List returns a tenant's active log sources after the tenant guard passes
func (s *SourceService) List(ctx context.Context, actor access.Actor, tenantID uuid.UUID, f postgres.SourceFilter) ([]models.LogSource, error) {
	if err := access.CheckTenantAccess(actor, tenantID); err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("list_sources").Inc()
		return nil, err
	}
	return s.store.ListLogSources(ctx, tenantID, f)
}

// Stats summarizes a tenant's source health for the dashboard
func (s *SourceService) Stats(ctx context.Context, actor access.Actor, tenantID uuid.UUID) (*models.SourceStats, error) {
	if err := access.CheckTenantAccess(actor, tenantID); err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("source_stats").Inc()
		return nil, err
	}
	return s.store.SourceStats(ctx, tenantID)
}

// Create registers a log source for a tenant. SOC only.
func (s *SourceService) Create(ctx context.Context, actor access.Actor, src *models.LogSource) (*models.LogSource, error) {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("create_source").Inc()
		return nil, models.ErrForbidden
	}
	tenant, err := s.store.GetTenant(ctx, src.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, ErrTenantInactive
	}

	now := s.now()
	src.ID = uuid.New()
	src.IsActive = true
	if src.Status == "" {
		src.Status = models.SourceUnknown
	}
	src.CreatedAt = now
	src.UpdatedAt = now
	if err := s.store.CreateLogSource(ctx, src); err != nil {
		return nil, err
	}
	logrus.Infof("Registered log source %s (%s) for tenant %s", src.Name, src.SourceType, tenant.ShortName)
	return src, nil
}

// Update rewrites a log source's attributes. SOC only.
func (s *SourceService) Update(ctx context.Context, actor access.Actor, src *models.LogSource) (*models.LogSource, error) {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("update_source").Inc()
		return nil, models.ErrForbidden
	}
	existing, err := s.store.GetLogSource(ctx, src.ID)
	if err != nil {
		return nil, err
	}
	src.TenantID = existing.TenantID
	src.UpdatedAt = s.now()
	if err := s.store.UpdateLogSource(ctx, src); err != nil {
		return nil, err
	}
	return s.store.GetLogSource(ctx, src.ID)
}

// Deactivate hides a log source without deleting its history. SOC only.
func (s *SourceService) Deactivate(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("deactivate_source").Inc()
		return models.ErrForbidden
	}
	return s.store.DeactivateLogSource(ctx, id, s.now())
}

// RefreshStatuses reclassifies every active source from event recency. Run
// by the scheduler every few minutes.
func (s *SourceService) RefreshStatuses(ctx context.Context) error {
	updated, err := s.store.ReclassifySourceStatuses(ctx, s.now())
	if err != nil {
		logrus.Errorf("Log source status refresh failed: %v", err)
		return err
	}
	logrus.Debugf("Log source status refresh touched %d sources", updated)
	return nil
}
