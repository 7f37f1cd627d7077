package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mssp-soc/portal-gateway/pkg/access"
	"github.com/mssp-soc/portal-gateway/pkg/metrics"
	"github.com/mssp-soc/portal-gateway/pkg/models"
	"github.com/mssp-soc/portal-gateway/pkg/postgres"
	"github.com/mssp-soc/portal-gateway/pkg/sla"
)

// snapshotWindowDays is the rolling window persisted by the periodic job
const snapshotWindowDays = 30

// SLAService computes SLA aggregates over incident timestamps. Results are
// always derived from the store; the optional Redis cache only short-cuts
// repeated identical queries and is never authoritative.
type SLAService struct {
	store    postgres.PortalStore
	cache    *redis.Client
	cacheTTL time.Duration
	targets  models.SLATargets
	now      func() time.Time
}

// NewSLAService creates an SLA service. cache may be nil to disable caching.
func NewSLAService(store postgres.PortalStore, cache *redis.Client, cacheTTL time.Duration, targets models.SLATargets) *SLAService {
	return &SLAService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		targets:  targets,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Current aggregates incidents published inside [from, to) into mean
// latencies and a compliance percentage for the actor's scope
func (s *SLAService) Current(ctx context.Context, actor access.Actor, tenantID *uuid.UUID, from, to time.Time) (*models.SLASummary, error) {
	scope, err := s.resolve(actor, tenantID, from, to, "sla_current")
	if err != nil {
		return nil, err
	}
	visible, err := s.scopeVisible(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !visible {
		return &models.SLASummary{}, nil
	}

	key := cacheKey("current", scope, from, to)
	var cached models.SLASummary
	if s.cacheGet(ctx, key, &cached) {
		metrics.SLAQueries.WithLabelValues("current", "hit").Inc()
		return &cached, nil
	}

	incidents, err := s.store.IncidentsInRange(ctx, scope, from, to)
	if err != nil {
		return nil, err
	}
	summary := sla.Aggregate(incidents, s.targets)
	s.cacheSet(ctx, key, summary)
	metrics.SLAQueries.WithLabelValues("current", s.cacheLabel()).Inc()
	return &summary, nil
}

// History returns one aggregate per UTC calendar day in [from, to), with
// empty days present as nil-metric points
func (s *SLAService) History(ctx context.Context, actor access.Actor, tenantID *uuid.UUID, from, to time.Time) ([]models.SLAPoint, error) {
	scope, err := s.resolve(actor, tenantID, from, to, "sla_history")
	if err != nil {
		return nil, err
	}
	visible, err := s.scopeVisible(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !visible {
		points := sla.DailyHistory(nil, from, to, s.targets)
		return points, nil
	}

	key := cacheKey("history", scope, from, to)
	var cached []models.SLAPoint
	if s.cacheGet(ctx, key, &cached) {
		metrics.SLAQueries.WithLabelValues("history", "hit").Inc()
		return cached, nil
	}

	incidents, err := s.store.IncidentsInRange(ctx, scope, from, to)
	if err != nil {
		return nil, err
	}
	points := sla.DailyHistory(incidents, from, to, s.targets)
	s.cacheSet(ctx, key, points)
	metrics.SLAQueries.WithLabelValues("history", s.cacheLabel()).Inc()
	return points, nil
}

// Targets returns the per-priority budgets in effect
func (s *SLAService) Targets() models.SLATargets {
	return s.targets
}

// LatestSnapshot returns the most recent persisted aggregate for one tenant
func (s *SLAService) LatestSnapshot(ctx context.Context, actor access.Actor, tenantID uuid.UUID) (*models.SLASnapshot, error) {
	if err := access.CheckTenantAccess(actor, tenantID); err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("sla_snapshot").Inc()
		return nil, err
	}
	return s.store.LatestSLASnapshot(ctx, tenantID)
}

// SnapshotAllTenants recomputes and persists the rolling 30-day aggregate
// for every active tenant. Run hourly by the scheduler; one failing tenant
// does not stop the rest.
func (s *SLAService) SnapshotAllTenants(ctx context.Context) error {
	tenants, err := s.store.ListTenants(ctx, true)
	if err != nil {
		return err
	}

	to := s.now()
	from := to.AddDate(0, 0, -snapshotWindowDays)
	var failed int
	for _, tenant := range tenants {
		incidents, err := s.store.IncidentsInRange(ctx, &tenant.ID, from, to)
		if err != nil {
			logrus.Errorf("SLA snapshot for tenant %s failed: %v", tenant.ShortName, err)
			failed++
			continue
		}
		summary := sla.Aggregate(incidents, s.targets)

		byPriority := map[models.Priority]int{}
		for _, inc := range incidents {
			byPriority[inc.Priority]++
		}

		snap := &models.SLASnapshot{
			ID:             uuid.New(),
			TenantID:       tenant.ID,
			PeriodStart:    from,
			PeriodEnd:      to,
			MTTAMinutes:    summary.MTTAMinutes,
			MTTRMinutes:    summary.MTTRMinutes,
			CompliancePct:  summary.CompliancePct,
			IncidentsTotal: summary.IncidentsTotal,
			ByPriority:     byPriority,
			CreatedAt:      s.now(),
		}
		if err := s.store.SaveSLASnapshot(ctx, snap); err != nil {
			logrus.Errorf("Saving SLA snapshot for tenant %s failed: %v", tenant.ShortName, err)
			failed++
		}
	}
	logrus.Infof("SLA snapshots computed for %d tenants (%d failed)", len(tenants)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("sla snapshots failed for %d of %d tenants", failed, len(tenants))
	}
	return nil
}

func (s *SLAService) resolve(actor access.Actor, tenantID *uuid.UUID, from, to time.Time, operation string) (*uuid.UUID, error) {
	if from.After(to) {
		return nil, models.ErrInvalidRange
	}
	scope, err := access.Scope(actor, tenantID)
	if err != nil {
		metrics.ForbiddenAttempts.WithLabelValues(operation).Inc()
		return nil, err
	}
	return scope, nil
}

// scopeVisible reports whether a tenant-scoped query may return data. A
// filter that names an unknown or deactivated tenant gets an empty result
// set rather than an error, so deactivation hides the tenant's incidents
// from SLA reads as well.
func (s *SLAService) scopeVisible(ctx context.Context, scope *uuid.UUID) (bool, error) {
	if scope == nil {
		return true, nil
	}
	tenant, err := s.store.GetTenant(ctx, *scope)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tenant.IsActive, nil
}

func cacheKey(kind string, tenantID *uuid.UUID, from, to time.Time) string {
	tenant := "all"
	if tenantID != nil {
		tenant = tenantID.String()
	}
	return fmt.Sprintf("sla:%s:%s:%d:%d", kind, tenant, from.Unix(), to.Unix())
}

func (s *SLAService) cacheLabel() string {
	if s.cache == nil {
		return "off"
	}
	return "miss"
}

// cacheGet loads a cached result. Any Redis error is treated as a miss so
// the cache can never take SLA queries down with it.
func (s *SLAService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.Warnf("SLA cache read failed: %v", err)
		}
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		logrus.Warnf("SLA cache entry %s is corrupt: %v", key, err)
		return false
	}
	return true
}

func (s *SLAService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		logrus.Warnf("SLA cache write failed: %v", err)
	}
}
