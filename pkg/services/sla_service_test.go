package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mssp-soc/portal-gateway/pkg/models"
)

func newTestSLAService(store *MockStore) *SLAService {
	svc := NewSLAService(store, nil, time.Minute, models.DefaultSLATargets())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func ackedIncident(tenantID uuid.UUID, priority models.Priority, published time.Time, ackAfter, closeAfter time.Duration) models.Incident {
	inc := models.Incident{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Priority:    priority,
		Status:      models.StatusClosed,
		PublishedAt: published,
	}
	if ackAfter > 0 {
		acked := published.Add(ackAfter)
		inc.AcknowledgedAt = &acked
	}
	if closeAfter > 0 {
		closed := published.Add(closeAfter)
		inc.ClosedAt = &closed
	}
	return inc
}

func TestSLACurrentForClientScope(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)
	tenant := activeTenant()
	tenantID := tenant.ID
	from := fixedNow.AddDate(0, 0, -7)

	incidents := []models.Incident{
		ackedIncident(tenantID, models.PriorityHigh, from.Add(time.Hour), 10*time.Minute, 3*time.Hour),
		ackedIncident(tenantID, models.PriorityHigh, from.Add(2*time.Hour), 30*time.Minute, 0),
	}
	store.On("GetTenant", mock.Anything, tenantID).Return(tenant, nil)
	store.On("IncidentsInRange", mock.Anything, &tenantID, from, fixedNow).Return(incidents, nil)

	summary, err := svc.Current(context.Background(), clientActor(tenantID), nil, from, fixedNow)
	require.NoError(t, err)

	require.NotNil(t, summary.MTTAMinutes)
	assert.Equal(t, 20.0, *summary.MTTAMinutes)
	require.NotNil(t, summary.MTTRMinutes)
	assert.Equal(t, 180.0, *summary.MTTRMinutes)
	require.NotNil(t, summary.CompliancePct)
	assert.Equal(t, 100, *summary.CompliancePct)
	assert.Equal(t, 2, summary.IncidentsTotal)
}

func TestSLACurrentInvertedRange(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)

	_, err := svc.Current(context.Background(), socActor(), nil, fixedNow, fixedNow.Add(-time.Hour))
	assert.ErrorIs(t, err, models.ErrInvalidRange)
	store.AssertNotCalled(t, "IncidentsInRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSLACurrentCrossTenantForbidden(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)
	other := uuid.New()

	_, err := svc.Current(context.Background(), clientActor(uuid.New()), &other, fixedNow.Add(-time.Hour), fixedNow)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestSLACurrentEmptyPeriod(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)
	from := fixedNow.Add(-24 * time.Hour)

	store.On("IncidentsInRange", mock.Anything, (*uuid.UUID)(nil), from, fixedNow).Return([]models.Incident{}, nil)

	summary, err := svc.Current(context.Background(), socActor(), nil, from, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, summary.MTTAMinutes)
	assert.Nil(t, summary.MTTRMinutes)
	assert.Nil(t, summary.CompliancePct)
	assert.Equal(t, 0, summary.IncidentsTotal)
}

func TestSLAHistoryFillsEmptyDays(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)
	tenant := activeTenant()
	tenantID := tenant.ID
	from := time.Date(2025, 5, 29, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	incidents := []models.Incident{
		ackedIncident(tenantID, models.PriorityHigh, from.Add(9*time.Hour), 5*time.Minute, 0),
	}
	store.On("GetTenant", mock.Anything, tenantID).Return(tenant, nil)
	store.On("IncidentsInRange", mock.Anything, &tenantID, from, to).Return(incidents, nil)

	points, err := svc.History(context.Background(), clientActor(tenantID), nil, from, to)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "2025-05-29", points[0].Date)
	assert.NotNil(t, points[0].MTTAMinutes)
	assert.Equal(t, "2025-05-30", points[1].Date)
	assert.Nil(t, points[1].MTTAMinutes)
	assert.Equal(t, 0, points[1].IncidentsTotal)
	assert.Equal(t, "2025-05-31", points[2].Date)
}

func TestSLACurrentDeactivatedTenantReturnsEmpty(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)
	tenant := activeTenant()
	tenant.IsActive = false
	from := fixedNow.AddDate(0, 0, -7)

	store.On("GetTenant", mock.Anything, tenant.ID).Return(tenant, nil)

	summary, err := svc.Current(context.Background(), socActor(), &tenant.ID, from, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, summary.MTTAMinutes)
	assert.Nil(t, summary.MTTRMinutes)
	assert.Nil(t, summary.CompliancePct)
	assert.Equal(t, 0, summary.IncidentsTotal)
	store.AssertNotCalled(t, "IncidentsInRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSLACurrentUnknownTenantReturnsEmpty(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)
	unknown := uuid.New()
	from := fixedNow.AddDate(0, 0, -7)

	store.On("GetTenant", mock.Anything, unknown).Return(nil, models.ErrNotFound)

	summary, err := svc.Current(context.Background(), socActor(), &unknown, from, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.IncidentsTotal)
	store.AssertNotCalled(t, "IncidentsInRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSLAHistoryDeactivatedTenantHasOnlyEmptyDays(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)
	tenant := activeTenant()
	tenant.IsActive = false
	from := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	store.On("GetTenant", mock.Anything, tenant.ID).Return(tenant, nil)

	points, err := svc.History(context.Background(), socActor(), &tenant.ID, from, to)
	require.NoError(t, err)
	require.Len(t, points, 2)
	for _, point := range points {
		assert.Nil(t, point.MTTAMinutes)
		assert.Equal(t, 0, point.IncidentsTotal)
	}
	store.AssertNotCalled(t, "IncidentsInRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSnapshotAllTenants(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)
	tenantA := activeTenant()
	tenantB := activeTenant()
	from := fixedNow.AddDate(0, 0, -snapshotWindowDays)

	store.On("ListTenants", mock.Anything, true).Return([]models.Tenant{*tenantA, *tenantB}, nil)
	store.On("IncidentsInRange", mock.Anything, &tenantA.ID, from, fixedNow).Return([]models.Incident{
		ackedIncident(tenantA.ID, models.PriorityMedium, fixedNow.Add(-48*time.Hour), 20*time.Minute, 6*time.Hour),
	}, nil)
	store.On("IncidentsInRange", mock.Anything, &tenantB.ID, from, fixedNow).Return([]models.Incident{}, nil)
	store.On("SaveSLASnapshot", mock.Anything, mock.MatchedBy(func(s *models.SLASnapshot) bool {
		return s.TenantID == tenantA.ID && s.IncidentsTotal == 1 && s.MTTAMinutes != nil
	})).Return(nil).Once()
	store.On("SaveSLASnapshot", mock.Anything, mock.MatchedBy(func(s *models.SLASnapshot) bool {
		return s.TenantID == tenantB.ID && s.IncidentsTotal == 0 && s.MTTAMinutes == nil
	})).Return(nil).Once()

	err := svc.SnapshotAllTenants(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestLatestSnapshotGuarded(t *testing.T) {
	store := new(MockStore)
	svc := newTestSLAService(store)
	other := uuid.New()

	_, err := svc.LatestSnapshot(context.Background(), clientActor(uuid.New()), other)
	assert.ErrorIs(t, err, models.ErrForbidden)
	store.AssertNotCalled(t, "LatestSLASnapshot", mock.Anything, mock.Anything)
}
