package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mssp-soc/portal-gateway/pkg/access"
	"github.com/mssp-soc/portal-gateway/pkg/models"
	"github.com/mssp-soc/portal-gateway/pkg/postgres"
	"github.com/mssp-soc/portal-gateway/pkg/siem"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestIncidentService(store *MockStore, siemClient *MockSIEMClient) *IncidentService {
	svc := NewIncidentService(store, siemClient)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func socActor() access.Actor {
	return access.Actor{UserID: uuid.New(), Name: "Analyst", Role: models.RoleSOCAnalyst}
}

func clientActor(tenantID uuid.UUID) access.Actor {
	return access.Actor{UserID: uuid.New(), Name: "Client", Role: models.RoleClientSecurity, TenantID: &tenantID}
}

func activeTenant() *models.Tenant {
	return &models.Tenant{ID: uuid.New(), Name: "Acme Corp", ShortName: "acme", IsActive: true}
}

func testIncident(tenantID uuid.UUID, status models.Status) *models.Incident {
	return &models.Incident{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Title:       "Suspicious PowerShell execution",
		Priority:    models.PriorityHigh,
		Status:      status,
		PublishedAt: fixedNow.Add(-2 * time.Hour),
	}
}

func TestPublishIncident(t *testing.T) {
	store := new(MockStore)
	siemClient := new(MockSIEMClient)
	svc := newTestIncidentService(store, siemClient)
	tenant := activeTenant()
	actor := socActor()

	envelope := &siem.Envelope{
		SIEMIncidentID: 4711,
		Title:          "Beaconing to known C2",
		Priority:       models.PriorityCritical,
		SourceIPs:      []string{"10.0.0.5"},
		EventCount:     42,
	}

	store.On("GetTenant", mock.Anything, tenant.ID).Return(tenant, nil)
	store.On("IncidentPublished", mock.Anything, int64(4711), tenant.ID).Return(false, nil)
	siemClient.On("FetchIncident", mock.Anything, int64(4711)).Return(envelope, nil)
	store.On("CreateIncident", mock.Anything, mock.AnythingOfType("*models.Incident")).Return(nil)
	store.On("AddNotification", mock.Anything, mock.AnythingOfType("*models.Notification")).Return(nil)
	store.On("AddAuditEntry", mock.Anything, mock.AnythingOfType("*models.AuditEntry")).Return(nil)

	inc, err := svc.Publish(context.Background(), actor, PublishRequest{
		TenantID:        tenant.ID,
		SIEMIncidentID:  4711,
		Recommendations: "Isolate the host",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusNew, inc.Status)
	assert.Equal(t, tenant.ID, inc.TenantID)
	assert.Equal(t, int64(4711), inc.SIEMIncidentID)
	assert.Equal(t, models.PriorityCritical, inc.Priority)
	assert.Equal(t, "Isolate the host", inc.Recommendations)
	assert.Equal(t, actor.UserID, inc.PublishedBy)
	assert.Equal(t, fixedNow, inc.PublishedAt)
	store.AssertExpectations(t)
	siemClient.AssertExpectations(t)
}

func TestPublishDuplicateRejected(t *testing.T) {
	store := new(MockStore)
	siemClient := new(MockSIEMClient)
	svc := newTestIncidentService(store, siemClient)
	tenant := activeTenant()

	store.On("GetTenant", mock.Anything, tenant.ID).Return(tenant, nil)
	store.On("IncidentPublished", mock.Anything, int64(4711), tenant.ID).Return(true, nil)

	_, err := svc.Publish(context.Background(), socActor(), PublishRequest{
		TenantID:       tenant.ID,
		SIEMIncidentID: 4711,
	})
	assert.ErrorIs(t, err, models.ErrAlreadyPublished)
	store.AssertNotCalled(t, "CreateIncident", mock.Anything, mock.Anything)
}

func TestPublishToInactiveTenantRejected(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenant := activeTenant()
	tenant.IsActive = false

	store.On("GetTenant", mock.Anything, tenant.ID).Return(tenant, nil)

	_, err := svc.Publish(context.Background(), socActor(), PublishRequest{
		TenantID:       tenant.ID,
		SIEMIncidentID: 1,
	})
	assert.ErrorIs(t, err, ErrTenantInactive)
}

func TestPublishByClientForbidden(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()

	_, err := svc.Publish(context.Background(), clientActor(tenantID), PublishRequest{
		TenantID:       tenantID,
		SIEMIncidentID: 1,
	})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestChangeStatusLegalEdge(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()
	actor := clientActor(tenantID)
	inc := testIncident(tenantID, models.StatusNew)
	updated := testIncident(tenantID, models.StatusInProgress)
	updated.ID = inc.ID

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil).Once()
	store.On("ApplyStatusChange", mock.Anything, mock.MatchedBy(func(upd postgres.StatusUpdate) bool {
		return upd.From == models.StatusNew && upd.To == models.StatusInProgress && upd.ActorID == actor.UserID
	})).Return(&models.StatusChange{
		IncidentID: inc.ID,
		OldStatus:  models.StatusNew,
		NewStatus:  models.StatusInProgress,
	}, nil)
	store.On("AddNotification", mock.Anything, mock.Anything).Return(nil)
	store.On("AddAuditEntry", mock.Anything, mock.Anything).Return(nil)
	store.On("GetIncident", mock.Anything, inc.ID).Return(updated, nil)

	result, err := svc.ChangeStatus(context.Background(), actor, inc.ID, models.StatusInProgress, "taking a look")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, result.Status)
	store.AssertExpectations(t)
}

func TestChangeStatusIllegalEdgeForClient(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()
	inc := testIncident(tenantID, models.StatusInProgress)

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil)

	// Only SOC may mark an incident false positive
	_, err := svc.ChangeStatus(context.Background(), clientActor(tenantID), inc.ID, models.StatusFalsePositive, "")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	var transitionErr *models.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusInProgress, transitionErr.From)
	assert.ElementsMatch(t, []models.Status{models.StatusAwaitingSOC, models.StatusResolved}, transitionErr.Allowed)
	store.AssertNotCalled(t, "ApplyStatusChange", mock.Anything, mock.Anything)
}

func TestChangeStatusConcurrentConflict(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()
	inc := testIncident(tenantID, models.StatusNew)

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil)
	store.On("ApplyStatusChange", mock.Anything, mock.Anything).Return(nil, models.ErrConflict)

	_, err := svc.ChangeStatus(context.Background(), clientActor(tenantID), inc.ID, models.StatusInProgress, "")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestChangeStatusCrossTenantForbidden(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	inc := testIncident(uuid.New(), models.StatusNew)

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil)
	store.On("AddAuditEntry", mock.Anything, mock.MatchedBy(func(e *models.AuditEntry) bool {
		return e.Action == "incident.forbidden_access"
	})).Return(nil)

	_, err := svc.ChangeStatus(context.Background(), clientActor(uuid.New()), inc.ID, models.StatusInProgress, "")
	assert.ErrorIs(t, err, models.ErrForbidden)
	store.AssertNotCalled(t, "ApplyStatusChange", mock.Anything, mock.Anything)
}

func TestAcknowledgeSetOnce(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()
	actor := clientActor(tenantID)
	inc := testIncident(tenantID, models.StatusNew)
	ack := &models.Acknowledgment{AcknowledgedAt: fixedNow, ActorID: actor.UserID, ActorName: actor.Name}

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil)
	store.On("AcknowledgeIncident", mock.Anything, inc.ID, actor.UserID, fixedNow).Return(ack, true, nil)
	store.On("AddAuditEntry", mock.Anything, mock.Anything).Return(nil)

	got, err := svc.Acknowledge(context.Background(), actor, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, ack, got)
}

func TestAcknowledgeRepeatIsNoOp(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()
	actor := clientActor(tenantID)

	originalActor := uuid.New()
	firstAck := fixedNow.Add(-time.Hour)
	inc := testIncident(tenantID, models.StatusInProgress)
	inc.AcknowledgedAt = &firstAck
	inc.AcknowledgedBy = &originalActor
	ack := &models.Acknowledgment{AcknowledgedAt: firstAck, ActorID: originalActor, ActorName: "First User"}

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil)
	store.On("AcknowledgeIncident", mock.Anything, inc.ID, actor.UserID, fixedNow).Return(ack, false, nil)

	got, err := svc.Acknowledge(context.Background(), actor, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, originalActor, got.ActorID)
	assert.Equal(t, firstAck, got.AcknowledgedAt)
	store.AssertNotCalled(t, "AddAuditEntry", mock.Anything, mock.Anything)
}

func TestAcknowledgeBySOCForbidden(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	inc := testIncident(uuid.New(), models.StatusNew)

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil)

	_, err := svc.Acknowledge(context.Background(), socActor(), inc.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestAcknowledgeTerminalUnacknowledged(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()
	inc := testIncident(tenantID, models.StatusFalsePositive)

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil)

	_, err := svc.Acknowledge(context.Background(), clientActor(tenantID), inc.ID)
	assert.ErrorIs(t, err, models.ErrIncidentTerminal)
	store.AssertNotCalled(t, "AcknowledgeIncident", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddCommentMarksOrigin(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()
	inc := testIncident(tenantID, models.StatusInProgress)

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil)
	store.On("AppendComment", mock.Anything, mock.MatchedBy(func(c *models.IncidentComment) bool {
		return c.IsSOC && c.IncidentID == inc.ID && c.TenantID == tenantID
	})).Return(nil)
	store.On("AddNotification", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Type == models.NotifySOCComment
	})).Return(nil)

	comment, err := svc.AddComment(context.Background(), socActor(), inc.ID, "Checked the host, looks contained")
	require.NoError(t, err)
	assert.True(t, comment.IsSOC)
	store.AssertExpectations(t)
}

func TestListPinsClientToOwnTenant(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()

	store.On("ListIncidents", mock.Anything, mock.MatchedBy(func(f models.IncidentFilter) bool {
		return f.TenantID != nil && *f.TenantID == tenantID
	})).Return([]models.Incident{}, 0, nil)

	_, _, err := svc.List(context.Background(), clientActor(tenantID), models.IncidentFilter{})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestListCrossTenantFilterForbidden(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	other := uuid.New()

	_, _, err := svc.List(context.Background(), clientActor(uuid.New()), models.IncidentFilter{TenantID: &other})
	assert.ErrorIs(t, err, models.ErrForbidden)
	store.AssertNotCalled(t, "ListIncidents", mock.Anything, mock.Anything)
}

func TestRemoveIOCNegativeIndex(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	inc := testIncident(uuid.New(), models.StatusInProgress)

	store.On("GetIncident", mock.Anything, inc.ID).Return(inc, nil)

	_, err := svc.RemoveIOC(context.Background(), socActor(), inc.ID, -1)
	assert.ErrorIs(t, err, models.ErrInvalidIndex)
	store.AssertNotCalled(t, "RemoveIOC", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	_, err = svc.RemoveAsset(context.Background(), socActor(), inc.ID, -3)
	assert.ErrorIs(t, err, models.ErrInvalidIndex)
	store.AssertNotCalled(t, "RemoveAsset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddIOCByClientForbidden(t *testing.T) {
	store := new(MockStore)
	svc := newTestIncidentService(store, new(MockSIEMClient))
	tenantID := uuid.New()

	_, err := svc.AddIOC(context.Background(), clientActor(tenantID), uuid.New(), models.IOCIndicator{Type: "ip", Value: "10.0.0.9"})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestPublishSIEMFetchFailure(t *testing.T) {
	store := new(MockStore)
	siemClient := new(MockSIEMClient)
	svc := newTestIncidentService(store, siemClient)
	tenant := activeTenant()

	store.On("GetTenant", mock.Anything, tenant.ID).Return(tenant, nil)
	store.On("IncidentPublished", mock.Anything, int64(7), tenant.ID).Return(false, nil)
	siemClient.On("FetchIncident", mock.Anything, int64(7)).Return(nil, errors.New("siem unreachable"))

	_, err := svc.Publish(context.Background(), socActor(), PublishRequest{TenantID: tenant.ID, SIEMIncidentID: 7})
	assert.Error(t, err)
	store.AssertNotCalled(t, "CreateIncident", mock.Anything, mock.Anything)
}
