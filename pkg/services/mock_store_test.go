package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mssp-soc/portal-gateway/pkg/models"
	"github.com/mssp-soc/portal-gateway/pkg/postgres"
	"github.com/mssp-soc/portal-gateway/pkg/siem"
)

// MockStore is a mock implementation of the PortalStore interface
type MockStore struct {
	mock.Mock
}

// Ensure MockStore implements PortalStore
var _ postgres.PortalStore = (*MockStore)(nil)

func (m *MockStore) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	args := m.Called(ctx, id)
	if inc := args.Get(0); inc != nil {
		return inc.(*models.Incident), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetIncidentDetail(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	args := m.Called(ctx, id)
	if inc := args.Get(0); inc != nil {
		return inc.(*models.Incident), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListIncidents(ctx context.Context, f models.IncidentFilter) ([]models.Incident, int, error) {
	args := m.Called(ctx, f)
	if incs := args.Get(0); incs != nil {
		return incs.([]models.Incident), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *MockStore) IncidentPublished(ctx context.Context, siemIncidentID int64, tenantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, siemIncidentID, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CreateIncident(ctx context.Context, inc *models.Incident) error {
	args := m.Called(ctx, inc)
	return args.Error(0)
}

func (m *MockStore) ApplyStatusChange(ctx context.Context, upd postgres.StatusUpdate) (*models.StatusChange, error) {
	args := m.Called(ctx, upd)
	if change := args.Get(0); change != nil {
		return change.(*models.StatusChange), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) AcknowledgeIncident(ctx context.Context, incidentID, userID uuid.UUID, at time.Time) (*models.Acknowledgment, bool, error) {
	args := m.Called(ctx, incidentID, userID, at)
	if ack := args.Get(0); ack != nil {
		return ack.(*models.Acknowledgment), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *MockStore) AppendComment(ctx context.Context, comment *models.IncidentComment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockStore) UpdateSOCFields(ctx context.Context, id uuid.UUID, recommendations, socActions *string, at time.Time) error {
	args := m.Called(ctx, id, recommendations, socActions, at)
	return args.Error(0)
}

func (m *MockStore) UpdateClientResponse(ctx context.Context, id uuid.UUID, response string, at time.Time) error {
	args := m.Called(ctx, id, response, at)
	return args.Error(0)
}

func (m *MockStore) AppendIOC(ctx context.Context, id uuid.UUID, ioc models.IOCIndicator, at time.Time) error {
	args := m.Called(ctx, id, ioc, at)
	return args.Error(0)
}

func (m *MockStore) RemoveIOC(ctx context.Context, id uuid.UUID, index int, at time.Time) error {
	args := m.Called(ctx, id, index, at)
	return args.Error(0)
}

func (m *MockStore) AppendAsset(ctx context.Context, id uuid.UUID, asset models.AffectedAsset, at time.Time) error {
	args := m.Called(ctx, id, asset, at)
	return args.Error(0)
}

func (m *MockStore) RemoveAsset(ctx context.Context, id uuid.UUID, index int, at time.Time) error {
	args := m.Called(ctx, id, index, at)
	return args.Error(0)
}

func (m *MockStore) IncidentsInRange(ctx context.Context, tenantID *uuid.UUID, from, to time.Time) ([]models.Incident, error) {
	args := m.Called(ctx, tenantID, from, to)
	if incs := args.Get(0); incs != nil {
		return incs.([]models.Incident), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) IncidentStats(ctx context.Context, tenantID *uuid.UUID) (*models.IncidentStats, error) {
	args := m.Called(ctx, tenantID)
	if stats := args.Get(0); stats != nil {
		return stats.(*models.IncidentStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*models.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListTenants(ctx context.Context, activeOnly bool) ([]models.Tenant, error) {
	args := m.Called(ctx, activeOnly)
	if tenants := args.Get(0); tenants != nil {
		return tenants.([]models.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockStore) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) TouchUserLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockStore) CreateUser(ctx context.Context, u *models.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStore) ListUsers(ctx context.Context, tenantID *uuid.UUID) ([]models.User, error) {
	args := m.Called(ctx, tenantID)
	if users := args.Get(0); users != nil {
		return users.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListLogSources(ctx context.Context, tenantID uuid.UUID, f postgres.SourceFilter) ([]models.LogSource, error) {
	args := m.Called(ctx, tenantID, f)
	if sources := args.Get(0); sources != nil {
		return sources.([]models.LogSource), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetLogSource(ctx context.Context, id uuid.UUID) (*models.LogSource, error) {
	args := m.Called(ctx, id)
	if src := args.Get(0); src != nil {
		return src.(*models.LogSource), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) CreateLogSource(ctx context.Context, src *models.LogSource) error {
	args := m.Called(ctx, src)
	return args.Error(0)
}

func (m *MockStore) UpdateLogSource(ctx context.Context, src *models.LogSource) error {
	args := m.Called(ctx, src)
	return args.Error(0)
}

func (m *MockStore) DeactivateLogSource(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockStore) SourceStats(ctx context.Context, tenantID uuid.UUID) (*models.SourceStats, error) {
	args := m.Called(ctx, tenantID)
	if stats := args.Get(0); stats != nil {
		return stats.(*models.SourceStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ReclassifySourceStatuses(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) AddNotification(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockStore) ListNotifications(ctx context.Context, tenantID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, tenantID, unreadOnly, limit)
	if notifications := args.Get(0); notifications != nil {
		return notifications.([]models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) MarkNotificationRead(ctx context.Context, id, tenantID uuid.UUID) error {
	args := m.Called(ctx, id, tenantID)
	return args.Error(0)
}

func (m *MockStore) AddAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockStore) SaveSLASnapshot(ctx context.Context, s *models.SLASnapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStore) LatestSLASnapshot(ctx context.Context, tenantID uuid.UUID) (*models.SLASnapshot, error) {
	args := m.Called(ctx, tenantID)
	if snap := args.Get(0); snap != nil {
		return snap.(*models.SLASnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSIEMClient is a mock implementation of the siem.Client interface
type MockSIEMClient struct {
	mock.Mock
}

var _ siem.Client = (*MockSIEMClient)(nil)

func (m *MockSIEMClient) FetchIncident(ctx context.Context, siemIncidentID int64) (*siem.Envelope, error) {
	args := m.Called(ctx, siemIncidentID)
	if env := args.Get(0); env != nil {
		return env.(*siem.Envelope), args.Error(1)
	}
	return nil, args.Error(1)
}
