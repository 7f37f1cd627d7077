// Package postgres implements the portal's persistence over PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/mssp-soc/portal-gateway/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

// StatusUpdate describes one status transition to apply. From is the status
// the caller last observed; the update only lands if the row still carries
// it, otherwise ErrConflict comes back and nothing is written.
type StatusUpdate struct {
	IncidentID uuid.UUID
	From       models.Status
	To         models.Status
	ActorID    uuid.UUID
	Comment    string
	At         time.Time
}

// SourceFilter narrows log source listings
type SourceFilter struct {
	Status     models.SourceStatus
	SourceType string
	Search     string
}

// PortalStore is the persistence contract consumed by the service layer
type PortalStore interface {
	// Incidents
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	GetIncidentDetail(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, f models.IncidentFilter) ([]models.Incident, int, error)
	IncidentPublished(ctx context.Context, siemIncidentID int64, tenantID uuid.UUID) (bool, error)
	CreateIncident(ctx context.Context, inc *models.Incident) error
	ApplyStatusChange(ctx context.Context, upd StatusUpdate) (*models.StatusChange, error)
	AcknowledgeIncident(ctx context.Context, incidentID, userID uuid.UUID, at time.Time) (*models.Acknowledgment, bool, error)
	AppendComment(ctx context.Context, comment *models.IncidentComment) error
	UpdateSOCFields(ctx context.Context, id uuid.UUID, recommendations, socActions *string, at time.Time) error
	UpdateClientResponse(ctx context.Context, id uuid.UUID, response string, at time.Time) error
	AppendIOC(ctx context.Context, id uuid.UUID, ioc models.IOCIndicator, at time.Time) error
	RemoveIOC(ctx context.Context, id uuid.UUID, index int, at time.Time) error
	AppendAsset(ctx context.Context, id uuid.UUID, asset models.AffectedAsset, at time.Time) error
	RemoveAsset(ctx context.Context, id uuid.UUID, index int, at time.Time) error
	IncidentsInRange(ctx context.Context, tenantID *uuid.UUID, from, to time.Time) ([]models.Incident, error)
	IncidentStats(ctx context.Context, tenantID *uuid.UUID) (*models.IncidentStats, error)

	// Tenants
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListTenants(ctx context.Context, activeOnly bool) ([]models.Tenant, error)
	CreateTenant(ctx context.Context, t *models.Tenant) error
	UpdateTenant(ctx context.Context, t *models.Tenant) error

	// Users
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchUserLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	CreateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context, tenantID *uuid.UUID) ([]models.User, error)

	// Log sources
	ListLogSources(ctx context.Context, tenantID uuid.UUID, f SourceFilter) ([]models.LogSource, error)
	GetLogSource(ctx context.Context, id uuid.UUID) (*models.LogSource, error)
	CreateLogSource(ctx context.Context, src *models.LogSource) error
	UpdateLogSource(ctx context.Context, src *models.LogSource) error
	DeactivateLogSource(ctx context.Context, id uuid.UUID, at time.Time) error
	SourceStats(ctx context.Context, tenantID uuid.UUID) (*models.SourceStats, error)
	ReclassifySourceStatuses(ctx context.Context, now time.Time) (int64, error)

	// Notifications and audit
	AddNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, tenantID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, tenantID uuid.UUID) error
	AddAuditEntry(ctx context.Context, e *models.AuditEntry) error

	// SLA snapshots
	SaveSLASnapshot(ctx context.Context, s *models.SLASnapshot) error
	LatestSLASnapshot(ctx context.Context, tenantID uuid.UUID) (*models.SLASnapshot, error)
}

// Store is the PostgreSQL implementation of PortalStore
type Store struct {
	db *sql.DB
}

// Ensure Store implements PortalStore
var _ PortalStore = (*Store)(nil)

// Open connects to Postgres and verifies the connection
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection; used by tests
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent, so
// re-running on startup is safe.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logrus.Info("Database schema applied")
	return nil
}
