package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mssp-soc/portal-gateway/pkg/models"
)

// GetTenant fetches one tenant by id
func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, short_name, COALESCE(contact_email, ''), COALESCE(contact_phone, ''),
		       is_active, created_at, updated_at
		FROM tenants WHERE id = $1`, id).Scan(
		&t.ID, &t.Name, &t.ShortName, &t.ContactEmail, &t.ContactPhone,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// ListTenants returns all tenants, optionally only active ones, ordered by
// name
func (s *Store) ListTenants(ctx context.Context, activeOnly bool) ([]models.Tenant, error) {
	query := `
		SELECT id, name, short_name, COALESCE(contact_email, ''), COALESCE(contact_phone, ''),
		       is_active, created_at, updated_at
		FROM tenants`
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []models.Tenant{}
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.ShortName, &t.ContactEmail, &t.ContactPhone,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// CreateTenant inserts a tenant row
func (s *Store) CreateTenant(ctx context.Context, t *models.Tenant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, short_name, contact_email, contact_phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)`,
		t.ID, t.Name, t.ShortName, t.ContactEmail, t.ContactPhone, t.IsActive, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// UpdateTenant rewrites a tenant's mutable fields
func (s *Store) UpdateTenant(ctx context.Context, t *models.Tenant) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants
		SET name = $1, short_name = $2, contact_email = NULLIF($3, ''),
		    contact_phone = NULLIF($4, ''), is_active = $5, updated_at = $6
		WHERE id = $7`,
		t.Name, t.ShortName, t.ContactEmail, t.ContactPhone, t.IsActive, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	return requireRow(res)
}

// GetUserByEmail fetches one user by lowercased email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, password_hash, name, role, is_active, last_login, created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER($1)`, email).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
		&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// TouchUserLogin stamps the user's last successful login
func (s *Store) TouchUserLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_login = $1, updated_at = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("touch login: %w", err)
	}
	return nil
}

// CreateUser inserts a user row
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, password_hash, name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.TenantID, u.Email, u.PasswordHash, u.Name, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ListUsers returns users, optionally scoped to one tenant. A nil tenant id
// returns everyone, SOC staff included.
func (s *Store) ListUsers(ctx context.Context, tenantID *uuid.UUID) ([]models.User, error) {
	query := `
		SELECT id, tenant_id, email, password_hash, name, role, is_active, last_login, created_at, updated_at
		FROM users`
	args := []any{}
	if tenantID != nil {
		query += " WHERE tenant_id = $1"
		args = append(args, *tenantID)
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
			&u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const logSourceColumns = `
	id, tenant_id, name, source_type, host, COALESCE(vendor, ''), COALESCE(product, ''),
	status, last_event_at, eps, is_active, created_at, updated_at`

func scanLogSource(row interface{ Scan(...any) error }) (*models.LogSource, error) {
	var src models.LogSource
	err := row.Scan(&src.ID, &src.TenantID, &src.Name, &src.SourceType, &src.Host,
		&src.Vendor, &src.Product, &src.Status, &src.LastEventAt, &src.EPS,
		&src.IsActive, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// ListLogSources returns a tenant's active log sources matching the filter
func (s *Store) ListLogSources(ctx context.Context, tenantID uuid.UUID, f SourceFilter) ([]models.LogSource, error) {
	conditions := []string{"tenant_id = $1", "is_active"}
	args := []any{tenantID}
	argn := 2

	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argn))
		args = append(args, f.Status)
		argn++
	}
	if f.SourceType != "" {
		conditions = append(conditions, fmt.Sprintf("source_type = $%d", argn))
		args = append(args, f.SourceType)
		argn++
	}
	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR host ILIKE $%d)", argn, argn))
		args = append(args, "%"+f.Search+"%")
		argn++
	}

	query := "SELECT" + logSourceColumns + " FROM log_sources WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list log sources: %w", err)
	}
	defer rows.Close()

	sources := []models.LogSource{}
	for rows.Next() {
		src, err := scanLogSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log source: %w", err)
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

// GetLogSource fetches one log source by id
func (s *Store) GetLogSource(ctx context.Context, id uuid.UUID) (*models.LogSource, error) {
	query := "SELECT" + logSourceColumns + " FROM log_sources WHERE id = $1"
	src, err := scanLogSource(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get log source: %w", err)
	}
	return src, nil
}

// CreateLogSource inserts a log source row
func (s *Store) CreateLogSource(ctx context.Context, src *models.LogSource) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_sources (id, tenant_id, name, source_type, host, vendor, product,
		                         status, last_event_at, eps, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12, $13)`,
		src.ID, src.TenantID, src.Name, src.SourceType, src.Host, src.Vendor, src.Product,
		src.Status, src.LastEventAt, src.EPS, src.IsActive, src.CreatedAt, src.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert log source: %w", err)
	}
	return nil
}

// UpdateLogSource rewrites a log source's mutable fields
func (s *Store) UpdateLogSource(ctx context.Context, src *models.LogSource) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE log_sources
		SET name = $1, source_type = $2, host = $3, vendor = NULLIF($4, ''),
		    product = NULLIF($5, ''), status = $6, last_event_at = $7, eps = $8,
		    updated_at = $9
		WHERE id = $10`,
		src.Name, src.SourceType, src.Host, src.Vendor, src.Product,
		src.Status, src.LastEventAt, src.EPS, src.UpdatedAt, src.ID)
	if err != nil {
		return fmt.Errorf("update log source: %w", err)
	}
	return requireRow(res)
}

// DeactivateLogSource hides a source from listings without deleting history
func (s *Store) DeactivateLogSource(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE log_sources SET is_active = FALSE, updated_at = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("deactivate log source: %w", err)
	}
	return requireRow(res)
}

// SourceStats counts a tenant's active sources per health status
func (s *Store) SourceStats(ctx context.Context, tenantID uuid.UUID) (*models.SourceStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM log_sources
		WHERE tenant_id = $1 AND is_active
		GROUP BY status`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("source stats: %w", err)
	}
	defer rows.Close()

	stats := &models.SourceStats{}
	for rows.Next() {
		var (
			status models.SourceStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan source stats: %w", err)
		}
		stats.Total += count
		switch status {
		case models.SourceActive:
			stats.Active = count
		case models.SourceDegraded:
			stats.Degraded = count
		case models.SourceNoLogs:
			stats.NoLogs = count
		case models.SourceError:
			stats.Error = count
		default:
			stats.Unknown += count
		}
	}
	return stats, rows.Err()
}

// ReclassifySourceStatuses recomputes health for every active source from
// event recency: under 30 minutes is active, under 2 hours degraded, older
// than that no_logs. Sources in error state stay there until an event
// arrives; sources that never reported stay unknown.
func (s *Store) ReclassifySourceStatuses(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE log_sources
		SET status = CASE
			WHEN last_event_at IS NULL THEN 'unknown'
			WHEN last_event_at > $1 - INTERVAL '30 minutes' THEN 'active'
			WHEN last_event_at > $1 - INTERVAL '2 hours' THEN 'degraded'
			ELSE 'no_logs'
		END,
		updated_at = $1
		WHERE is_active AND status <> 'error'`, now)
	if err != nil {
		return 0, fmt.Errorf("reclassify sources: %w", err)
	}
	return res.RowsAffected()
}

// AddNotification inserts a notification row
func (s *Store) AddNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, tenant_id, user_id, type, title, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.TenantID, n.UserID, n.Type, n.Title, n.Message, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a tenant's most recent notifications
func (s *Store) ListNotifications(ctx context.Context, tenantID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, tenant_id, user_id, type, title, message, is_read, created_at
		FROM notifications WHERE tenant_id = $1`
	if unreadOnly {
		query += " AND NOT is_read"
	}
	query += " ORDER BY created_at DESC LIMIT $2"

	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.TenantID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead flags one notification as read. The tenant id is part
// of the predicate so a caller can never flip another tenant's rows.
func (s *Store) MarkNotificationRead(ctx context.Context, id, tenantID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireRow(res)
}

// AddAuditEntry appends one audit log row
func (s *Store) AddAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, tenant_id, user_id, action, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8)`,
		e.ID, e.TenantID, e.UserID, e.Action, e.ResourceType, e.ResourceID, e.Details, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// SaveSLASnapshot persists one periodic SLA aggregate
func (s *Store) SaveSLASnapshot(ctx context.Context, snap *models.SLASnapshot) error {
	var byPriority []byte
	if snap.ByPriority != nil {
		var err error
		byPriority, err = json.Marshal(snap.ByPriority)
		if err != nil {
			return fmt.Errorf("encode snapshot breakdown: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sla_snapshots (id, tenant_id, period_start, period_end,
		                           mtta_minutes, mttr_minutes, compliance_pct,
		                           incidents_total, by_priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		snap.ID, snap.TenantID, snap.PeriodStart, snap.PeriodEnd,
		snap.MTTAMinutes, snap.MTTRMinutes, snap.CompliancePct,
		snap.IncidentsTotal, byPriority, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sla snapshot: %w", err)
	}
	return nil
}

// LatestSLASnapshot returns the most recently computed snapshot for a tenant
func (s *Store) LatestSLASnapshot(ctx context.Context, tenantID uuid.UUID) (*models.SLASnapshot, error) {
	var (
		snap       models.SLASnapshot
		byPriority []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, period_start, period_end, mtta_minutes, mttr_minutes,
		       compliance_pct, incidents_total, by_priority, created_at
		FROM sla_snapshots
		WHERE tenant_id = $1
		ORDER BY period_end DESC
		LIMIT 1`, tenantID).Scan(
		&snap.ID, &snap.TenantID, &snap.PeriodStart, &snap.PeriodEnd,
		&snap.MTTAMinutes, &snap.MTTRMinutes, &snap.CompliancePct,
		&snap.IncidentsTotal, &byPriority, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sla snapshot: %w", err)
	}
	if len(byPriority) > 0 {
		if err := json.Unmarshal(byPriority, &snap.ByPriority); err != nil {
			return nil, fmt.Errorf("decode snapshot breakdown: %w", err)
		}
	}
	return &snap, nil
}
