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
	"github.com/lib/pq"

	"github.com/mssp-soc/portal-gateway/pkg/models"
)

const incidentColumns = `
	i.id, i.tenant_id, i.siem_incident_id, i.title, COALESCE(i.description, ''),
	i.priority, COALESCE(i.category, ''), COALESCE(i.mitre_id, ''),
	i.source_ips, i.source_hostnames, i.symptoms, i.event_count, i.siem_created_at,
	i.status, COALESCE(i.recommendations, ''), COALESCE(i.soc_actions, ''),
	COALESCE(i.client_response, ''), i.ioc_indicators, i.affected_assets,
	i.published_by, COALESCE(pu.name, ''), i.published_at,
	i.acknowledged_at, i.acknowledged_by, COALESCE(au.name, ''),
	i.closed_by, COALESCE(cu.name, ''), i.closed_at, i.updated_at`

const incidentJoins = `
	FROM published_incidents i
	LEFT JOIN users pu ON pu.id = i.published_by
	LEFT JOIN users au ON au.id = i.acknowledged_by
	LEFT JOIN users cu ON cu.id = i.closed_by`

func scanIncident(row interface{ Scan(...any) error }) (*models.Incident, error) {
	var (
		inc       models.Incident
		iocJSON   []byte
		assetJSON []byte
	)
	err := row.Scan(
		&inc.ID, &inc.TenantID, &inc.SIEMIncidentID, &inc.Title, &inc.Description,
		&inc.Priority, &inc.Category, &inc.MitreID,
		pq.Array(&inc.SourceIPs), pq.Array(&inc.SourceHostnames), pq.Array(&inc.Symptoms),
		&inc.EventCount, &inc.SIEMCreatedAt,
		&inc.Status, &inc.Recommendations, &inc.SOCActions,
		&inc.ClientResponse, &iocJSON, &assetJSON,
		&inc.PublishedBy, &inc.PublishedByName, &inc.PublishedAt,
		&inc.AcknowledgedAt, &inc.AcknowledgedBy, &inc.AcknowledgedByName,
		&inc.ClosedBy, &inc.ClosedByName, &inc.ClosedAt, &inc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(iocJSON, &inc.IOCIndicators); err != nil {
		return nil, fmt.Errorf("decode ioc indicators: %w", err)
	}
	if err := json.Unmarshal(assetJSON, &inc.AffectedAssets); err != nil {
		return nil, fmt.Errorf("decode affected assets: %w", err)
	}
	return &inc, nil
}

// GetIncident fetches a single incident without its comment thread or
// status history
func (s *Store) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := "SELECT" + incidentColumns + incidentJoins + " WHERE i.id = $1"
	inc, err := scanIncident(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// GetIncidentDetail fetches an incident together with its comments and
// status history, both in chronological order
func (s *Store) GetIncidentDetail(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	inc, err := s.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.tenant_id, c.incident_id, c.user_id, COALESCE(u.name, ''),
		       c.text, c.is_soc, c.created_at
		FROM incident_comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.incident_id = $1
		ORDER BY c.created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c models.IncidentComment
		if err := rows.Scan(&c.ID, &c.TenantID, &c.IncidentID, &c.UserID, &c.UserName,
			&c.Text, &c.IsSOC, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		inc.Comments = append(inc.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	histRows, err := s.db.QueryContext(ctx, `
		SELECT sc.id, sc.incident_id, sc.user_id, COALESCE(u.name, ''),
		       sc.old_status, sc.new_status, COALESCE(sc.comment, ''), sc.created_at
		FROM incident_status_changes sc
		LEFT JOIN users u ON u.id = sc.user_id
		WHERE sc.incident_id = $1
		ORDER BY sc.created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	defer histRows.Close()
	for histRows.Next() {
		var sc models.StatusChange
		if err := histRows.Scan(&sc.ID, &sc.IncidentID, &sc.UserID, &sc.UserName,
			&sc.OldStatus, &sc.NewStatus, &sc.Comment, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		inc.StatusHistory = append(inc.StatusHistory, sc)
	}
	return inc, histRows.Err()
}

// ListIncidents returns a page of incidents matching the filter plus the
// total match count. Results are newest first.
func (s *Store) ListIncidents(ctx context.Context, f models.IncidentFilter) ([]models.Incident, int, error) {
	conditions := []string{}
	args := []any{}
	argn := 1

	if f.TenantID != nil {
		conditions = append(conditions, fmt.Sprintf("i.tenant_id = $%d", argn))
		args = append(args, *f.TenantID)
		argn++
	}
	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argn))
		args = append(args, f.Status)
		argn++
	}
	if f.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("i.priority = $%d", argn))
		args = append(args, f.Priority)
		argn++
	}
	if f.From != nil {
		conditions = append(conditions, fmt.Sprintf("i.published_at >= $%d", argn))
		args = append(args, *f.From)
		argn++
	}
	if f.To != nil {
		conditions = append(conditions, fmt.Sprintf("i.published_at < $%d", argn))
		args = append(args, *f.To)
		argn++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM published_incidents i" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := "SELECT" + incidentColumns + `,
		(SELECT COUNT(*) FROM incident_comments c WHERE c.incident_id = i.id)` +
		incidentJoins + where +
		fmt.Sprintf(" ORDER BY i.published_at DESC LIMIT $%d OFFSET $%d", argn, argn+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	incidents := []models.Incident{}
	for rows.Next() {
		var (
			inc       models.Incident
			iocJSON   []byte
			assetJSON []byte
		)
		err := rows.Scan(
			&inc.ID, &inc.TenantID, &inc.SIEMIncidentID, &inc.Title, &inc.Description,
			&inc.Priority, &inc.Category, &inc.MitreID,
			pq.Array(&inc.SourceIPs), pq.Array(&inc.SourceHostnames), pq.Array(&inc.Symptoms),
			&inc.EventCount, &inc.SIEMCreatedAt,
			&inc.Status, &inc.Recommendations, &inc.SOCActions,
			&inc.ClientResponse, &iocJSON, &assetJSON,
			&inc.PublishedBy, &inc.PublishedByName, &inc.PublishedAt,
			&inc.AcknowledgedAt, &inc.AcknowledgedBy, &inc.AcknowledgedByName,
			&inc.ClosedBy, &inc.ClosedByName, &inc.ClosedAt, &inc.UpdatedAt,
			&inc.CommentsCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan incident: %w", err)
		}
		if err := json.Unmarshal(iocJSON, &inc.IOCIndicators); err != nil {
			return nil, 0, fmt.Errorf("decode ioc indicators: %w", err)
		}
		if err := json.Unmarshal(assetJSON, &inc.AffectedAssets); err != nil {
			return nil, 0, fmt.Errorf("decode affected assets: %w", err)
		}
		incidents = append(incidents, inc)
	}
	return incidents, total, rows.Err()
}

// IncidentPublished reports whether the SIEM incident is already published
// to the tenant
func (s *Store) IncidentPublished(ctx context.Context, siemIncidentID int64, tenantID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM published_incidents
			WHERE siem_incident_id = $1 AND tenant_id = $2
		)`, siemIncidentID, tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check published: %w", err)
	}
	return exists, nil
}

// CreateIncident persists a freshly published incident and its initial
// status history row in one transaction
func (s *Store) CreateIncident(ctx context.Context, inc *models.Incident) error {
	iocJSON, err := json.Marshal(emptyIfNilIOC(inc.IOCIndicators))
	if err != nil {
		return fmt.Errorf("encode ioc indicators: %w", err)
	}
	assetJSON, err := json.Marshal(emptyIfNilAssets(inc.AffectedAssets))
	if err != nil {
		return fmt.Errorf("encode affected assets: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO published_incidents (
			id, tenant_id, siem_incident_id, title, description, priority,
			category, mitre_id, source_ips, source_hostnames, symptoms,
			event_count, siem_created_at, status, recommendations,
			ioc_indicators, affected_assets, published_by, published_at, updated_at
		) VALUES (
			$1, $2, $3, $4, NULLIF($5, ''), $6,
			NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11,
			$12, $13, $14, NULLIF($15, ''),
			$16, $17, $18, $19, $20
		)`,
		inc.ID, inc.TenantID, inc.SIEMIncidentID, inc.Title, inc.Description, inc.Priority,
		inc.Category, inc.MitreID,
		pq.Array(emptyIfNil(inc.SourceIPs)), pq.Array(emptyIfNil(inc.SourceHostnames)), pq.Array(emptyIfNil(inc.Symptoms)),
		inc.EventCount, inc.SIEMCreatedAt, inc.Status, inc.Recommendations,
		iocJSON, assetJSON, inc.PublishedBy, inc.PublishedAt, inc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO incident_status_changes (id, incident_id, user_id, old_status, new_status, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), inc.ID, inc.PublishedBy, "none", inc.Status, "Incident published", inc.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert publish history: %w", err)
	}
	return tx.Commit()
}

// ApplyStatusChange performs the compare-and-set status update and appends
// the history row in one transaction. The UPDATE only matches when the row
// still shows the expected status; zero rows matched means either the
// incident vanished (ErrNotFound) or someone moved it first (ErrConflict).
func (s *Store) ApplyStatusChange(ctx context.Context, upd StatusUpdate) (*models.StatusChange, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if upd.To == models.StatusClosed {
		res, err = tx.ExecContext(ctx, `
			UPDATE published_incidents
			SET status = $1, closed_by = $2, closed_at = $3, updated_at = $3
			WHERE id = $4 AND status = $5`,
			upd.To, upd.ActorID, upd.At, upd.IncidentID, upd.From)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE published_incidents
			SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4`,
			upd.To, upd.At, upd.IncidentID, upd.From)
	}
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM published_incidents WHERE id = $1)",
			upd.IncidentID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrConflict
	}

	change := &models.StatusChange{
		ID:         uuid.New(),
		IncidentID: upd.IncidentID,
		UserID:     upd.ActorID,
		OldStatus:  upd.From,
		NewStatus:  upd.To,
		Comment:    upd.Comment,
		CreatedAt:  upd.At,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO incident_status_changes (id, incident_id, user_id, old_status, new_status, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`,
		change.ID, change.IncidentID, change.UserID, change.OldStatus, change.NewStatus,
		change.Comment, change.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert status history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return change, nil
}

// AcknowledgeIncident stamps the acknowledgment if it is not set yet. The
// second return value reports whether this call set it; false means the
// incident was already acknowledged and nothing changed.
func (s *Store) AcknowledgeIncident(ctx context.Context, incidentID, userID uuid.UUID, at time.Time) (*models.Acknowledgment, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE published_incidents
		SET acknowledged_at = $1, acknowledged_by = $2, updated_at = $1
		WHERE id = $3 AND acknowledged_at IS NULL`,
		at, userID, incidentID)
	if err != nil {
		return nil, false, fmt.Errorf("acknowledge incident: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	var ack models.Acknowledgment
	err = s.db.QueryRowContext(ctx, `
		SELECT i.acknowledged_at, i.acknowledged_by, COALESCE(u.name, '')
		FROM published_incidents i
		LEFT JOIN users u ON u.id = i.acknowledged_by
		WHERE i.id = $1 AND i.acknowledged_at IS NOT NULL`,
		incidentID).Scan(&ack.AcknowledgedAt, &ack.ActorID, &ack.ActorName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, models.ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("read acknowledgment: %w", err)
	}
	return &ack, affected > 0, nil
}

// AppendComment inserts one comment row
func (s *Store) AppendComment(ctx context.Context, c *models.IncidentComment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incident_comments (id, tenant_id, incident_id, user_id, text, is_soc, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.TenantID, c.IncidentID, c.UserID, c.Text, c.IsSOC, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// UpdateSOCFields sets the analyst-owned text fields. Nil pointers leave the
// corresponding column untouched.
func (s *Store) UpdateSOCFields(ctx context.Context, id uuid.UUID, recommendations, socActions *string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE published_incidents
		SET recommendations = COALESCE($1, recommendations),
		    soc_actions     = COALESCE($2, soc_actions),
		    updated_at      = $3
		WHERE id = $4`,
		recommendations, socActions, at, id)
	if err != nil {
		return fmt.Errorf("update soc fields: %w", err)
	}
	return requireRow(res)
}

// UpdateClientResponse sets the client-owned response text
func (s *Store) UpdateClientResponse(ctx context.Context, id uuid.UUID, response string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE published_incidents
		SET client_response = $1, updated_at = $2
		WHERE id = $3`,
		response, at, id)
	if err != nil {
		return fmt.Errorf("update client response: %w", err)
	}
	return requireRow(res)
}

// AppendIOC appends one indicator to the incident's JSONB array. The
// concatenation runs inside the UPDATE, so concurrent appends never lose
// each other's entries.
func (s *Store) AppendIOC(ctx context.Context, id uuid.UUID, ioc models.IOCIndicator, at time.Time) error {
	payload, err := json.Marshal(ioc)
	if err != nil {
		return fmt.Errorf("encode ioc: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE published_incidents
		SET ioc_indicators = ioc_indicators || $1::jsonb, updated_at = $2
		WHERE id = $3`,
		payload, at, id)
	if err != nil {
		return fmt.Errorf("append ioc: %w", err)
	}
	return requireRow(res)
}

// RemoveIOC deletes the indicator at the given zero-based index. An index
// past the end of the array is a conflict, not a silent no-op.
func (s *Store) RemoveIOC(ctx context.Context, id uuid.UUID, index int, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE published_incidents
		SET ioc_indicators = ioc_indicators - $1, updated_at = $2
		WHERE id = $3 AND jsonb_array_length(ioc_indicators) > $1`,
		index, at, id)
	if err != nil {
		return fmt.Errorf("remove ioc: %w", err)
	}
	return requireAnnotationRow(ctx, s.db, res, id)
}

// AppendAsset appends one affected asset to the incident's JSONB array
func (s *Store) AppendAsset(ctx context.Context, id uuid.UUID, asset models.AffectedAsset, at time.Time) error {
	payload, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("encode asset: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE published_incidents
		SET affected_assets = affected_assets || $1::jsonb, updated_at = $2
		WHERE id = $3`,
		payload, at, id)
	if err != nil {
		return fmt.Errorf("append asset: %w", err)
	}
	return requireRow(res)
}

// RemoveAsset deletes the affected asset at the given zero-based index
func (s *Store) RemoveAsset(ctx context.Context, id uuid.UUID, index int, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE published_incidents
		SET affected_assets = affected_assets - $1, updated_at = $2
		WHERE id = $3 AND jsonb_array_length(affected_assets) > $1`,
		index, at, id)
	if err != nil {
		return fmt.Errorf("remove asset: %w", err)
	}
	return requireAnnotationRow(ctx, s.db, res, id)
}

// IncidentsInRange returns incidents published inside [from, to), optionally
// limited to one tenant, for SLA aggregation
func (s *Store) IncidentsInRange(ctx context.Context, tenantID *uuid.UUID, from, to time.Time) ([]models.Incident, error) {
	f := models.IncidentFilter{TenantID: tenantID, From: &from, To: &to, PerPage: 100}
	var all []models.Incident
	for page := 1; ; page++ {
		f.Page = page
		batch, total, err := s.ListIncidents(ctx, f)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(all) >= total || len(batch) == 0 {
			return all, nil
		}
	}
}

// IncidentStats computes dashboard counts, optionally scoped to one tenant
func (s *Store) IncidentStats(ctx context.Context, tenantID *uuid.UUID) (*models.IncidentStats, error) {
	where := ""
	args := []any{}
	if tenantID != nil {
		where = " WHERE tenant_id = $1"
		args = append(args, *tenantID)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT status, priority, COUNT(*) FROM published_incidents"+where+" GROUP BY status, priority",
		args...)
	if err != nil {
		return nil, fmt.Errorf("incident stats: %w", err)
	}
	defer rows.Close()

	stats := &models.IncidentStats{
		ByPriority: map[models.Priority]int{},
		ByStatus:   map[models.Status]int{},
	}
	for rows.Next() {
		var (
			status   models.Status
			priority models.Priority
			count    int
		)
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
		if !status.Terminal() {
			stats.Open += count
		}
	}
	return stats, rows.Err()
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// requireAnnotationRow distinguishes "incident missing" from "index out of
// range" when a guarded annotation UPDATE matched nothing
func requireAnnotationRow(ctx context.Context, db *sql.DB, res sql.Result, id uuid.UUID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM published_incidents WHERE id = $1)", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrConflict
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyIfNilIOC(s []models.IOCIndicator) []models.IOCIndicator {
	if s == nil {
		return []models.IOCIndicator{}
	}
	return s
}

func emptyIfNilAssets(s []models.AffectedAsset) []models.AffectedAsset {
	if s == nil {
		return []models.AffectedAsset{}
	}
	return s
}
