// Package services implements the portal's business operations on top of
// the persistence layer. Every operation takes the calling actor and runs
// the tenant isolation guard before touching data.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mssp-soc/portal-gateway/pkg/access"
	"github.com/mssp-soc/portal-gateway/pkg/metrics"
	"github.com/mssp-soc/portal-gateway/pkg/models"
	"github.com/mssp-soc/portal-gateway/pkg/postgres"
	"github.com/mssp-soc/portal-gateway/pkg/siem"
)

// ErrTenantInactive rejects operations against a deactivated tenant
var ErrTenantInactive = errors.New("tenant is deactivated")

// IncidentService owns the incident lifecycle: publishing from the SIEM,
// status transitions, acknowledgment, comments and analyst annotations.
type IncidentService struct {
	store postgres.PortalStore
	siem  siem.Client
	now   func() time.Time
}

// NewIncidentService creates an incident service
func NewIncidentService(store postgres.PortalStore, siemClient siem.Client) *IncidentService {
	return &IncidentService{
		store: store,
		siem:  siemClient,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// PublishRequest describes one publish operation: which SIEM incident goes
// to which tenant, plus the analyst's initial guidance.
type PublishRequest struct {
	TenantID        uuid.UUID `json:"tenantId"`
	SIEMIncidentID  int64     `json:"siemIncidentId"`
	Recommendations string    `json:"recommendations,omitempty"`
}

// Publish copies a SIEM incident into a tenant's portal view. The SIEM
// fields are frozen at this moment; later SIEM updates never flow through.
// Publishing the same SIEM incident to the same tenant twice is rejected,
// publishing it to a second tenant is a fresh independent incident.
func (s *IncidentService) Publish(ctx context.Context, actor access.Actor, req PublishRequest) (*models.Incident, error) {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("publish").Inc()
		return nil, models.ErrForbidden
	}

	tenant, err := s.store.GetTenant(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return nil, ErrTenantInactive
	}

	published, err := s.store.IncidentPublished(ctx, req.SIEMIncidentID, req.TenantID)
	if err != nil {
		return nil, err
	}
	if published {
		return nil, models.ErrAlreadyPublished
	}

	envelope, err := s.siem.FetchIncident(ctx, req.SIEMIncidentID)
	if err != nil {
		return nil, fmt.Errorf("fetch siem incident %d: %w", req.SIEMIncidentID, err)
	}
	if !envelope.Priority.Valid() {
		return nil, fmt.Errorf("siem incident %d has unknown priority %q", req.SIEMIncidentID, envelope.Priority)
	}

	now := s.now()
	inc := &models.Incident{
		ID:              uuid.New(),
		TenantID:        req.TenantID,
		SIEMIncidentID:  envelope.SIEMIncidentID,
		Title:           envelope.Title,
		Description:     envelope.Description,
		Priority:        envelope.Priority,
		Category:        envelope.Category,
		MitreID:         envelope.MitreID,
		SourceIPs:       envelope.SourceIPs,
		SourceHostnames: envelope.SourceHostnames,
		Symptoms:        envelope.Symptoms,
		EventCount:      envelope.EventCount,
		SIEMCreatedAt:   envelope.CreatedAt,
		Status:          models.StatusNew,
		Recommendations: req.Recommendations,
		PublishedBy:     actor.UserID,
		PublishedAt:     now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateIncident(ctx, inc); err != nil {
		return nil, err
	}

	s.notify(ctx, req.TenantID, models.NotifyNewIncident,
		fmt.Sprintf("New %s incident", inc.Priority),
		fmt.Sprintf("%s has been published to your portal", inc.Title))
	s.audit(ctx, actor, &req.TenantID, "incident.publish", inc.ID,
		fmt.Sprintf("siem_incident_id=%d priority=%s", inc.SIEMIncidentID, inc.Priority))
	metrics.IncidentsPublished.WithLabelValues(string(inc.Priority)).Inc()

	logrus.Infof("Published SIEM incident %d to tenant %s as %s", inc.SIEMIncidentID, tenant.ShortName, inc.ID)
	return inc, nil
}

// Get returns one incident after the tenant guard passes
func (s *IncidentService) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Incident, error) {
	inc, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CheckTenantAccess(actor, inc.TenantID); err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("get_incident").Inc()
		logrus.Warnf("User %s denied access to incident %s of tenant %s", actor.UserID, id, inc.TenantID)
		s.audit(ctx, actor, &inc.TenantID, "incident.forbidden_access", id, "")
		return nil, err
	}
	return inc, nil
}

// GetDetail returns one incident with comments and status history
func (s *IncidentService) GetDetail(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Incident, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.GetIncidentDetail(ctx, id)
}

// List returns a page of incidents visible to the actor. Client actors are
// pinned to their own tenant; SOC actors may filter by any tenant or see
// all. A filter naming an unknown or deactivated tenant simply matches
// nothing.
func (s *IncidentService) List(ctx context.Context, actor access.Actor, f models.IncidentFilter) ([]models.Incident, int, error) {
	scope, err := access.Scope(actor, f.TenantID)
	if err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("list_incidents").Inc()
		return nil, 0, err
	}
	f.TenantID = scope
	return s.store.ListIncidents(ctx, f)
}

// Stats returns dashboard counts for the actor's scope
func (s *IncidentService) Stats(ctx context.Context, actor access.Actor, tenantID *uuid.UUID) (*models.IncidentStats, error) {
	scope, err := access.Scope(actor, tenantID)
	if err != nil {
		metrics.ForbiddenAttempts.WithLabelValues("incident_stats").Inc()
		return nil, err
	}
	return s.store.IncidentStats(ctx, scope)
}

// ChangeStatus moves an incident along the lifecycle. The legality of the
// edge depends on the actor's class, and the write is conditional on the
// status the actor saw: if another actor moved the incident first, the call
// fails with ErrConflict and nothing is recorded.
func (s *IncidentService) ChangeStatus(ctx context.Context, actor access.Actor, id uuid.UUID, to models.Status, comment string) (*models.Incident, error) {
	if !to.Valid() {
		return nil, &models.InvalidTransitionError{Actor: actor.Class(), To: to}
	}

	inc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	class := actor.Class()
	if !models.CanTransition(class, inc.Status, to) {
		metrics.TransitionsRejected.WithLabelValues("illegal_edge").Inc()
		return nil, &models.InvalidTransitionError{
			Actor:   class,
			From:    inc.Status,
			To:      to,
			Allowed: models.AllowedNext(class, inc.Status),
		}
	}

	change, err := s.store.ApplyStatusChange(ctx, postgres.StatusUpdate{
		IncidentID: id,
		From:       inc.Status,
		To:         to,
		ActorID:    actor.UserID,
		Comment:    comment,
		At:         s.now(),
	})
	if errors.Is(err, models.ErrConflict) {
		metrics.TransitionsRejected.WithLabelValues("conflict").Inc()
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	metrics.TransitionsApplied.WithLabelValues(string(change.OldStatus), string(change.NewStatus), string(class)).Inc()

	s.notify(ctx, inc.TenantID, models.NotifyStatusChange,
		"Incident status changed",
		fmt.Sprintf("%s moved from %s to %s", inc.Title, change.OldStatus, change.NewStatus))
	s.audit(ctx, actor, &inc.TenantID, "incident.status_change", id,
		fmt.Sprintf("%s -> %s", change.OldStatus, change.NewStatus))

	logrus.Infof("Incident %s: %s -> %s by %s", id, change.OldStatus, change.NewStatus, actor.UserID)
	return s.store.GetIncident(ctx, id)
}

// Acknowledge records that the client has seen the incident. Acknowledgment
// is independent of status, set exactly once, and repeating it is a
// successful no-op returning the original record. Only client actors
// acknowledge; it marks customer awareness, not SOC activity.
func (s *IncidentService) Acknowledge(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Acknowledgment, error) {
	inc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("acknowledge").Inc()
		return nil, models.ErrForbidden
	}
	if !inc.Acknowledged() && inc.Status.Terminal() {
		return nil, models.ErrIncidentTerminal
	}

	ack, applied, err := s.store.AcknowledgeIncident(ctx, id, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	metrics.Acknowledgments.WithLabelValues(fmt.Sprintf("%t", !applied)).Inc()
	if applied {
		s.audit(ctx, actor, &inc.TenantID, "incident.acknowledge", id, "")
	}
	return ack, nil
}

// AddComment appends to the incident's comment thread. Comments never
// change status; discussion and workflow are separate tracks.
func (s *IncidentService) AddComment(ctx context.Context, actor access.Actor, id uuid.UUID, text string) (*models.IncidentComment, error) {
	inc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	comment := &models.IncidentComment{
		ID:         uuid.New(),
		TenantID:   inc.TenantID,
		IncidentID: id,
		UserID:     actor.UserID,
		UserName:   actor.Name,
		Text:       text,
		IsSOC:      actor.IsSOC(),
		CreatedAt:  s.now(),
	}
	if err := s.store.AppendComment(ctx, comment); err != nil {
		return nil, err
	}

	notifyType := models.NotifyClientComment
	if comment.IsSOC {
		notifyType = models.NotifySOCComment
	}
	s.notify(ctx, inc.TenantID, notifyType, "New comment",
		fmt.Sprintf("%s commented on %s", actor.Name, inc.Title))
	return comment, nil
}

// UpdateSOCFields sets the analyst guidance fields. SOC only.
func (s *IncidentService) UpdateSOCFields(ctx context.Context, actor access.Actor, id uuid.UUID, recommendations, socActions *string) (*models.Incident, error) {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues("update_soc_fields").Inc()
		return nil, models.ErrForbidden
	}
	inc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSOCFields(ctx, id, recommendations, socActions, s.now()); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, &inc.TenantID, "incident.update_soc_fields", id, "")
	return s.store.GetIncident(ctx, id)
}

// UpdateClientResponse sets the client's response text for their own
// incident
func (s *IncidentService) UpdateClientResponse(ctx context.Context, actor access.Actor, id uuid.UUID, response string) (*models.Incident, error) {
	if actor.IsSOC() {
		return nil, models.ErrForbidden
	}
	inc, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateClientResponse(ctx, id, response, s.now()); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, &inc.TenantID, "incident.client_response", id, "")
	return s.store.GetIncident(ctx, id)
}

// AddIOC appends an indicator of compromise. SOC only; the append is atomic
// in the store so concurrent analysts never overwrite each other.
func (s *IncidentService) AddIOC(ctx context.Context, actor access.Actor, id uuid.UUID, ioc models.IOCIndicator) (*models.Incident, error) {
	if err := s.checkAnnotator(actor, "add_ioc"); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.store.AppendIOC(ctx, id, ioc, s.now()); err != nil {
		return nil, err
	}
	return s.store.GetIncident(ctx, id)
}

// RemoveIOC deletes the indicator at index
func (s *IncidentService) RemoveIOC(ctx context.Context, actor access.Actor, id uuid.UUID, index int) (*models.Incident, error) {
	if err := s.checkAnnotator(actor, "remove_ioc"); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, models.ErrInvalidIndex
	}
	if err := s.store.RemoveIOC(ctx, id, index, s.now()); err != nil {
		return nil, err
	}
	return s.store.GetIncident(ctx, id)
}

// AddAsset appends an affected asset annotation. SOC only.
func (s *IncidentService) AddAsset(ctx context.Context, actor access.Actor, id uuid.UUID, asset models.AffectedAsset) (*models.Incident, error) {
	if err := s.checkAnnotator(actor, "add_asset"); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.store.AppendAsset(ctx, id, asset, s.now()); err != nil {
		return nil, err
	}
	return s.store.GetIncident(ctx, id)
}

// RemoveAsset deletes the affected asset at index
func (s *IncidentService) RemoveAsset(ctx context.Context, actor access.Actor, id uuid.UUID, index int) (*models.Incident, error) {
	if err := s.checkAnnotator(actor, "remove_asset"); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, models.ErrInvalidIndex
	}
	if err := s.store.RemoveAsset(ctx, id, index, s.now()); err != nil {
		return nil, err
	}
	return s.store.GetIncident(ctx, id)
}

func (s *IncidentService) checkAnnotator(actor access.Actor, operation string) error {
	if !actor.IsSOC() {
		metrics.ForbiddenAttempts.WithLabelValues(operation).Inc()
		return models.ErrForbidden
	}
	return nil
}

// notify writes a tenant notification. Failures are logged, never
// propagated: workflow writes must not fail because a notification row did.
func (s *IncidentService) notify(ctx context.Context, tenantID uuid.UUID, notifyType, title, message string) {
	n := &models.Notification{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Type:      notifyType,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.store.AddNotification(ctx, n); err != nil {
		logrus.Warnf("Failed to store notification for tenant %s: %v", tenantID, err)
	}
}

func (s *IncidentService) audit(ctx context.Context, actor access.Actor, tenantID *uuid.UUID, action string, resourceID uuid.UUID, details string) {
	entry := &models.AuditEntry{
		ID:           uuid.New(),
		TenantID:     tenantID,
		UserID:       &actor.UserID,
		Action:       action,
		ResourceType: "incident",
		ResourceID:   resourceID.String(),
		Details:      details,
		CreatedAt:    s.now(),
	}
	if err := s.store.AddAuditEntry(ctx, entry); err != nil {
		logrus.Warnf("Failed to store audit entry %s: %v", action, err)
	}
}
