// Package api exposes the portal over HTTP. Handlers translate between the
// wire and the services layer; all authorization decisions live below.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/mssp-soc/portal-gateway/pkg/access"
	"github.com/mssp-soc/portal-gateway/pkg/auth"
	"github.com/mssp-soc/portal-gateway/pkg/models"
	"github.com/mssp-soc/portal-gateway/pkg/postgres"
	"github.com/mssp-soc/portal-gateway/pkg/services"
)

// APIHandler handles HTTP API requests
type APIHandler struct {
	authService *auth.Service
	incidents   *services.IncidentService
	sla         *services.SLAService
	sources     *services.SourceService
	tenants     *services.TenantService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(authService *auth.Service, incidents *services.IncidentService, sla *services.SLAService, sources *services.SourceService, tenants *services.TenantService) *APIHandler {
	return &APIHandler{
		authService: authService,
		incidents:   incidents,
		sla:         sla,
		sources:     sources,
		tenants:     tenants,
	}
}

// writeError maps service errors onto HTTP responses. Forbidden is
// deliberately indistinguishable from NotFound at the boundary so a caller
// probing other tenants' ids learns nothing; the distinct error was already
// logged and counted server-side.
func writeError(c echo.Context, err error) error {
	var transitionErr *models.InvalidTransitionError
	switch {
	case errors.As(err, &transitionErr):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   transitionErr.Error(),
			"allowed": transitionErr.Allowed,
		})
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrForbidden):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	case errors.Is(err, models.ErrConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Incident was modified concurrently, re-fetch and retry"})
	case errors.Is(err, models.ErrAlreadyPublished):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Incident already published to this tenant"})
	case errors.Is(err, models.ErrIncidentTerminal):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Incident is in a terminal status"})
	case errors.Is(err, models.ErrInvalidRange):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid date range"})
	case errors.Is(err, models.ErrInvalidIndex):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid annotation index"})
	case errors.Is(err, services.ErrTenantInactive):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Tenant is deactivated"})
	default:
		logrus.Errorf("Request failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
	}
}

func actor(c echo.Context) access.Actor {
	a, _ := auth.ActorFromContext(c)
	return a
}

func parseID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

// Login authenticates a user and returns a session token
func (h *APIHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email and password are required"})
	}

	user, token, err := h.authService.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// ListIncidents returns a page of incidents visible to the caller
func (h *APIHandler) ListIncidents(c echo.Context) error {
	f := models.IncidentFilter{
		Status:   models.Status(c.QueryParam("status")),
		Priority: models.Priority(c.QueryParam("priority")),
	}
	if tenantStr := c.QueryParam("tenant_id"); tenantStr != "" {
		tenantID, err := uuid.Parse(tenantStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid tenant_id"})
		}
		f.TenantID = &tenantID
	}
	if from, ok := parseTimeParam(c, "from"); ok {
		f.From = &from
	} else if c.QueryParam("from") != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid from timestamp"})
	}
	if to, ok := parseTimeParam(c, "to"); ok {
		f.To = &to
	} else if c.QueryParam("to") != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid to timestamp"})
	}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.PerPage, _ = strconv.Atoi(c.QueryParam("per_page"))

	incidents, total, err := h.incidents.List(c.Request().Context(), actor(c), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"incidents": incidents,
		"total":     total,
	})
}

// GetIncident returns one incident with comments and status history
func (h *APIHandler) GetIncident(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	inc, err := h.incidents.GetDetail(c.Request().Context(), actor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inc)
}

// GetIncidentStats returns dashboard counts for the caller's scope
func (h *APIHandler) GetIncidentStats(c echo.Context) error {
	var tenantID *uuid.UUID
	if tenantStr := c.QueryParam("tenant_id"); tenantStr != "" {
		id, err := uuid.Parse(tenantStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid tenant_id"})
		}
		tenantID = &id
	}
	stats, err := h.incidents.Stats(c.Request().Context(), actor(c), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// ChangeIncidentStatus applies one lifecycle transition
func (h *APIHandler) ChangeIncidentStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	var req struct {
		Status  models.Status `json:"status"`
		Comment string        `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.Status == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "status is required"})
	}

	inc, err := h.incidents.ChangeStatus(c.Request().Context(), actor(c), id, req.Status, req.Comment)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inc)
}

// AcknowledgeIncident records client acknowledgment; repeating it returns
// the original record with 200
func (h *APIHandler) AcknowledgeIncident(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	ack, err := h.incidents.Acknowledge(c.Request().Context(), actor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ack)
}

// AddIncidentComment appends to the incident's comment thread
func (h *APIHandler) AddIncidentComment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	comment, err := h.incidents.AddComment(c.Request().Context(), actor(c), id, req.Text)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// UpdateClientResponse sets the client's response text
func (h *APIHandler) UpdateClientResponse(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	var req struct {
		Response string `json:"response"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	inc, err := h.incidents.UpdateClientResponse(c.Request().Context(), actor(c), id, req.Response)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inc)
}

// PublishIncident copies a SIEM incident into a tenant's portal view
func (h *APIHandler) PublishIncident(c echo.Context) error {
	var req services.PublishRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.TenantID == uuid.Nil || req.SIEMIncidentID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tenantId and siemIncidentId are required"})
	}

	inc, err := h.incidents.Publish(c.Request().Context(), actor(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, inc)
}

// UpdateSOCFields sets the analyst guidance fields
func (h *APIHandler) UpdateSOCFields(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	var req struct {
		Recommendations *string `json:"recommendations"`
		SOCActions      *string `json:"socActions"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	inc, err := h.incidents.UpdateSOCFields(c.Request().Context(), actor(c), id, req.Recommendations, req.SOCActions)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inc)
}

// AddIOC appends an indicator of compromise
func (h *APIHandler) AddIOC(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	var ioc models.IOCIndicator
	if err := c.Bind(&ioc); err != nil || ioc.Type == "" || ioc.Value == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "type and value are required"})
	}

	inc, err := h.incidents.AddIOC(c.Request().Context(), actor(c), id, ioc)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inc)
}

// RemoveIOC deletes the indicator at the given index
func (h *APIHandler) RemoveIOC(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid index"})
	}

	inc, err := h.incidents.RemoveIOC(c.Request().Context(), actor(c), id, index)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inc)
}

// AddAffectedAsset appends an affected asset annotation
func (h *APIHandler) AddAffectedAsset(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	var asset models.AffectedAsset
	if err := c.Bind(&asset); err != nil || asset.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	inc, err := h.incidents.AddAsset(c.Request().Context(), actor(c), id, asset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inc)
}

// RemoveAffectedAsset deletes the asset at the given index
func (h *APIHandler) RemoveAffectedAsset(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid index"})
	}

	inc, err := h.incidents.RemoveAsset(c.Request().Context(), actor(c), id, index)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inc)
}

// GetSLACurrent returns the aggregate for [from, to)
func (h *APIHandler) GetSLACurrent(c echo.Context) error {
	tenantID, from, to, err := h.slaParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	summary, err := h.sla.Current(c.Request().Context(), actor(c), tenantID, from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// GetSLAHistory returns one aggregate per UTC calendar day in [from, to)
func (h *APIHandler) GetSLAHistory(c echo.Context) error {
	tenantID, from, to, err := h.slaParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	points, err := h.sla.History(c.Request().Context(), actor(c), tenantID, from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, points)
}

// GetSLATargets returns the per-priority budgets in effect
func (h *APIHandler) GetSLATargets(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sla.Targets())
}

func (h *APIHandler) slaParams(c echo.Context) (*uuid.UUID, time.Time, time.Time, error) {
	var tenantID *uuid.UUID
	if tenantStr := c.QueryParam("tenant_id"); tenantStr != "" {
		id, err := uuid.Parse(tenantStr)
		if err != nil {
			return nil, time.Time{}, time.Time{}, errors.New("invalid tenant_id")
		}
		tenantID = &id
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if v, ok := parseTimeParam(c, "from"); ok {
		from = v
	} else if c.QueryParam("from") != "" {
		return nil, time.Time{}, time.Time{}, errors.New("invalid from timestamp")
	}
	if v, ok := parseTimeParam(c, "to"); ok {
		to = v
	} else if c.QueryParam("to") != "" {
		return nil, time.Time{}, time.Time{}, errors.New("invalid to timestamp")
	}
	return tenantID, from, to, nil
}

// ListLogSources returns a tenant's log sources
func (h *APIHandler) ListLogSources(c echo.Context) error {
	tenantID, err := h.resolveTenantParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	f := postgres.SourceFilter{
		Status:     models.SourceStatus(c.QueryParam("status")),
		SourceType: c.QueryParam("source_type"),
		Search:     c.QueryParam("search"),
	}
	sources, err := h.sources.List(c.Request().Context(), actor(c), tenantID, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sources)
}

// GetSourceStats summarizes log source health
func (h *APIHandler) GetSourceStats(c echo.Context) error {
	tenantID, err := h.resolveTenantParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	stats, err := h.sources.Stats(c.Request().Context(), actor(c), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// resolveTenantParam picks the tenant for tenant-scoped reads: clients get
// their own tenant implicitly, SOC staff must name one
func (h *APIHandler) resolveTenantParam(c echo.Context) (uuid.UUID, error) {
	a := actor(c)
	if tenantStr := c.QueryParam("tenant_id"); tenantStr != "" {
		return uuid.Parse(tenantStr)
	}
	if a.TenantID != nil {
		return *a.TenantID, nil
	}
	return uuid.Nil, errors.New("tenant_id is required")
}

// CreateLogSource registers a log source
func (h *APIHandler) CreateLogSource(c echo.Context) error {
	var src models.LogSource
	if err := c.Bind(&src); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if src.TenantID == uuid.Nil || src.Name == "" || src.SourceType == "" || src.Host == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tenantId, name, sourceType and host are required"})
	}

	created, err := h.sources.Create(c.Request().Context(), actor(c), &src)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateLogSource rewrites a log source's attributes
func (h *APIHandler) UpdateLogSource(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	var src models.LogSource
	if err := c.Bind(&src); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	src.ID = id

	updated, err := h.sources.Update(c.Request().Context(), actor(c), &src)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeactivateLogSource hides a log source from listings
func (h *APIHandler) DeactivateLogSource(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if err := h.sources.Deactivate(c.Request().Context(), actor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Log source deactivated"})
}

// ListTenants returns all client organizations
func (h *APIHandler) ListTenants(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	tenants, err := h.tenants.List(c.Request().Context(), actor(c), activeOnly)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tenants)
}

// GetTenant returns one tenant
func (h *APIHandler) GetTenant(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	tenant, err := h.tenants.Get(c.Request().Context(), actor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// CreateTenant registers a client organization
func (h *APIHandler) CreateTenant(c echo.Context) error {
	var t models.Tenant
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if t.Name == "" || t.ShortName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name and shortName are required"})
	}

	created, err := h.tenants.Create(c.Request().Context(), actor(c), &t)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateTenant rewrites a tenant's attributes, including activation
func (h *APIHandler) UpdateTenant(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	var t models.Tenant
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	t.ID = id

	updated, err := h.tenants.Update(c.Request().Context(), actor(c), &t)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// CreateUser registers a portal account
func (h *APIHandler) CreateUser(c echo.Context) error {
	var req services.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email, password, name and role are required"})
	}

	user, err := h.tenants.CreateUser(c.Request().Context(), actor(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// ListUsers returns accounts visible to the caller
func (h *APIHandler) ListUsers(c echo.Context) error {
	var tenantID *uuid.UUID
	if tenantStr := c.QueryParam("tenant_id"); tenantStr != "" {
		id, err := uuid.Parse(tenantStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid tenant_id"})
		}
		tenantID = &id
	}
	users, err := h.tenants.ListUsers(c.Request().Context(), actor(c), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// ListNotifications returns a tenant's recent notifications
func (h *APIHandler) ListNotifications(c echo.Context) error {
	tenantID, err := h.resolveTenantParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	unreadOnly := c.QueryParam("unread") == "true"

	notifications, err := h.tenants.Notifications(c.Request().Context(), actor(c), tenantID, unreadOnly, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead flags one notification as read
func (h *APIHandler) MarkNotificationRead(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	tenantID, err := h.resolveTenantParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := h.tenants.MarkNotificationRead(c.Request().Context(), actor(c), tenantID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification marked read"})
}

func parseTimeParam(c echo.Context, name string) (time.Time, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		// Bare dates are accepted for SLA range convenience
		t, err = time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t.UTC(), true
}

// SetupRoutes sets up the API routes
func (h *APIHandler) SetupRoutes(e *echo.Echo, jwtMiddleware echo.MiddlewareFunc) {
	e.POST("/api/auth/login", h.Login)

	api := e.Group("/api", jwtMiddleware)

	// Incident endpoints
	api.GET("/incidents", h.ListIncidents)
	api.GET("/incidents/stats", h.GetIncidentStats)
	api.GET("/incidents/:id", h.GetIncident)
	api.POST("/incidents/:id/comments", h.AddIncidentComment)
	api.POST("/incidents/:id/status", h.ChangeIncidentStatus, auth.RequireIncidentEditor)
	api.POST("/incidents/:id/acknowledge", h.AcknowledgeIncident, auth.RequireIncidentEditor)
	api.PUT("/incidents/:id/response", h.UpdateClientResponse, auth.RequireIncidentEditor)

	// SOC-only incident management
	api.POST("/incidents", h.PublishIncident, auth.RequireSOC)
	api.PUT("/incidents/:id/soc-fields", h.UpdateSOCFields, auth.RequireSOC)
	api.POST("/incidents/:id/iocs", h.AddIOC, auth.RequireSOC)
	api.DELETE("/incidents/:id/iocs/:index", h.RemoveIOC, auth.RequireSOC)
	api.POST("/incidents/:id/assets", h.AddAffectedAsset, auth.RequireSOC)
	api.DELETE("/incidents/:id/assets/:index", h.RemoveAffectedAsset, auth.RequireSOC)

	// SLA endpoints
	api.GET("/sla/current", h.GetSLACurrent)
	api.GET("/sla/history", h.GetSLAHistory)
	api.GET("/sla/targets", h.GetSLATargets)

	// Log source endpoints
	api.GET("/sources", h.ListLogSources)
	api.GET("/sources/stats", h.GetSourceStats)
	api.POST("/sources", h.CreateLogSource, auth.RequireSOC)
	api.PUT("/sources/:id", h.UpdateLogSource, auth.RequireSOC)
	api.DELETE("/sources/:id", h.DeactivateLogSource, auth.RequireSOC)

	// Tenant administration
	api.GET("/tenants", h.ListTenants, auth.RequireSOC)
	api.GET("/tenants/:id", h.GetTenant)
	api.POST("/tenants", h.CreateTenant, auth.RequireSOC)
	api.PUT("/tenants/:id", h.UpdateTenant, auth.RequireSOC)
	api.POST("/users", h.CreateUser, auth.RequireSOC)
	api.GET("/users", h.ListUsers)

	// Notifications
	api.GET("/notifications", h.ListNotifications)
	api.POST("/notifications/:id/read", h.MarkNotificationRead)
}
