// Package siem defines the contract between the portal core and the
// external SIEM adapter. The adapter (HTTP client, caching, credential
// handling) lives outside this service; the portal only consumes the mapped
// envelope an analyst reviews before publishing.
package siem

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mssp-soc/portal-gateway/pkg/models"
)

// Envelope is the SIEM-sourced view of an incident, mapped to portal fields.
// Everything in it becomes immutable once published to a tenant.
type Envelope struct {
	SIEMIncidentID  int64           `json:"siemIncidentId"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Priority        models.Priority `json:"priority"`
	Category        string          `json:"category,omitempty"`
	MitreID         string          `json:"mitreId,omitempty"`
	SourceIPs       []string        `json:"sourceIps,omitempty"`
	SourceHostnames []string        `json:"sourceHostnames,omitempty"`
	Symptoms        []string        `json:"symptoms,omitempty"`
	EventCount      int             `json:"eventCount"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Client fetches incident envelopes from the SIEM. Implemented by the
// external adapter; the portal core never calls it outside publish-time
// previews.
type Client interface {
	FetchIncident(ctx context.Context, siemIncidentID int64) (*Envelope, error)
}
