package siem

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPClient fetches incident envelopes from the SIEM adapter's REST API
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a SIEM adapter client
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchIncident retrieves one incident envelope by its SIEM id
func (c *HTTPClient) FetchIncident(ctx context.Context, siemIncidentID int64) (*Envelope, error) {
	url := fmt.Sprintf("%s/api/incidents/%d", c.baseURL, siemIncidentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("siem request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("siem incident %d not found", siemIncidentID)
	}
	if resp.StatusCode != http.StatusOK {
		logrus.Warnf("SIEM returned status %d for incident %d", resp.StatusCode, siemIncidentID)
		return nil, fmt.Errorf("siem returned status %d", resp.StatusCode)
	}

	var envelope Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode siem incident: %w", err)
	}
	return &envelope, nil
}
