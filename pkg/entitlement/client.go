package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Limits is what an organization's plan allows
type Limits struct {
	OrganizationID      string `json:"organizationId"`
	Plan                string `json:"plan"`
	MaxRaffles          int    `json:"maxRaffles"`          // 0 means unlimited
	MaxTicketsPerRaffle int    `json:"maxTicketsPerRaffle"` // 0 means unlimited
	Active              bool   `json:"active"`
}

// AllowsRaffle reports whether one more raffle of totalTickets fits the plan
// when existing raffles already exist.
func (l Limits) AllowsRaffle(existing int64, totalTickets int) bool {
	if !l.Active {
		return false
	}
	if l.MaxRaffles > 0 && existing >= int64(l.MaxRaffles) {
		return false
	}
	if l.MaxTicketsPerRaffle > 0 && totalTickets > l.MaxTicketsPerRaffle {
		return false
	}
	return true
}

// Client represents an entitlement API client
type Client struct {
	BaseURL string
	APIKey  string
	MockAPI bool
	client  *http.Client
}

// NewClient creates a new entitlement API client
func NewClient(baseURL, apiKey string, mockAPI bool) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		MockAPI: mockAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetLimits retrieves the plan limits of an organization
func (c *Client) GetLimits(ctx context.Context, organizationID string) (*Limits, error) {
	if c.MockAPI {
		return c.mockGetLimits(organizationID), nil
	}

	endpoint := fmt.Sprintf("%s/organizations/%s/entitlements", c.BaseURL, url.PathEscape(organizationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("entitlement request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var limits Limits
	if err := json.Unmarshal(body, &limits); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if limits.OrganizationID == "" {
		limits.OrganizationID = organizationID
	}
	return &limits, nil
}

// mockGetLimits grants a generous plan to every organization
func (c *Client) mockGetLimits(organizationID string) *Limits {
	return &Limits{
		OrganizationID:      organizationID,
		Plan:                "mock",
		MaxRaffles:          0,
		MaxTicketsPerRaffle: 1000000,
		Active:              true,
	}
}
