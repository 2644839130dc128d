// Package ghl is the client for the GoHighLevel (LeadConnector) REST API.
package ghl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/doctorsstudio/crmsync/internal/config"
	"github.com/doctorsstudio/crmsync/internal/util"
)

// APIVersion is the Version header required by the LeadConnector API.
const APIVersion = "2021-07-28"

// Contact is the subset of a GHL contact payload the sync engine maps.
type Contact struct {
	ID           string          `json:"id"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Tags         []string        `json:"tags"`
	CustomFields json.RawMessage `json:"customFields"`
	DateUpdated  string          `json:"dateUpdated"`
}

// SearchResult is one page of a contact search.
type SearchResult struct {
	Contacts []json.RawMessage `json:"contacts"`
	Total    int               `json:"total"`
}

// Client talks to the GoHighLevel API. Access tokens are passed per call
// because tokens are per-location and refreshed independently.
type Client struct {
	http    *resty.Client
	baseURL string
}

// NewClient builds a client with a bounded request timeout.
func NewClient(cfg config.GHL) *Client {
	return &Client{
		http:    resty.New().SetTimeout(30 * time.Second),
		baseURL: cfg.APIBaseURL,
	}
}

func (c *Client) headers(accessToken string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + accessToken,
		"Version":       APIVersion,
		"Content-Type":  "application/json",
	}
}

// SearchContacts fetches one page of contacts for a location. When
// modifiedAfter is set the search is filtered to contacts updated since
// then, newest first.
func (c *Client) SearchContacts(ctx context.Context, accessToken, locationID string, page, pageLimit int, modifiedAfter *time.Time) (*SearchResult, error) {
	payload := map[string]any{
		"locationId": locationID,
		"page":       page,
		"pageLimit":  pageLimit,
	}
	if modifiedAfter != nil {
		payload["filters"] = []map[string]any{{
			"field":    "dateUpdated",
			"operator": "greater_than",
			"value":    modifiedAfter.Format(time.RFC3339),
		}}
		payload["sort"] = []map[string]any{{
			"field":     "dateUpdated",
			"direction": "desc",
		}}
	}

	var result SearchResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers(accessToken)).
		SetBody(payload).
		SetResult(&result).
		Post(c.baseURL + "/contacts/search")
	if err != nil {
		return nil, fmt.Errorf("search contacts page %d: %w", page, err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, &util.RateLimitError{
			Op:         fmt.Sprintf("search contacts page %d", page),
			RetryAfter: util.RetryAfterDelay(resp.Header()),
		}
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search contacts page %d: status %d: %s", page, resp.StatusCode(), resp.String())
	}
	return &result, nil
}

// GetContact fetches a single contact by id.
func (c *Client) GetContact(ctx context.Context, accessToken, contactID string) (*Contact, error) {
	var result struct {
		Contact Contact `json:"contact"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers(accessToken)).
		SetResult(&result).
		Get(c.baseURL + "/contacts/" + contactID)
	if err != nil {
		return nil, fmt.Errorf("get contact %s: %w", contactID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get contact %s: status %d", contactID, resp.StatusCode())
	}
	return &result.Contact, nil
}

// GetLocationName fetches the human-readable name of a location.
// Callers treat failures as non-fatal.
func (c *Client) GetLocationName(ctx context.Context, accessToken, locationID string) (string, error) {
	var result struct {
		Name     string `json:"name"`
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers(accessToken)).
		SetResult(&result).
		Get(c.baseURL + "/locations/" + locationID)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("get location %s: status %d", locationID, resp.StatusCode())
	}
	if result.Name != "" {
		return result.Name, nil
	}
	if result.Location.Name != "" {
		return result.Location.Name, nil
	}
	return fmt.Sprintf("Location %s", locationID), nil
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }
