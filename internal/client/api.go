// Package client is the kiosk/dashboard side of the attendance channel: a
// local cache of who is in, kept live by broadcasts and healed by polling,
// plus the punch controller that drives it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prudhvinik1/parlourpunch/internal/models"
)

// Backend is what the cache needs from the server.
type Backend interface {
	ListEmployees(ctx context.Context) ([]*models.Employee, error)
	ListRecentLogs(ctx context.Context, limit int) ([]*models.AttendanceEvent, error)
}

// APIClient talks to the REST surface with a bearer token.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (c *APIClient) ListEmployees(ctx context.Context) ([]*models.Employee, error) {
	var out envelope[[]*models.Employee]
	if err := c.get(ctx, "/api/employees", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch employees: %w", err)
	}
	return out.Data, nil
}

func (c *APIClient) ListRecentLogs(ctx context.Context, limit int) ([]*models.AttendanceEvent, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out envelope[[]*models.AttendanceEvent]
	if err := c.get(ctx, "/api/attendance/logs", query, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch attendance logs: %w", err)
	}
	return out.Data, nil
}

func (c *APIClient) get(ctx context.Context, path string, query url.Values, into any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure envelope[json.RawMessage]
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, failure.Message)
	}

	return json.NewDecoder(resp.Body).Decode(into)
}
