// Package apiclient is a small HTTP client for the Amor API, used by the
// terminal review tool.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"amor/internal/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// Client talks to one Amor server.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken authenticates requests with an existing bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for baseURL, for example "http://localhost:8375".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type authResponse struct {
	Token   string         `json:"token"`
	Session models.Session `json:"session"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var out authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return &out.Session, nil
}

// Session returns the caller's session, or nil when anonymous.
func (c *Client) Session(ctx context.Context) (*models.Session, error) {
	var out *models.Session
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Random draws a random group. A nil group means nothing is eligible.
func (c *Client) Random(ctx context.Context, previousID uint, includeUnapproved bool) (*models.GroupView, error) {
	q := url.Values{}
	if previousID != 0 {
		q.Set("previousId", strconv.FormatUint(uint64(previousID), 10))
	}
	if includeUnapproved {
		q.Set("includeUnapproved", "true")
	}
	path := "/api/groups/random"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Group *models.GroupView `json:"group"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Group, nil
}

// Group fetches one group by id.
func (c *Client) Group(ctx context.Context, id uint) (*models.GroupView, error) {
	var out models.GroupView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/groups/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unapproved returns the current review batch. Requires an admin token.
func (c *Client) Unapproved(ctx context.Context) ([]models.GroupView, error) {
	var out struct {
		Groups []models.GroupView `json:"groups"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/admin/groups/unapproved", nil, &out); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// Approve marks a group approved.
func (c *Client) Approve(ctx context.Context, groupID uint) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/admin/groups/%d/approve", groupID), nil, nil)
}

// Deny rejects and removes a pending group.
func (c *Client) Deny(ctx context.Context, groupID uint) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/admin/groups/%d/deny", groupID), nil, nil)
}

// Notifications lists the caller's notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var out struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// ClearNotifications deletes all of the caller's notifications.
func (c *Client) ClearNotifications(ctx context.Context) (int64, error) {
	var out struct {
		Cleared int64 `json:"cleared"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/notifications", nil, &out); err != nil {
		return 0, err
	}
	return out.Cleared, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body models.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		apiErr.Code = body.Code
	}
	return apiErr
}
