package api

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
	"time"

	"fabline/internal/services"
)

// Client talks to the daemon's HTTP API. Its job methods mirror JobService so
// callers can switch between remote and direct store access.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs a client for the daemon API at baseURL.
func NewClient(baseURL, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Ping checks that the daemon API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Stats fetches job counts keyed by stage.
func (c *Client) Stats(ctx context.Context) (map[string]int, error) {
	var resp StatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

// List fetches all jobs, optionally filtered to one stage.
func (c *Client) List(ctx context.Context, stage string) ([]JobView, error) {
	path := "/api/jobs"
	if strings.TrimSpace(stage) != "" {
		path += "?stage=" + url.QueryEscape(stage)
	}
	var resp JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Describe fetches a single job, returning nil when it does not exist.
func (c *Client) Describe(ctx context.Context, id string) (*JobView, error) {
	var resp JobResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &resp)
	if services.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Create registers a new order through the daemon.
func (c *Client) Create(ctx context.Context, req CreateJobRequest) (*JobView, error) {
	var resp JobResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

// Transition applies one job or batch transition through the daemon.
func (c *Client) Transition(ctx context.Context, jobID string, req TransitionRequest) (*TransitionResponse, error) {
	var resp TransitionResponse
	path := "/api/jobs/" + url.PathEscape(jobID) + "/transitions"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events fetches transition events after the given cursor. With follow set
// the daemon long-polls until an event arrives or the context ends.
func (c *Client) Events(ctx context.Context, since uint64, limit int, follow bool) (*EventStreamResponse, error) {
	values := url.Values{}
	if since > 0 {
		values.Set("since", strconv.FormatUint(since, 10))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if follow {
		values.Set("follow", "1")
	}
	path := "/api/events"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp EventStreamResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EventsTail fetches the most recent limit events.
func (c *Client) EventsTail(ctx context.Context, limit int) (*EventStreamResponse, error) {
	path := "/api/events?tail=1"
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	var resp EventStreamResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to send a test push notification.
func (c *Client) TestNotification(ctx context.Context) (bool, string, error) {
	var resp struct {
		Sent    bool   `json:"sent"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/notifications/test", nil, &resp); err != nil {
		return false, "", err
	}
	return resp.Sent, resp.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	if c == nil || c.baseURL == "" {
		return services.Wrap(services.ErrConfiguration, "api", "client", "daemon address not configured", nil)
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	message := resp.Status
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", services.ErrValidation, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", services.ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", services.ErrConflict, message)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", services.ErrConfiguration, message)
	default:
		return fmt.Errorf("daemon error: %s", message)
	}
}
