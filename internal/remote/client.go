// Package remote is the HTTP client for the cloud project store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

const (
	// DefaultTimeout bounds a single fetch or push.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
)

// Config configures the remote store client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client implements cloudsync.Remote over the remote store's HTTP API.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *slog.Logger
}

var _ cloudsync.Remote = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a remote store client.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("remote base URL is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing remote base URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		base:   base,
		token:  cfg.Token,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch downloads the remote copy of a project.
func (c *Client) Fetch(ctx context.Context, id string) (*project.Record, error) {
	data, status, err := c.do(ctx, http.MethodGet, id, nil)
	if err != nil {
		return nil, err
	}
	if err := classify(status, data); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", id, err)
	}

	var rec project.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding remote project %s: %w", id, err)
	}
	return &rec, nil
}

// Push uploads rec. A 409 means the remote already holds a newer revision.
func (c *Client) Push(ctx context.Context, rec *project.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encoding project %s: %v", cloudsync.ErrRemoteRejected, rec.ID, err)
	}
	data, status, err := c.do(ctx, http.MethodPut, rec.ID, body)
	if err != nil {
		return err
	}
	if err := classify(status, data); err != nil {
		return fmt.Errorf("pushing %s revision %d: %w", rec.ID, rec.Revision, err)
	}
	c.logger.Debug("pushed project", "project_id", rec.ID, "revision", rec.Revision)
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, id string, body []byte) ([]byte, int, error) {
	endpoint := c.base.JoinPath("v1", "projects", id)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: creating request: %v", cloudsync.ErrRemoteRejected, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling remote store: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("reading remote response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// classify maps a status code onto the sync error taxonomy. 5xx, 408 and 429 stay transient.
func classify(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return cloudsync.ErrRemoteNotFound
	case status == http.StatusConflict:
		return cloudsync.ErrRemoteConflict
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("remote store status %d: %s", status, message(body))
	default:
		return fmt.Errorf("%w: status %d: %s", cloudsync.ErrRemoteRejected, status, message(body))
	}
}

func message(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
