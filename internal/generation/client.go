// Package generation is the HTTP client for the external content generator.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/microflow"
	"golang.org/x/time/rate"
)

const (
	maxResponseBytes = 1 << 20
	maxSnippetRunes  = 200
)

// ErrUnavailable indicates the generator answered with a non-success status.
var ErrUnavailable = errors.New("content generator unavailable")

// Config configures the generator client.
type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
	// Rate is the sustained request rate per second; zero disables throttling.
	Rate  float64
	Burst int
}

// Client requests structured suggestions over HTTP.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

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

// New creates a generator client.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("generation endpoint is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = microflow.DefaultTimeout
	}
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	c := &Client{
		endpoint: endpoint,
		token:    cfg.Token,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate sends req to the generator and decodes its suggestion.
func (c *Client) Generate(ctx context.Context, req microflow.Request) (*microflow.Suggestion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for generation slot: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding generation request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling generator: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading generator response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, snippet(data))
	}

	var s microflow.Suggestion
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding generator response: %w", err)
	}
	s.Kind = req.Kind
	s.Source = microflow.SourceGenerated

	c.logger.Debug("generation completed", "kind", req.Kind, "duration", time.Since(start))
	return &s, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// snippet trims an error body to a log-friendly length without splitting a rune.
func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if utf8.RuneCountInString(s) <= maxSnippetRunes {
		return s
	}
	return string([]rune(s)[:maxSnippetRunes])
}
