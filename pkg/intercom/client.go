package intercom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/talent-success/melvin/pkg/config"
	"github.com/talent-success/melvin/pkg/version"
)

// Client provides HTTP access to the Intercom conversations API. It retries
// rate-limited requests and, in dry-run mode, logs write operations instead
// of executing them.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	apiVersion     string
	adminID        string
	maxRetries     int
	retryBaseDelay time.Duration
	dryRun         bool
	logger         *slog.Logger
}

// NewClient creates an Intercom API client from resolved configuration.
func NewClient(cfg config.IntercomConfig, dryRun bool) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		apiVersion:     cfg.APIVersion,
		adminID:        cfg.AdminID,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		dryRun:         dryRun,
		logger:         slog.Default().With("component", "intercom-client"),
	}
	if c.apiKey == "" {
		c.logger.Warn("No Intercom API key provided")
	}
	if c.dryRun {
		c.logger.Warn("DRY RUN MODE - no Intercom write operations will be executed")
	}
	return c
}

// AdminID returns the admin identity used for replies and notes.
func (c *Client) AdminID() string {
	return c.adminID
}

// doJSON performs one API request and decodes the JSON response into out
// (when non-nil). HTTP 429 is retried up to maxRetries times with
// exponential backoff and jitter; other failures are returned immediately.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	reqURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Intercom-Version", c.apiVersion)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", version.Full())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			resp.Body.Close()
			delay := c.retryBaseDelay*time.Duration(1<<attempt) + time.Duration(rand.Float64()*float64(time.Second))
			c.logger.Warn("Rate limited by Intercom, retrying",
				"method", method,
				"path", path,
				"attempt", attempt+1,
				"delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return fmt.Errorf("intercom returned HTTP %d for %s %s: %s",
				resp.StatusCode, method, path, strings.TrimSpace(string(detail)))
		}

		if out == nil {
			resp.Body.Close()
			return nil
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response for %s %s: %w", method, path, err)
		}
		return nil
	}

	return fmt.Errorf("%s %s: retries exhausted", method, path)
}
