// Package validation sends draft responses to the external validation
// endpoint for policy and intent checks before delivery.
package validation

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

	"github.com/talent-success/melvin/pkg/config"
	"github.com/talent-success/melvin/pkg/version"
)

// ErrNotConfigured indicates the validation endpoint or API key is missing.
var ErrNotConfigured = errors.New("validation endpoint is not configured")

// Verdict is the raw validation response. Endpoints attach arbitrary
// check detail; routing only reads overall_passed.
type Verdict map[string]any

// OverallPassed reports whether the response cleared validation.
// A missing or non-boolean field counts as failed.
func (v Verdict) OverallPassed() bool {
	passed, _ := v["overall_passed"].(bool)
	return passed
}

// ProcessingTimeMs returns the endpoint's self-reported latency, if any.
func (v Verdict) ProcessingTimeMs() float64 {
	ms, _ := v["processing_time_ms"].(float64)
	return ms
}

// Client posts draft responses to the validation endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     *slog.Logger
}

// NewClient creates a validation client from resolved configuration.
func NewClient(cfg config.ValidationConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		logger:     slog.Default().With("component", "validation-client"),
	}
}

// Validate submits a draft reply and returns the endpoint's verdict.
func (c *Client) Validate(ctx context.Context, reply string) (Verdict, error) {
	if c.endpoint == "" || c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]string{"reply": reply})
	if err != nil {
		return nil, fmt.Errorf("marshal validation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("User-Agent", version.Full())

	c.logger.Info("Sending response to validation endpoint", "endpoint", c.endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("validation endpoint returned HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("decode validation response: %w", err)
	}

	c.logger.Info("Validation response received",
		"overall_passed", verdict.OverallPassed(),
		"processing_time_ms", verdict.ProcessingTimeMs())

	return verdict, nil
}
