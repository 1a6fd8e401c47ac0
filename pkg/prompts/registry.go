package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/talent-success/melvin/pkg/config"
	"github.com/talent-success/melvin/pkg/version"
)

// Prompt names as stored in the registry.
const (
	PlanPrompt              = "talent-success-agent-plan"
	CoveragePrompt          = "talent-success-agent-coverage"
	DraftPrompt             = "talent-success-agent-draft"
	ProcedureMatchingPrompt = "melvin-procedure-matching-prompt"
)

// defaultBaseURL is the LangSmith API endpoint.
const defaultBaseURL = "https://api.smith.langchain.com"

// localFiles maps prompt names to files under the local prompt directory.
var localFiles = map[string]string{
	PlanPrompt:              "plan_prompt.txt",
	CoveragePrompt:          "coverage_prompt.txt",
	DraftPrompt:             "draft_prompt.txt",
	ProcedureMatchingPrompt: "procedure_matching_prompt.txt",
}

// Registry fetches prompt templates from LangSmith with TTL caching.
// Resolution order: local coverage override (when enabled), cache,
// registry pull, local file fallback.
type Registry struct {
	httpClient       *http.Client
	baseURL          string
	apiKey           string
	localDir         string
	useLocalCoverage bool
	cache            *Cache
	logger           *slog.Logger
}

// NewRegistry creates a prompt registry from resolved configuration.
func NewRegistry(cfg config.PromptsConfig) *Registry {
	return NewRegistryWithBaseURL(cfg, defaultBaseURL)
}

// NewRegistryWithBaseURL creates a registry targeting a custom API URL.
// Useful for testing with a mock server.
func NewRegistryWithBaseURL(cfg config.PromptsConfig, baseURL string) *Registry {
	return &Registry{
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		baseURL:          strings.TrimRight(baseURL, "/"),
		apiKey:           cfg.LangSmithAPIKey,
		localDir:         cfg.LocalDir,
		useLocalCoverage: cfg.UseLocalCoverage,
		cache:            NewCache(cfg.CacheTTL),
		logger:           slog.Default().With("component", "prompt-registry"),
	}
}

// Get returns the template for a prompt name.
func (r *Registry) Get(ctx context.Context, name string) (string, error) {
	// Development override: the coverage prompt comes from disk so edits
	// take effect without a registry push. Never cached.
	if r.useLocalCoverage && name == CoveragePrompt {
		template, err := r.readLocal(name)
		if err != nil {
			return "", fmt.Errorf("local coverage prompt override: %w", err)
		}
		return template, nil
	}

	if template, ok := r.cache.Get(name); ok {
		return template, nil
	}

	template, err := r.pull(ctx, name)
	if err != nil {
		// A local copy keeps development working when the registry is
		// unreachable.
		if local, localErr := r.readLocal(name); localErr == nil {
			r.logger.Warn("Prompt registry unavailable, using local file",
				"prompt", name, "error", err)
			return local, nil
		}
		return "", err
	}

	r.cache.Set(name, template)
	return template, nil
}

// pull fetches the latest commit of a prompt from LangSmith and extracts
// its template text.
func (r *Registry) pull(ctx context.Context, name string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/commits/-/%s/latest?include_model=false", r.baseURL, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", r.apiKey)
	req.Header.Set("User-Agent", version.Full())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch prompt %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("prompt registry returned HTTP %d for %q: %s",
			resp.StatusCode, name, strings.TrimSpace(string(detail)))
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode prompt %q: %w", name, err)
	}

	template, ok := findTemplate(payload)
	if !ok {
		return "", fmt.Errorf("no template found in prompt %q", name)
	}
	return template, nil
}

// readLocal reads a prompt's local file, if the name has one.
func (r *Registry) readLocal(name string) (string, error) {
	file, ok := localFiles[name]
	if !ok {
		return "", fmt.Errorf("no local file mapped for prompt %q", name)
	}
	data, err := os.ReadFile(filepath.Join(r.localDir, file))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// findTemplate walks a registry manifest for the template text. Manifests
// serialize chat prompts several ways; the walk prefers a nested
// "template" string and falls back to a "content" string.
func findTemplate(v any) (string, bool) {
	switch val := v.(type) {
	case map[string]any:
		if t, ok := val["template"].(string); ok && t != "" {
			return t, true
		}
		for _, key := range []string{"manifest", "kwargs", "prompt", "messages"} {
			if child, ok := val[key]; ok {
				if t, ok := findTemplate(child); ok {
					return t, true
				}
			}
		}
		if c, ok := val["content"].(string); ok && c != "" {
			return c, true
		}
	case []any:
		for _, item := range val {
			if t, ok := findTemplate(item); ok {
				return t, true
			}
		}
	}
	return "", false
}
