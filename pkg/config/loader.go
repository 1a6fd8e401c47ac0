package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// melvinYAMLConfig represents the optional melvin.yaml file structure.
// Durations are strings ("30s", "2m") parsed during resolution.
type melvinYAMLConfig struct {
	Intercom   intercomYAMLConfig   `yaml:"intercom"`
	MCP        mcpYAMLConfig        `yaml:"mcp"`
	LLM        llmYAMLConfig        `yaml:"llm"`
	Validation validationYAMLConfig `yaml:"validation"`
	Prompts    promptsYAMLConfig    `yaml:"prompts"`
	Agent      agentYAMLConfig      `yaml:"agent"`
	Eval       evalYAMLConfig       `yaml:"eval"`
	DryRun     *bool                `yaml:"dry_run,omitempty"`
}

type intercomYAMLConfig struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	APIVersion     string `yaml:"api_version,omitempty"`
	Timeout        string `yaml:"timeout,omitempty"`
	MaxRetries     int    `yaml:"max_retries,omitempty"`
	RetryBaseDelay string `yaml:"retry_base_delay,omitempty"`
}

type mcpYAMLConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

type llmYAMLConfig struct {
	Model              string  `yaml:"model,omitempty"`
	PlannerTemperature float32 `yaml:"planner_temperature,omitempty"`
	DrafterTemperature float32 `yaml:"drafter_temperature,omitempty"`
}

type validationYAMLConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
}

type promptsYAMLConfig struct {
	Project          string `yaml:"project,omitempty"`
	CacheTTL         string `yaml:"cache_ttl,omitempty"`
	LocalDir         string `yaml:"local_dir,omitempty"`
	UseLocalCoverage *bool  `yaml:"use_local_coverage,omitempty"`
}

type agentYAMLConfig struct {
	MaxHops        int    `yaml:"max_hops,omitempty"`
	MaxActions     int    `yaml:"max_actions,omitempty"`
	ProcedureTopK  int    `yaml:"procedure_top_k,omitempty"`
	SnoozeDuration string `yaml:"snooze_duration,omitempty"`
}

type evalYAMLConfig struct {
	Parallelism int    `yaml:"parallelism,omitempty"`
	OutputDir   string `yaml:"output_dir,omitempty"`
}

// Load resolves configuration for a run. Layering, lowest to highest
// precedence: built-in defaults, melvin.yaml in configDir, environment
// variables. A .env file in configDir is loaded into the process
// environment first; both files are optional.
func Load(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)

	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err == nil {
		log.Debug("Loaded environment file", "path", envPath)
	}

	cfg := DefaultConfig()

	raw, err := readMelvinYAML(filepath.Join(configDir, "melvin.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load melvin.yaml: %w", err)
	}
	if raw != nil {
		overrides, err := resolveOverrides(raw)
		if err != nil {
			return nil, err
		}
		// Non-zero override values win; unset fields keep defaults.
		if err := mergo.Merge(cfg, overrides, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge melvin.yaml overrides: %w", err)
		}
		if raw.DryRun != nil {
			cfg.DryRun = *raw.DryRun
		}
		if raw.Prompts.UseLocalCoverage != nil {
			cfg.Prompts.UseLocalCoverage = *raw.Prompts.UseLocalCoverage
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "Configuration loaded",
		"model", cfg.LLM.Model,
		"max_hops", cfg.Agent.MaxHops,
		"max_actions", cfg.Agent.MaxActions,
		"dry_run", cfg.DryRun)

	return cfg, nil
}

// readMelvinYAML reads and parses melvin.yaml. A missing file is not an
// error; environment variables alone are a complete configuration.
func readMelvinYAML(path string) (*melvinYAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var raw melvinYAMLConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &raw, nil
}

// resolveOverrides converts the YAML file into a sparse Config carrying
// only the values the file actually set.
func resolveOverrides(raw *melvinYAMLConfig) (*Config, error) {
	var cfg Config
	var err error

	cfg.Intercom.BaseURL = raw.Intercom.BaseURL
	cfg.Intercom.APIVersion = raw.Intercom.APIVersion
	cfg.Intercom.MaxRetries = raw.Intercom.MaxRetries
	if cfg.Intercom.Timeout, err = parseDuration("intercom", "timeout", raw.Intercom.Timeout); err != nil {
		return nil, err
	}
	if cfg.Intercom.RetryBaseDelay, err = parseDuration("intercom", "retry_base_delay", raw.Intercom.RetryBaseDelay); err != nil {
		return nil, err
	}

	cfg.MCP.BaseURL = raw.MCP.BaseURL
	if cfg.MCP.Timeout, err = parseDuration("mcp", "timeout", raw.MCP.Timeout); err != nil {
		return nil, err
	}

	cfg.LLM.Model = raw.LLM.Model
	cfg.LLM.PlannerTemperature = raw.LLM.PlannerTemperature
	cfg.LLM.DrafterTemperature = raw.LLM.DrafterTemperature

	cfg.Validation.Endpoint = raw.Validation.Endpoint
	if cfg.Validation.Timeout, err = parseDuration("validation", "timeout", raw.Validation.Timeout); err != nil {
		return nil, err
	}

	cfg.Prompts.Project = raw.Prompts.Project
	cfg.Prompts.LocalDir = raw.Prompts.LocalDir
	if cfg.Prompts.CacheTTL, err = parseDuration("prompts", "cache_ttl", raw.Prompts.CacheTTL); err != nil {
		return nil, err
	}

	cfg.Agent.MaxHops = raw.Agent.MaxHops
	cfg.Agent.MaxActions = raw.Agent.MaxActions
	cfg.Agent.ProcedureTopK = raw.Agent.ProcedureTopK
	if cfg.Agent.SnoozeDuration, err = parseDuration("agent", "snooze_duration", raw.Agent.SnoozeDuration); err != nil {
		return nil, err
	}

	cfg.Eval.Parallelism = raw.Eval.Parallelism
	cfg.Eval.OutputDir = raw.Eval.OutputDir

	return &cfg, nil
}

// applyEnv overlays environment variables onto the resolved configuration.
func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Intercom.APIKey, "INTERCOM_API_KEY")
	setFromEnv(&cfg.Intercom.AdminID, "MELVIN_ADMIN_ID")
	setFromEnv(&cfg.MCP.BaseURL, "MCP_BASE_URL")
	setFromEnv(&cfg.MCP.AuthToken, "MCP_AUTH_TOKEN")
	setFromEnv(&cfg.Validation.Endpoint, "VALIDATION_ENDPOINT")
	setFromEnv(&cfg.Validation.APIKey, "VALIDATION_API_KEY")
	setFromEnv(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setFromEnv(&cfg.LLM.Model, "MODEL_NAME")
	setFromEnv(&cfg.Prompts.LangSmithAPIKey, "LANGSMITH_API_KEY")
	setFromEnv(&cfg.Prompts.Project, "LANGSMITH_PROJECT")

	if v, ok := os.LookupEnv("DRY_RUN"); ok {
		cfg.DryRun = parseBool(v)
	}
	if v, ok := os.LookupEnv("USE_LOCAL_COVERAGE_PROMPT"); ok {
		cfg.Prompts.UseLocalCoverage = parseBool(v)
	}
	if v := os.Getenv("PROCEDURE_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.ProcedureTopK = n
		} else {
			slog.Warn("Ignoring invalid PROCEDURE_TOP_K", "value", v)
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// parseBool accepts the truthy spellings commonly found in deployment
// environment files.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func parseDuration(section, field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, NewValidationError(section, field,
			fmt.Errorf("%w: %q is not a valid duration", ErrInvalidValue, value))
	}
	return d, nil
}

// validate performs structural checks. Credentials are deliberately not
// required here: missing Intercom or LLM credentials surface as
// initialization errors on the run, and a missing validation endpoint
// surfaces at the Validate stage.
func validate(cfg *Config) error {
	if cfg.Agent.MaxHops < 1 {
		return NewValidationError("agent", "max_hops", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if cfg.Agent.MaxActions < 0 {
		return NewValidationError("agent", "max_actions", fmt.Errorf("%w: must not be negative", ErrInvalidValue))
	}
	if cfg.Agent.ProcedureTopK < 1 {
		return NewValidationError("agent", "procedure_top_k", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if cfg.Eval.Parallelism < 1 {
		return NewValidationError("eval", "parallelism", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	for _, check := range []struct {
		section string
		timeout time.Duration
	}{
		{"intercom", cfg.Intercom.Timeout},
		{"mcp", cfg.MCP.Timeout},
		{"validation", cfg.Validation.Timeout},
	} {
		if check.timeout <= 0 {
			return NewValidationError(check.section, "timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
	}
	return nil
}
