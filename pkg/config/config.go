package config

import "time"

// Config holds resolved runtime configuration for the agent. Values are
// layered: built-in defaults, then melvin.yaml overrides, then environment
// variables (environment wins).
type Config struct {
	Intercom   IntercomConfig
	MCP        MCPConfig
	LLM        LLMConfig
	Validation ValidationConfig
	Prompts    PromptsConfig
	Agent      AgentConfig
	Eval       EvalConfig

	// DryRun is injected into every tool call whose schema declares a
	// dry_run property; write paths on the Intercom client are skipped.
	DryRun bool
}

// IntercomConfig holds messaging platform settings.
type IntercomConfig struct {
	APIKey         string        // INTERCOM_API_KEY
	AdminID        string        // MELVIN_ADMIN_ID
	BaseURL        string        // default: https://api.intercom.io
	APIVersion     string        // Intercom-Version header
	Timeout        time.Duration // per-request timeout
	MaxRetries     int           // 429 retries
	RetryBaseDelay time.Duration // exponential backoff base
}

// MCPConfig holds tool server settings.
type MCPConfig struct {
	BaseURL   string // MCP_BASE_URL
	AuthToken string // MCP_AUTH_TOKEN
	Timeout   time.Duration
}

// LLMConfig holds model settings shared by the planner and drafter.
type LLMConfig struct {
	APIKey             string // OPENAI_API_KEY
	Model              string // MODEL_NAME (default: gpt-4o-mini)
	PlannerTemperature float32
	DrafterTemperature float32
}

// ValidationConfig holds policy service settings. Endpoint and key are
// checked at the Validate stage, not at load time, so runs without a
// validation service still initialize.
type ValidationConfig struct {
	Endpoint string // VALIDATION_ENDPOINT
	APIKey   string // VALIDATION_API_KEY
	Timeout  time.Duration
}

// PromptsConfig holds prompt registry settings.
type PromptsConfig struct {
	LangSmithAPIKey string // LANGSMITH_API_KEY
	Project         string // LANGSMITH_PROJECT
	CacheTTL        time.Duration
	LocalDir        string
	// UseLocalCoverage reads the coverage prompt from LocalDir instead of
	// the registry. Development override (USE_LOCAL_COVERAGE_PROMPT).
	UseLocalCoverage bool
}

// AgentConfig holds graph budgets and retrieval knobs.
type AgentConfig struct {
	MaxHops        int
	MaxActions     int
	ProcedureTopK  int // PROCEDURE_TOP_K
	SnoozeDuration time.Duration
}

// EvalConfig holds batch evaluation harness settings.
type EvalConfig struct {
	Parallelism int
	OutputDir   string
}
