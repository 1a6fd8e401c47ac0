package config

import "time"

// Built-in defaults applied before melvin.yaml and environment overrides.
const (
	DefaultIntercomBaseURL    = "https://api.intercom.io"
	DefaultIntercomAPIVersion = "2.14"
	DefaultModel              = "gpt-4o-mini"
	DefaultMaxHops            = 3
	DefaultMaxActions         = 1
	DefaultProcedureTopK      = 5
	DefaultEvalParallelism    = 3
)

// DefaultConfig returns the built-in configuration baseline.
func DefaultConfig() *Config {
	return &Config{
		Intercom: IntercomConfig{
			BaseURL:        DefaultIntercomBaseURL,
			APIVersion:     DefaultIntercomAPIVersion,
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: time.Second,
		},
		MCP: MCPConfig{
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Model:              DefaultModel,
			PlannerTemperature: 0,
			DrafterTemperature: 0.2,
		},
		Validation: ValidationConfig{
			Timeout: 120 * time.Second,
		},
		Prompts: PromptsConfig{
			CacheTTL: 5 * time.Minute,
			LocalDir: "prompts",
		},
		Agent: AgentConfig{
			MaxHops:        DefaultMaxHops,
			MaxActions:     DefaultMaxActions,
			ProcedureTopK:  DefaultProcedureTopK,
			SnoozeDuration: 300 * time.Second,
		},
		Eval: EvalConfig{
			Parallelism: DefaultEvalParallelism,
			OutputDir:   "eval_results",
		},
	}
}
