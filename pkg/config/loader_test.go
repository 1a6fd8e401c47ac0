package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearAgentEnv blanks every environment variable the loader reads so
// tests are isolated from the developer's shell.
func clearAgentEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"INTERCOM_API_KEY", "MELVIN_ADMIN_ID",
		"MCP_BASE_URL", "MCP_AUTH_TOKEN",
		"VALIDATION_ENDPOINT", "VALIDATION_API_KEY",
		"OPENAI_API_KEY", "MODEL_NAME",
		"LANGSMITH_API_KEY", "LANGSMITH_PROJECT",
		"DRY_RUN", "USE_LOCAL_COVERAGE_PROMPT", "PROCEDURE_TOP_K",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	clearAgentEnv(t)

	cfg, err := Load(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultIntercomBaseURL, cfg.Intercom.BaseURL)
	assert.Equal(t, DefaultIntercomAPIVersion, cfg.Intercom.APIVersion)
	assert.Equal(t, 30*time.Second, cfg.Intercom.Timeout)
	assert.Equal(t, 3, cfg.Intercom.MaxRetries)
	assert.Equal(t, time.Second, cfg.Intercom.RetryBaseDelay)
	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.Equal(t, float32(0), cfg.LLM.PlannerTemperature)
	assert.Equal(t, float32(0.2), cfg.LLM.DrafterTemperature)
	assert.Equal(t, 120*time.Second, cfg.Validation.Timeout)
	assert.Equal(t, DefaultMaxHops, cfg.Agent.MaxHops)
	assert.Equal(t, DefaultMaxActions, cfg.Agent.MaxActions)
	assert.Equal(t, DefaultProcedureTopK, cfg.Agent.ProcedureTopK)
	assert.Equal(t, 300*time.Second, cfg.Agent.SnoozeDuration)
	assert.Equal(t, DefaultEvalParallelism, cfg.Eval.Parallelism)
	assert.False(t, cfg.DryRun)
}

func TestLoadYAMLOverrides(t *testing.T) {
	clearAgentEnv(t)

	dir := t.TempDir()
	writeConfigFile(t, dir, "melvin.yaml", `
intercom:
  timeout: 45s
  max_retries: 5
llm:
  model: gpt-4o
agent:
  max_hops: 4
  procedure_top_k: 10
  snooze_duration: 10m
eval:
  parallelism: 8
dry_run: true
`)

	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Intercom.Timeout)
	assert.Equal(t, 5, cfg.Intercom.MaxRetries)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 4, cfg.Agent.MaxHops)
	assert.Equal(t, 10, cfg.Agent.ProcedureTopK)
	assert.Equal(t, 10*time.Minute, cfg.Agent.SnoozeDuration)
	assert.Equal(t, 8, cfg.Eval.Parallelism)
	assert.True(t, cfg.DryRun)

	// Unset sections keep their defaults.
	assert.Equal(t, DefaultIntercomBaseURL, cfg.Intercom.BaseURL)
	assert.Equal(t, DefaultMaxActions, cfg.Agent.MaxActions)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	clearAgentEnv(t)

	dir := t.TempDir()
	writeConfigFile(t, dir, "melvin.yaml", `
llm:
  model: gpt-4o
`)
	t.Setenv("MODEL_NAME", "gpt-4o-mini")
	t.Setenv("INTERCOM_API_KEY", "secret-key")
	t.Setenv("MELVIN_ADMIN_ID", "8010164")
	t.Setenv("DRY_RUN", "yes")
	t.Setenv("PROCEDURE_TOP_K", "7")

	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "secret-key", cfg.Intercom.APIKey)
	assert.Equal(t, "8010164", cfg.Intercom.AdminID)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 7, cfg.Agent.ProcedureTopK)
}

func TestLoadDotEnvFile(t *testing.T) {
	clearAgentEnv(t)
	require.NoError(t, os.Unsetenv("MCP_AUTH_TOKEN"))

	dir := t.TempDir()
	writeConfigFile(t, dir, ".env", "MCP_AUTH_TOKEN=token-from-dotenv\n")

	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "token-from-dotenv", cfg.MCP.AuthToken)
}

func TestLoadYAMLEnvExpansion(t *testing.T) {
	clearAgentEnv(t)
	t.Setenv("MELVIN_MCP_HOST", "https://mcp.internal.example.com")

	dir := t.TempDir()
	writeConfigFile(t, dir, "melvin.yaml", `
mcp:
  base_url: "{{.MELVIN_MCP_HOST}}/webhook/talent-success/mcp"
`)

	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "https://mcp.internal.example.com/webhook/talent-success/mcp", cfg.MCP.BaseURL)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearAgentEnv(t)

	dir := t.TempDir()
	writeConfigFile(t, dir, "melvin.yaml", "intercom: [not: a: mapping\n")

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestLoadInvalidDuration(t *testing.T) {
	clearAgentEnv(t)

	dir := t.TempDir()
	writeConfigFile(t, dir, "melvin.yaml", `
intercom:
  timeout: thirty-seconds
`)

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "intercom.timeout")
}

func TestLoadRejectsInvalidBudgets(t *testing.T) {
	clearAgentEnv(t)

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "negative max_hops",
			yaml: "agent:\n  max_hops: -1\n",
			want: "agent.max_hops",
		},
		{
			name: "negative parallelism",
			yaml: "eval:\n  parallelism: -3\n",
			want: "eval.parallelism",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfigFile(t, dir, "melvin.yaml", tt.yaml)

			_, err := Load(context.Background(), dir)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidValue)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, truthy := range []string{"true", "TRUE", "1", "yes", " Yes "} {
		assert.True(t, parseBool(truthy), "expected %q to be truthy", truthy)
	}
	for _, falsy := range []string{"", "false", "0", "no", "off", "junk"} {
		assert.False(t, parseBool(falsy), "expected %q to be falsy", falsy)
	}
}
