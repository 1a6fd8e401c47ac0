package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talent-success/melvin/pkg/models"
)

// trustedParameter is a schema property whose value the model may not
// choose. Whenever a tool's input schema declares the property, the
// trusted value is written over whatever the plan produced.
type trustedParameter struct {
	name  string
	value any
}

// trustedParameters pins the caller identity and the dry-run flag. The
// verified email from Intercom is the only identity the tool server ever
// sees, no matter what the model hallucinated.
func (r *run) trustedParameters() []trustedParameter {
	return []trustedParameter{
		{"user_email", r.state.UserDetails.Email},
		{"conversation_id", r.state.ConversationID},
		{"dry_run", r.cfg.DryRun},
	}
}

// sanitizePlan filters the model's tool calls down to the ones that are
// safe to keep: the tool must exist in the catalog and the parameters must
// validate against its input schema after the trusted values are pinned.
// Dropped calls are logged, never fatal. Retained calls are partitioned by
// tool type; action calls wait for a Coverage decision.
func (r *run) sanitizePlan(response *models.PlanResponse) *models.PlanData {
	logger := r.stageLogger("plan")
	trusted := r.trustedParameters()

	data := &models.PlanData{
		Reasoning: response.Reasoning,
		Timestamp: time.Now().UTC(),
	}

	for _, call := range response.ToolCalls {
		tool, ok := r.state.AvailableTools[call.ToolName]
		if !ok {
			logger.Warn("dropping call to unknown tool", "tool", call.ToolName)
			continue
		}

		sanitized := pinTrustedParameters(call.Parameters, tool.InputSchema, trusted, logger)

		if err := validateAgainstSchema(tool.Name, tool.InputSchema, sanitized); err != nil {
			logger.Warn("dropping call with invalid parameters",
				"tool", call.ToolName, "error", err)
			continue
		}

		kept := models.ToolCall{
			ToolName:   call.ToolName,
			Parameters: sanitized,
			Reasoning:  call.Reasoning,
		}
		data.ToolCalls = append(data.ToolCalls, kept)
		if tool.Type.IsAction() {
			data.ActionToolCalls = append(data.ActionToolCalls, kept)
		} else {
			data.GatherToolCalls = append(data.GatherToolCalls, kept)
		}
	}

	if dropped := len(response.ToolCalls) - len(data.ToolCalls); dropped > 0 {
		logger.Info("plan sanitized", "kept", len(data.ToolCalls), "dropped", dropped)
	}
	return data
}

// pinTrustedParameters copies the call's parameters and overwrites every
// property the tool's schema declares under a trusted name. Missing
// properties are injected, mismatched ones replaced.
func pinTrustedParameters(params map[string]any, schema map[string]any, trusted []trustedParameter, logger *slog.Logger) map[string]any {
	sanitized := make(map[string]any, len(params)+len(trusted))
	for k, v := range params {
		sanitized[k] = v
	}

	properties, _ := schema["properties"].(map[string]any)
	for _, tp := range trusted {
		if _, declared := properties[tp.name]; !declared {
			continue
		}
		if prev, present := sanitized[tp.name]; present && prev != tp.value {
			logger.Warn("replacing untrusted parameter", "parameter", tp.name)
		}
		sanitized[tp.name] = tp.value
	}
	return sanitized
}

// validateAgainstSchema checks the sanitized parameters against the tool's
// input schema. Schemas without properties accept anything.
func validateAgainstSchema(toolName string, schema map[string]any, params map[string]any) error {
	properties, ok := schema["properties"].(map[string]any)
	if !ok || len(properties) == 0 {
		return nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	compiled, err := jsonschema.CompileString(toolName+".schema.json", string(raw))
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return compiled.Validate(asJSONValue(params))
}

// asJSONValue round-trips parameters through JSON so the validator sees
// only JSON-native types regardless of how values were injected.
func asJSONValue(params map[string]any) any {
	raw, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return params
	}
	return decoded
}
