package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/talent-success/melvin/pkg/mcp"
	"github.com/talent-success/melvin/pkg/models"
)

// referralInstructions is appended to successful get_user_referrals payloads
// so the planner knows how to drill into a specific referral next.
const referralInstructions = "To fetch detailed application information for a specific referral, use the " +
	"'get_referee_applications' tool with the 'referral_id' parameter from the referrals list above. " +
	"This will return all job applications made by that referee, including referral bonus amounts " +
	"locked at application time and application statuses."

// gather runs the hop's planned gather calls sequentially and projects the
// successful payloads into state. A failed call is recorded on its result
// and never fails the hop.
func (r *run) gather(ctx context.Context) {
	logger := r.stageLogger("gather")

	hop := r.state.CurrentHop()
	if hop == nil || hop.Plan == nil {
		msg := "Gather node error: no plan for current hop"
		r.state.Error = msg
		r.state.EscalationReason = msg
		r.state.NextNode = models.NodeEscalate
		logger.Error("no plan for current hop")
		return
	}

	calls := hop.Plan.GatherToolCalls
	if len(calls) == 0 {
		// Normal for simple conversations; coverage decides with what the
		// state already holds.
		hop.Gather = &models.GatherData{
			ToolResults:     []models.ToolCallResult{},
			SuccessRate:     1.0,
			ExecutionStatus: models.GatherStatusCompleted,
		}
		r.state.NextNode = models.NodeCoverage
		logger.Info("no gather tools planned", "hop", hop.HopNumber)
		return
	}

	start := time.Now()
	results := make([]models.ToolCallResult, 0, len(calls))
	succeeded := 0
	for _, call := range calls {
		result := r.executeGatherCall(ctx, call)
		if result.Success {
			succeeded++
		} else {
			logger.Warn("gather call failed", "tool", call.ToolName, "error", result.Error)
		}
		results = append(results, result)
	}

	hop.Gather = &models.GatherData{
		ToolResults:          results,
		TotalExecutionTimeMs: msSince(start),
		SuccessRate:          float64(succeeded) / float64(len(calls)),
		ExecutionStatus:      models.GatherStatusCompleted,
	}

	r.storeGatherResults(hop)
	r.state.NextNode = models.NodeCoverage

	logger.Info("gather complete",
		"hop", hop.HopNumber,
		"succeeded", succeeded,
		"failed", len(calls)-succeeded,
		"total_ms", hop.Gather.TotalExecutionTimeMs)
}

// executeGatherCall invokes one tool and parses its payload. Tools that
// return plain text keep the text as their payload.
func (r *run) executeGatherCall(ctx context.Context, call models.ToolCall) models.ToolCallResult {
	start := time.Now()
	result := models.ToolCallResult{
		ToolName:   call.ToolName,
		Parameters: call.Parameters,
	}

	content, err := r.tools.CallTool(ctx, call.ToolName, call.Parameters)
	if err != nil {
		result.ExecutionTimeMs = msSince(start)
		result.Error = fmt.Sprintf("Tool execution failed: %v", err)
		return result
	}

	payload, err := mcp.ParseToolResult(content)
	if err != nil {
		if text := mcp.FirstText(content); text != "" {
			payload = text
		} else {
			result.ExecutionTimeMs = msSince(start)
			result.Error = fmt.Sprintf("Tool execution failed: %v", err)
			return result
		}
	}

	if call.ToolName == models.ToolGetUserReferrals {
		payload = withReferralInstructions(payload)
	}

	result.ExecutionTimeMs = msSince(start)
	result.Data = payload
	result.Success = true
	return result
}

// storeGatherResults projects successful payloads into state: doc searches
// under a query+hop key, everything else under the tool name (latest call
// wins).
func (r *run) storeGatherResults(hop *models.HopRecord) {
	for _, result := range hop.Gather.ToolResults {
		if !result.Success || result.Data == nil {
			continue
		}
		if result.ToolName == models.ToolSearchDocs {
			key := fmt.Sprintf("%s (hop %d)", docQuery(result.Data), hop.HopNumber)
			r.state.DocsData[key] = result.Data
			continue
		}
		r.state.ToolData[result.ToolName] = result.Data
	}
}

// withReferralInstructions adds the follow-up instructions to a referral
// payload. Object payloads get an extra field; array payloads get it on
// their first object element.
func withReferralInstructions(payload any) any {
	switch data := payload.(type) {
	case map[string]any:
		data["instructions"] = referralInstructions
	case []any:
		for _, item := range data {
			if m, ok := item.(map[string]any); ok {
				m["instructions"] = referralInstructions
				break
			}
		}
	}
	return payload
}

// docQuery extracts the echoed query from a parsed doc-search payload.
func docQuery(payload any) string {
	if m, ok := payload.(map[string]any); ok {
		if q, ok := m["query"].(string); ok && q != "" {
			return q
		}
	}
	return "unknown_query"
}

// msSince returns elapsed wall time in milliseconds.
func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
