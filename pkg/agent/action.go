package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/talent-success/melvin/pkg/agent/prompt"
	"github.com/talent-success/melvin/pkg/mcp"
	"github.com/talent-success/melvin/pkg/models"
)

// action executes the one action tool Coverage decided on, using the
// parameters the plan validated. The attempt is recorded and counted
// whether it succeeds or not, and an audit note is posted either way.
// Success returns to Coverage for re-evaluation; failure escalates.
func (r *run) action(ctx context.Context) {
	logger := r.stageLogger("action")

	fail := func(msg string) {
		r.state.Error = msg
		r.state.EscalationReason = msg
		r.state.NextNode = models.NodeEscalate
		logger.Error("action stage aborted", "error", msg)
	}

	hop := r.state.CurrentHop()
	if hop == nil {
		fail("No current hop data found")
		return
	}
	if hop.Coverage == nil {
		fail("No coverage response found")
		return
	}
	decision := hop.Coverage.Response.ActionDecision
	if decision == nil {
		fail("No action decision specified by coverage node")
		return
	}
	if decision.ActionToolName == "" {
		fail("No action tool name in coverage decision")
		return
	}

	var planned []models.ToolCall
	if hop.Plan != nil {
		planned = hop.Plan.ActionToolCalls
	}
	call := findToolCall(planned, decision.ActionToolName)
	if call == nil {
		fail(fmt.Sprintf("Action tool '%s' not found in Plan's suggestions", decision.ActionToolName))
		return
	}

	logger.Info("executing action tool", "tool", call.ToolName, "hop", hop.HopNumber,
		"coverage_reasoning", decision.Reasoning)

	start := time.Now()
	record := models.ActionRecord{
		HopNumber:  hop.HopNumber,
		ToolName:   call.ToolName,
		Parameters: call.Parameters,
		Timestamp:  time.Now().UTC(),
	}

	payload, err := r.executeActionTool(ctx, call)
	record.ExecutionTimeMs = msSince(start)

	if err != nil {
		record.Error = fmt.Sprintf("Action tool execution failed: %v", err)
		record.AuditNotes = prompt.FormatActionAuditNote(
			call.ToolName, call.Parameters, nil, record.ExecutionTimeMs, false, record.Error)
	} else {
		record.Success = true
		record.ToolResult = payload
		record.AuditNotes = prompt.FormatActionAuditNote(
			call.ToolName, call.Parameters, payload, record.ExecutionTimeMs, true, "")
	}

	// Failed attempts count against the budget too, so Coverage cannot
	// retry a tool that already fired.
	r.state.Actions = append(r.state.Actions, record)
	r.state.ActionsTaken++

	r.postActionNote(ctx, record)

	if record.Success {
		r.state.NextNode = models.NodeCoverage
		logger.Info("action tool executed", "tool", call.ToolName,
			"execution_ms", record.ExecutionTimeMs,
			"actions_taken", r.state.ActionsTaken)
		return
	}

	r.state.EscalationReason = fmt.Sprintf("Action tool failed: %s. Error: %s. Human review required.",
		call.ToolName, record.Error)
	r.state.NextNode = models.NodeEscalate
	logger.Error("action tool failed", "tool", call.ToolName, "error", record.Error)
}

// executeActionTool invokes the tool and parses its payload; plain-text
// results keep the text.
func (r *run) executeActionTool(ctx context.Context, call *models.ToolCall) (any, error) {
	content, err := r.tools.CallTool(ctx, call.ToolName, call.Parameters)
	if err != nil {
		return nil, err
	}
	payload, err := mcp.ParseToolResult(content)
	if err != nil {
		if text := mcp.FirstText(content); text != "" {
			return text, nil
		}
		return nil, nil
	}
	return payload, nil
}

// postActionNote documents the execution as an internal note so the team
// sees every side effect. Failures are logged and swallowed.
func (r *run) postActionNote(ctx context.Context, record models.ActionRecord) {
	logger := r.stageLogger("action")
	if r.state.ConversationID == "" || r.state.MelvinAdminID == "" {
		logger.Warn("skipping action note, missing conversation or admin id")
		return
	}

	statusEmoji, statusText := "✅", "SUCCESS"
	if !record.Success {
		statusEmoji, statusText = "❌", "FAILED"
	}

	lines := []string{
		"🤖 **Melvin Action Executed**",
		"",
		fmt.Sprintf("%s **Status:** %s", statusEmoji, statusText),
		fmt.Sprintf("**Action:** `%s`", record.ToolName),
		fmt.Sprintf("**Parameters:** `%s`", jsonCompactParams(record.Parameters)),
		"",
		"**Audit Trail:**",
		record.AuditNotes,
	}
	if record.Error != "" {
		lines = append(lines, "", fmt.Sprintf("**Error:** %s", record.Error))
	}

	if err := r.intercom.AddNote(ctx, r.state.ConversationID, strings.Join(lines, "\n")); err != nil {
		logger.Warn("failed to post action note", "error", err)
	}
}

func jsonCompactParams(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%v", params)
	}
	return string(raw)
}
