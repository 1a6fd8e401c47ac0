package agent

import (
	"context"
	"fmt"

	"github.com/talent-success/melvin/pkg/agent/prompt"
	"github.com/talent-success/melvin/pkg/llm"
	"github.com/talent-success/melvin/pkg/models"
	"github.com/talent-success/melvin/pkg/prompts"
)

// plan asks the planner model which tools to run for the current hop,
// sanitizes the result, and opens a new hop record. Action tools in the
// plan are proposals; only Coverage can decide to execute one.
func (r *run) plan(ctx context.Context) {
	logger := r.stageLogger("plan")

	history, userDetails, err := prompt.ConversationContext(r.state)
	if err != nil {
		r.state.Error = err.Error()
		r.state.NextNode = models.NodeEscalate
		logger.Error("cannot build conversation context", "error", err)
		return
	}

	fail := func(err error) {
		msg := fmt.Sprintf("Plan generation failed: %v", err)
		r.state.Error = msg
		r.state.EscalationReason = msg
		r.state.NextNode = models.NodeEscalate
		logger.Error("plan generation failed", "error", err)
	}

	contextInfo := prompt.FormatPlanContext(prompt.BuildPlanContext(r.state))
	if proc := r.state.SelectedProcedure; proc != nil {
		name := proc.Title
		if name == "" {
			name = proc.ID
		}
		contextInfo += fmt.Sprintf("\n\n- Matched internal procedure: %s\n%s", name, proc.Content)
	}

	template, err := r.prompts.Get(ctx, prompts.PlanPrompt)
	if err != nil {
		fail(err)
		return
	}

	rendered := prompts.Render(template, map[string]string{
		"conversation_history": history,
		"user_details":         userDetails,
		"context_info":         contextInfo,
		"available_tools":      prompt.FormatToolCatalog(r.state.AvailableTools),
	})

	response, err := llm.CreateStructured[models.PlanResponse](ctx, r.llm, llm.Request{
		User:        rendered,
		Temperature: r.cfg.LLM.PlannerTemperature,
	}, llm.FunctionSpec{
		Name:        "create_plan",
		Description: "Record the tool execution plan for this conversation",
	})
	if err != nil {
		fail(err)
		return
	}

	hop := r.state.BeginHop()
	hop.Plan = r.sanitizePlan(response)
	r.state.NextNode = models.NodeGather

	logger.Info("plan generated",
		"hop", hop.HopNumber,
		"tool_calls", len(hop.Plan.ToolCalls),
		"gather_calls", len(hop.Plan.GatherToolCalls),
		"action_calls", len(hop.Plan.ActionToolCalls))
}
