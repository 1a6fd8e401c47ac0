package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/talent-success/melvin/pkg/agent/prompt"
	"github.com/talent-success/melvin/pkg/llm"
	"github.com/talent-success/melvin/pkg/models"
	"github.com/talent-success/melvin/pkg/prompts"
)

// coverage decides whether the gathered data suffices to answer the user.
// The model proposes a next action; hard budget limits override it before
// routing. The verdict is recorded on the current hop.
func (r *run) coverage(ctx context.Context) {
	logger := r.stageLogger("coverage")

	fail := func(err error) {
		msg := fmt.Sprintf("Coverage analysis failed: %v", err)
		r.state.Error = msg
		r.state.EscalationReason = msg
		r.state.NextNode = models.NodeEscalate
		logger.Error("coverage analysis failed", "error", err)
	}

	hop := r.state.CurrentHop()
	if hop == nil {
		fail(fmt.Errorf("no current hop"))
		return
	}

	history, userDetails, err := prompt.ConversationContext(r.state)
	if err != nil {
		fail(err)
		return
	}

	var planReasoning string
	var plannedActions []models.ToolCall
	if hop.Plan != nil {
		planReasoning = hop.Plan.Reasoning
		plannedActions = hop.Plan.ActionToolCalls
	}

	availableData := prompt.SummarizeAvailableData(prompt.AvailableData{
		ToolData:        r.state.ToolData,
		DocsData:        r.state.DocsData,
		PlanReasoning:   planReasoning,
		PlannedActions:  plannedActions,
		ExecutedActions: r.state.Actions,
		ActionsTaken:    r.state.ActionsTaken,
		MaxActions:      r.state.MaxActions,
		HopNumber:       hop.HopNumber,
		MaxHops:         r.state.MaxHops,
	})

	template, err := r.prompts.Get(ctx, prompts.CoveragePrompt)
	if err != nil {
		fail(err)
		return
	}

	rendered := prompts.Render(template, map[string]string{
		"conversation_history": history,
		"user_details":         userDetails,
		"available_data":       availableData,
	})

	response, err := llm.CreateStructured[models.CoverageResponse](ctx, r.llm, llm.Request{
		User:        rendered,
		Temperature: r.cfg.LLM.PlannerTemperature,
	}, llm.FunctionSpec{
		Name:        "analyze_coverage",
		Description: "Record the data sufficiency verdict and next action",
	})
	if err != nil {
		fail(err)
		return
	}

	// Insufficient data on the final hop escalates no matter what the
	// model chose.
	if !response.DataSufficient && hop.HopNumber >= r.state.MaxHops {
		response.NextAction = models.NextActionEscalate
		response.EscalationReason = maxHopsReason(r.state.MaxHops)
	}

	next := r.routeCoverage(response, hop)

	hop.Coverage = &models.CoverageData{
		Response:  *response,
		NextNode:  next,
		Timestamp: time.Now().UTC(),
	}
	r.state.NextNode = next

	logger.Info("coverage decided",
		"hop", hop.HopNumber,
		"data_sufficient", response.DataSufficient,
		"confidence", response.Confidence,
		"next_action", response.NextAction,
		"next_node", next)
}

// routeCoverage maps the verdict to the next stage, enforcing the hop and
// action budgets. Unusable execute_action verdicts degrade to drafting.
func (r *run) routeCoverage(response *models.CoverageResponse, hop *models.HopRecord) models.Node {
	logger := r.stageLogger("coverage")

	switch response.NextAction {
	case models.NextActionGatherMore:
		if hop.HopNumber >= r.state.MaxHops {
			response.NextAction = models.NextActionEscalate
			response.EscalationReason = maxHopsReason(r.state.MaxHops)
			r.state.EscalationReason = response.EscalationReason
			logger.Warn("hop budget reached, escalating", "max_hops", r.state.MaxHops)
			return models.NodeEscalate
		}
		return models.NodePlan

	case models.NextActionExecuteAction:
		if r.state.ActionsTaken >= r.state.MaxActions {
			logger.Warn("action budget exhausted, drafting instead",
				"actions_taken", r.state.ActionsTaken, "max_actions", r.state.MaxActions)
			return models.NodeDraft
		}
		if response.ActionDecision == nil {
			logger.Warn("execute_action verdict without a decision, drafting instead")
			return models.NodeDraft
		}
		var planned []models.ToolCall
		if hop.Plan != nil {
			planned = hop.Plan.ActionToolCalls
		}
		if findToolCall(planned, response.ActionDecision.ActionToolName) == nil {
			logger.Warn("decided action was not planned, drafting instead",
				"tool", response.ActionDecision.ActionToolName)
			return models.NodeDraft
		}
		return models.NodeAction

	case models.NextActionEscalate:
		r.state.EscalationReason = response.EscalationReason
		return models.NodeEscalate

	default: // continue
		return models.NodeDraft
	}
}

func maxHopsReason(maxHops int) string {
	return fmt.Sprintf("Exceeded maximum hops (%d). Unable to gather sufficient data.", maxHops)
}

// findToolCall returns the planned call with the given tool name, or nil.
func findToolCall(calls []models.ToolCall, name string) *models.ToolCall {
	for i := range calls {
		if calls[i].ToolName == name {
			return &calls[i]
		}
	}
	return nil
}
