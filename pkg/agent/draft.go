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

// defaultRouteReason is used when the drafter routes to the team without
// saying why.
const defaultRouteReason = "User needs to speak with the team"

// draft turns the gathered data into a reply. Both REPLY and
// ROUTE_TO_TEAM drafts go through validation; a ROUTE_TO_TEAM draft is
// delivered to the user first and escalates afterwards.
func (r *run) draft(ctx context.Context) {
	logger := r.stageLogger("draft")

	history, userDetails, err := prompt.ConversationContext(r.state)
	if err != nil {
		r.state.Error = err.Error()
		r.state.EscalationReason = err.Error()
		r.state.NextNode = models.NodeEscalate
		logger.Error("cannot build conversation context", "error", err)
		return
	}

	start := time.Now()

	fail := func(err error) {
		msg := fmt.Sprintf("Draft generation failed: %v", err)
		r.state.Draft = &models.DraftRecord{
			Response:         "",
			ResponseType:     models.ResponseTypeReply,
			GenerationTimeMs: msSince(start),
			Error:            msg,
			Timestamp:        time.Now().UTC(),
		}
		r.state.Error = msg
		r.state.EscalationReason = fmt.Sprintf("Draft generation error: %v", err)
		r.state.NextNode = models.NodeEscalate
		logger.Error("draft generation failed", "error", err)
	}

	dataSummary := prompt.BuildDraftDataSummary(
		r.state.ToolData, r.state.DocsData, r.state.LatestCoverageReasoning())

	template, err := r.prompts.Get(ctx, prompts.DraftPrompt)
	if err != nil {
		fail(err)
		return
	}

	rendered := prompts.Render(template, map[string]string{
		"conversation_history": history,
		"user_details":         userDetails,
		"data_summary":         dataSummary,
	})

	response, err := llm.CreateStructured[models.DraftResponse](ctx, r.llm, llm.Request{
		User:        rendered,
		ImageURLs:   prompt.ImageAttachmentURLs(r.state.Messages),
		Temperature: r.cfg.LLM.DrafterTemperature,
	}, llm.FunctionSpec{
		Name:        "draft_response",
		Description: "Record the drafted reply for this conversation",
	})
	if err != nil {
		fail(err)
		return
	}

	record := models.DraftRecord{
		Response:         response.Response,
		ResponseType:     response.ResponseType,
		EscalationReason: response.EscalationReason,
		GenerationTimeMs: msSince(start),
		Timestamp:        time.Now().UTC(),
	}
	r.state.Draft = &record
	r.state.Response = response.Response
	r.state.NextNode = models.NodeValidate

	if response.ResponseType == models.ResponseTypeRouteToTeam {
		reason := response.EscalationReason
		if reason == "" {
			reason = defaultRouteReason
		}
		r.state.EscalationReason = reason
		logger.Info("draft routes to team", "escalation_reason", reason,
			"generation_ms", record.GenerationTimeMs)
		return
	}

	logger.Info("draft generated", "generation_ms", record.GenerationTimeMs,
		"response_chars", len(response.Response))
}
