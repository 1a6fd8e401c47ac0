package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/talent-success/melvin/pkg/models"
)

// validate sends the drafted reply to the policy endpoint. The raw
// verdict is posted to the conversation as an internal note whether it
// passed or not; only overall_passed drives routing.
func (r *run) validate(ctx context.Context) {
	logger := r.stageLogger("validate")

	record := models.ValidateRecord{Timestamp: time.Now().UTC()}

	fail := func(err error) {
		msg := fmt.Sprintf("Validation error: %v", err)
		r.state.Validate = &record
		r.state.Error = msg
		r.state.EscalationReason = msg
		r.state.NextNode = models.NodeEscalate
		logger.Error("validation errored", "error", err)
	}

	if r.state.Response == "" {
		fail(errors.New("No response text found to validate"))
		return
	}

	verdict, err := r.validator.Validate(ctx, r.state.Response)
	if err != nil {
		fail(err)
		return
	}
	record.Verdict = verdict
	record.OverallPassed = verdict.OverallPassed()

	logger.Info("validation verdict received",
		"overall_passed", record.OverallPassed,
		"processing_ms", verdict.ProcessingTimeMs())

	record.NotePosted = r.postValidationNote(ctx, verdict)

	r.state.Validate = &record

	if record.OverallPassed {
		r.state.NextNode = models.NodeResponse
		return
	}

	r.state.EscalationReason = "Validation failed - see validation note for details"
	r.state.NextNode = models.NodeEscalate
	logger.Warn("validation failed, escalating")
}

// postValidationNote attaches the raw verdict to the conversation.
// Failures never block routing.
func (r *run) postValidationNote(ctx context.Context, verdict map[string]any) bool {
	logger := r.stageLogger("validate")
	if r.state.ConversationID == "" || r.state.MelvinAdminID == "" {
		logger.Warn("skipping validation note, missing conversation or admin id")
		return false
	}

	status := "❌ FAILED"
	if passed, _ := verdict["overall_passed"].(bool); passed {
		status = "✅ PASSED"
	}
	raw, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		logger.Warn("failed to encode validation verdict", "error", err)
		return false
	}
	body := fmt.Sprintf("🔍 Response Validation Results\n\n**Status**: %s\n\n```json\n%s\n```", status, raw)

	if err := r.intercom.AddNote(ctx, r.state.ConversationID, body); err != nil {
		logger.Warn("failed to post validation note", "error", err)
		return false
	}
	return true
}
