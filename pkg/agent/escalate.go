package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/talent-success/melvin/pkg/models"
)

// escalate hands the conversation to a human. A short note carries the
// reason; the full context is already on the conversation from the
// procedure, action, and validation notes. This stage never fails.
func (r *run) escalate(ctx context.Context) {
	logger := r.stageLogger("escalate")

	reason := r.state.EscalationReason
	if reason == "" {
		reason = "Unknown escalation reason"
	}

	record := models.EscalateRecord{
		Reason:    reason,
		Source:    determineEscalationSource(r.state),
		Timestamp: time.Now().UTC(),
	}

	if r.state.ConversationID == "" || r.state.MelvinAdminID == "" {
		logger.Warn("skipping escalation note, missing conversation or admin id")
		r.state.Escalate = &record
		r.state.NextNode = models.NodeEnd
		return
	}

	body := fmt.Sprintf("🚨 Escalation: %s", reason)
	if err := r.intercom.AddNote(ctx, r.state.ConversationID, body); err != nil {
		logger.Warn("failed to post escalation note", "error", err)
	} else {
		record.NotePosted = true
	}

	r.state.Escalate = &record
	r.state.NextNode = models.NodeFinalize

	logger.Info("escalation handled", "reason", reason, "source", record.Source,
		"note_posted", record.NotePosted)
}

// determineEscalationSource attributes the escalation to the stage that
// triggered it. Checks run in pipeline-reverse order so the most recent
// failure wins.
func determineEscalationSource(state *models.State) models.EscalationSource {
	if state.Validate != nil && !state.Validate.OverallPassed {
		return models.SourceValidate
	}
	if hop := state.CurrentHop(); hop != nil {
		if hop.Coverage != nil && hop.Coverage.NextNode == models.NodeEscalate {
			return models.SourceCoverage
		}
	}
	if state.Draft != nil && state.Draft.Error != "" {
		return models.SourceDraft
	}
	if state.Error != "" && len(state.Hops) == 0 {
		return models.SourceInitialization
	}
	return models.SourceUnknown
}
