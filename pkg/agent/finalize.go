package agent

import (
	"context"
	"strings"
	"time"

	"github.com/talent-success/melvin/pkg/models"
)

// melvinStatusAttribute is the Intercom custom attribute that records
// the run outcome on the conversation.
const melvinStatusAttribute = "Melvin Status"

// finalize writes the outcome attribute and snoozes the conversation so
// it resurfaces for a human shortly after. Both calls are best effort;
// the graph always ends after this stage.
func (r *run) finalize(ctx context.Context) {
	logger := r.stageLogger("finalize")

	record := models.FinalizeRecord{
		Status:    determineStatus(r.state),
		Timestamp: time.Now().UTC(),
	}

	if r.state.ConversationID == "" || r.state.MelvinAdminID == "" {
		logger.Warn("skipping finalization, missing conversation or admin id")
		r.state.Finalize = &record
		r.state.NextNode = models.NodeEnd
		return
	}

	if err := r.intercom.UpdateCustomAttribute(ctx, r.state.ConversationID,
		melvinStatusAttribute, string(record.Status)); err != nil {
		logger.Warn("failed to update status attribute", "status", record.Status, "error", err)
	} else {
		record.AttributeUpdated = true
	}

	snoozeUntil := time.Now().Add(r.cfg.Agent.SnoozeDuration)
	if err := r.intercom.SnoozeConversation(ctx, r.state.ConversationID, snoozeUntil); err != nil {
		logger.Warn("failed to snooze conversation", "error", err)
	} else {
		record.Snoozed = true
	}

	r.state.Finalize = &record
	r.state.NextNode = models.NodeEnd

	logger.Info("run finalized", "status", record.Status,
		"attribute_updated", record.AttributeUpdated, "snoozed", record.Snoozed)
}

// determineStatus maps the workflow outcome to the status attribute. A
// ROUTE_TO_TEAM draft wins over everything else because the user was
// told a human will follow up.
func determineStatus(state *models.State) models.MelvinStatus {
	if state.Draft != nil && state.Draft.ResponseType == models.ResponseTypeRouteToTeam {
		return models.StatusRouteToTeam
	}

	if state.Escalate != nil {
		if strings.Contains(strings.ToLower(state.EscalationReason), "requested to talk to a human") {
			return models.StatusRouteToTeam
		}
		switch state.Escalate.Source {
		case models.SourceValidate:
			return models.StatusValidationFailed
		case models.SourceDraft:
			return models.StatusResponseFailed
		case models.SourceCoverage:
			return models.StatusRouteToTeam
		case models.SourceInitialization:
			return models.StatusError
		default:
			return models.StatusError
		}
	}

	if state.ResponseDelivery != nil {
		if state.ResponseDelivery.IntercomDelivered {
			return models.StatusSuccess
		}
		return models.StatusMessageFailed
	}

	return models.StatusError
}
