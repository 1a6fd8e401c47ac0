package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/talent-success/melvin/pkg/models"
)

// respond delivers the validated reply to the user. A ROUTE_TO_TEAM
// draft is still delivered; the conversation escalates right after so a
// human picks it up with the holding reply already sent.
func (r *run) respond(ctx context.Context) {
	logger := r.stageLogger("response")

	start := time.Now()
	record := models.ResponseRecord{Timestamp: time.Now().UTC()}

	err := r.deliver(ctx)
	record.DeliveryTimeMs = msSince(start)

	if err != nil {
		msg := fmt.Sprintf("Failed to deliver response: %v", err)
		record.Error = msg
		r.state.ResponseDelivery = &record
		r.state.Error = msg
		r.state.EscalationReason = msg
		r.state.NextNode = models.NodeEscalate
		logger.Error("response delivery failed", "error", err)
		return
	}

	record.IntercomDelivered = true
	r.state.ResponseDelivery = &record

	if r.state.Draft != nil && r.state.Draft.ResponseType == models.ResponseTypeRouteToTeam {
		r.state.NextNode = models.NodeEscalate
		logger.Info("reply delivered, escalating as drafted",
			"delivery_ms", record.DeliveryTimeMs)
		return
	}

	r.state.NextNode = models.NodeFinalize
	logger.Info("reply delivered", "delivery_ms", record.DeliveryTimeMs)
}

func (r *run) deliver(ctx context.Context) error {
	if r.state.Response == "" {
		return errors.New("No response text to send")
	}
	if r.state.ConversationID == "" || r.state.MelvinAdminID == "" {
		return errors.New("Missing conversation_id or melvin_admin_id")
	}
	return r.intercom.SendMessage(ctx, r.state.ConversationID, r.state.Response)
}
