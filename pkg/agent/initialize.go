package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/talent-success/melvin/pkg/models"
)

// fallbackResponse is surfaced when the run cannot even reach its upstream
// services; delivery is still attempted on the escalation path.
const fallbackResponse = "Sorry, I'm unable to connect to the required services right now."

// initialize fetches the conversation from Intercom and the tool catalog
// from the tool server, then seeds the run state. Any failure here aborts
// the run straight into escalation.
func (r *run) initialize(ctx context.Context) {
	logger := r.stageLogger("initialize")
	record := &models.InitializeRecord{Timestamp: time.Now().UTC()}
	r.state.Initialize = record

	if r.state.ConversationID == "" {
		record.Error = "conversation_id is required"
		r.state.Error = record.Error
		r.state.NextNode = models.NodeEscalate
		logger.Error("missing conversation id")
		return
	}

	r.state.MelvinAdminID = r.intercom.AdminID()

	fail := func(err error) {
		record.Error = fmt.Sprintf("Initialization failed: %v", err)
		r.state.Error = record.Error
		r.state.EscalationReason = record.Error
		r.state.Response = fallbackResponse
		r.state.NextNode = models.NodeEscalate
		logger.Error("initialization failed", "error", err)
	}

	data, err := r.intercom.GetConversationData(ctx, r.state.ConversationID)
	if err != nil {
		fail(err)
		return
	}
	if len(data.Messages) == 0 && strings.TrimSpace(data.Subject) == "" {
		fail(fmt.Errorf("no messages or subject found in conversation %s", r.state.ConversationID))
		return
	}

	r.state.Messages = data.Messages
	r.state.Subject = data.Subject
	r.state.UserDetails = models.UserDetails{Name: data.UserName, Email: data.UserEmail}

	tools, err := r.tools.ListTools(ctx)
	if err != nil {
		fail(err)
		return
	}

	// The tool server does not classify its tools; the ticket-link tool is
	// the one side-effecting entry, everything else is read-only.
	for _, tool := range tools {
		toolType := models.ToolTypeGather
		if tool.Name == models.ToolMatchTicket {
			toolType = models.ToolTypeInternalAction
		}
		r.state.AvailableTools[tool.Name] = models.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
			Type:        toolType,
		}
	}

	record.Success = true
	r.state.NextNode = models.NodeProcedure
	logger.Info("initialized",
		"messages", len(r.state.Messages),
		"user_email", r.state.UserDetails.Email,
		"tools", len(r.state.AvailableTools))
}
