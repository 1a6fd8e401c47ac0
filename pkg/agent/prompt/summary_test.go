package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talent-success/melvin/pkg/models"
)

func TestSummarizeAvailableDataEmpty(t *testing.T) {
	got := SummarizeAvailableData(AvailableData{HopNumber: 1, MaxHops: 3})

	assert.Contains(t, got, "CURRENT HOP: 1/3")
	assert.Contains(t, got, "TOOL DATA: None available")
	assert.Contains(t, got, "\nDOCS DATA: None available")
	assert.NotContains(t, got, "EXECUTED ACTIONS")
	assert.NotContains(t, got, "PLANNED ACTION TOOLS")
}

func TestSummarizeAvailableDataFull(t *testing.T) {
	d := AvailableData{
		ToolData: map[string]any{
			"get_user_applications": map[string]any{"applications": []any{}, "total": float64(0)},
		},
		DocsData: map[string]any{
			"refund policy (hop 1)": map[string]any{"query": "refund policy", "total_results": float64(2)},
		},
		PlanReasoning: "User asked about a rejected application",
		PlannedActions: []models.ToolCall{
			{ToolName: models.ToolMatchTicket, Reasoning: "Ticket referenced in conversation", Parameters: map[string]any{"conversation_id": "123"}},
		},
		ActionsTaken: 0,
		MaxActions:   1,
		HopNumber:    2,
		MaxHops:      3,
	}

	got := SummarizeAvailableData(d)

	assert.Contains(t, got, "CURRENT HOP: 2/3")
	assert.Contains(t, got, "PLAN REASONING:\n  User asked about a rejected application")
	assert.Contains(t, got, "TOOL DATA:\n\nget_user_applications:")
	assert.Contains(t, got, "\nDOCS DATA:\n\nQuery: 'refund policy (hop 1)'")
	assert.Contains(t, got, "\n\nPLANNED ACTION TOOLS:")
	assert.Contains(t, got, "Actions taken so far: 0/1")
	assert.Contains(t, got, "You can ONLY decide to execute one of these (by name). DO NOT modify parameters.")
	assert.Contains(t, got, "\n  - Tool Name: match_and_link_conversation_to_ticket")
	assert.Contains(t, got, "    Plan's Reasoning: Ticket referenced in conversation")
	assert.Contains(t, got, `    Parameters (already validated and injected by Plan): {"conversation_id":"123"}`)
}

func TestSummarizeAvailableDataExecutedActions(t *testing.T) {
	d := AvailableData{
		ExecutedActions: []models.ActionRecord{
			{ToolName: models.ToolMatchTicket, Success: true, HopNumber: 1, AuditNotes: "linked ticket ABC-123"},
			{ToolName: "escalate_to_billing", Success: false, HopNumber: 2, AuditNotes: "failed: ticket not found"},
		},
		ActionsTaken: 2,
		MaxActions:   2,
		HopNumber:    2,
		MaxHops:      3,
	}

	got := SummarizeAvailableData(d)

	assert.Contains(t, got, "\n\n⚠️  EXECUTED ACTIONS:")
	assert.Contains(t, got, "The following actions have already been executed in this conversation:")
	assert.Contains(t, got, "\n  1. match_and_link_conversation_to_ticket (✅ SUCCESS) - Hop 1")
	assert.Contains(t, got, "     Audit: linked ticket ABC-123")
	assert.Contains(t, got, "\n  2. escalate_to_billing (❌ FAILED) - Hop 2")
	assert.Contains(t, got, "\n⚠️  DO NOT execute these actions again - they have already been attempted!")
}

func TestSummarizeAvailableDataMaxActionsReached(t *testing.T) {
	d := AvailableData{
		PlannedActions: []models.ToolCall{{ToolName: models.ToolMatchTicket, Reasoning: "r"}},
		ActionsTaken:   1,
		MaxActions:     1,
		HopNumber:      3,
		MaxHops:        3,
	}

	got := SummarizeAvailableData(d)

	assert.Contains(t, got, "⚠️  Maximum actions reached - cannot execute more action tools")
	assert.NotContains(t, got, "  - Tool Name:")
}

func TestFormatDataContent(t *testing.T) {
	tests := []struct {
		name string
		data any
		want []string
	}{
		{
			name: "list of text blocks",
			data: []any{map[string]any{"type": "text", "text": `{"status":"ok"}`}},
			want: []string{`  Item 1: {"status":"ok"}`},
		},
		{
			name: "plain values",
			data: []any{"first", float64(2)},
			want: []string{"  Item 1: first", "  Item 2: 2"},
		},
		{
			name: "scalar",
			data: "plain string",
			want: []string{"  plain string"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDataContent(tt.data))
		})
	}
}

func TestFormatDataContentMap(t *testing.T) {
	got := formatDataContent(map[string]any{"status": "ok"})
	assert.Len(t, got, 1)
	assert.Contains(t, got[0], `"status": "ok"`)
}
