package eval

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/talent-success/melvin/pkg/models"
)

// Row is one evaluation result. Free-text fields are flattened to a
// single line so spreadsheet review stays readable.
type Row struct {
	Timestamp        string
	ConversationID   string
	UserEmail        string
	Messages         string
	ToolCalls        string
	Response         string
	EscalationReason string
	Hops             int
	Error            string
}

var csvHeader = []string{
	"timestamp",
	"conversation_id",
	"user_email",
	"messages",
	"tool_calls",
	"response",
	"escalation_reason",
	"hops",
	"error",
}

// RowFromState condenses a finished run into one result row.
func RowFromState(state *models.State) Row {
	return Row{
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ConversationID:   state.ConversationID,
		UserEmail:        state.UserDetails.Email,
		Messages:         summarizeMessages(state.Messages),
		ToolCalls:        summarizeToolCalls(state.Hops),
		Response:         summarizeResponse(state),
		EscalationReason: flatten(state.EscalationReason),
		Hops:             len(state.Hops),
		Error:            flatten(state.Error),
	}
}

func (r Row) record() []string {
	return []string{
		r.Timestamp,
		r.ConversationID,
		r.UserEmail,
		r.Messages,
		r.ToolCalls,
		r.Response,
		r.EscalationReason,
		strconv.Itoa(r.Hops),
		r.Error,
	}
}

// AppendResults appends rows to the CSV at path, creating the directory
// and writing the header when the file is new.
func AppendResults(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	info, err := os.Stat(path)
	needHeader := err != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write results header: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row.record()); err != nil {
			return fmt.Errorf("write result row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func summarizeMessages(messages []models.Message) string {
	if len(messages) == 0 {
		return "No messages"
	}
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, fmt.Sprintf("%s: %s", msg.Role, flatten(msg.Content)))
	}
	return strings.Join(parts, " | ")
}

func summarizeToolCalls(hops []models.HopRecord) string {
	var calls []string
	for _, hop := range hops {
		if hop.Plan == nil {
			continue
		}
		for _, call := range hop.Plan.ToolCalls {
			calls = append(calls, fmt.Sprintf("[Hop %d] %s", hop.HopNumber, call.ToolName))
		}
	}
	if len(calls) == 0 {
		return "No tools"
	}
	return strings.Join(calls, ", ")
}

func summarizeResponse(state *models.State) string {
	if state.Draft != nil {
		return fmt.Sprintf("[%s] %s", state.Draft.ResponseType, flatten(state.Draft.Response))
	}
	if state.Response == "" {
		return "No response"
	}
	return flatten(state.Response)
}

var lineFlattener = strings.NewReplacer("\n", " ", "\r", " ")

func flatten(s string) string {
	return lineFlattener.Replace(s)
}
