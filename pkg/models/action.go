package models

import "time"

// ActionRecord is the audit record of one executed action tool. An entry is
// appended for failures too, so Coverage never re-proposes a tool that has
// already been attempted.
type ActionRecord struct {
	HopNumber       int            `json:"hop_number"`
	ToolName        string         `json:"tool_name"`
	Parameters      map[string]any `json:"parameters"`
	ToolResult      any            `json:"tool_result,omitempty"`
	ExecutionTimeMs float64        `json:"execution_time_ms"`
	Success         bool           `json:"success"`
	Error           string         `json:"error,omitempty"`
	AuditNotes      string         `json:"audit_notes"`
	Timestamp       time.Time      `json:"timestamp"`
}
