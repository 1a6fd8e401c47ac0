package models

import "time"

// HopRecord captures one Plan → Gather → Coverage cycle. Tool calls and
// results are copied into the record by value; the state stays a tree.
type HopRecord struct {
	HopNumber int           `json:"hop_number"`
	Plan      *PlanData     `json:"plan,omitempty"`
	Gather    *GatherData   `json:"gather,omitempty"`
	Coverage  *CoverageData `json:"coverage,omitempty"`
}

// PlanData is the sanitized output of the Plan stage for one hop.
// GatherToolCalls and ActionToolCalls partition ToolCalls by tool type;
// action calls are proposals only and are never executed during planning.
type PlanData struct {
	Reasoning       string     `json:"reasoning"`
	ToolCalls       []ToolCall `json:"tool_calls"`
	GatherToolCalls []ToolCall `json:"gather_tool_calls"`
	ActionToolCalls []ToolCall `json:"action_tool_calls"`
	Timestamp       time.Time  `json:"timestamp"`
}

// Gather execution status values.
const (
	GatherStatusCompleted = "completed"
	GatherStatusFailed    = "failed"
)

// GatherData summarizes the sequential execution of one hop's gather calls.
// Individual tool failures are recorded per result and do not fail the hop.
type GatherData struct {
	ToolResults          []ToolCallResult `json:"tool_results"`
	TotalExecutionTimeMs float64          `json:"total_execution_time_ms"`
	SuccessRate          float64          `json:"success_rate"`
	ExecutionStatus      string           `json:"execution_status"`
}

// CoverageData stores the coverage verdict for one hop after the
// deterministic routing overrides have been applied.
type CoverageData struct {
	Response  CoverageResponse `json:"coverage_response"`
	NextNode  Node             `json:"next_node"`
	Timestamp time.Time        `json:"timestamp"`
}
