package models

// ToolType classifies tools by side-effect profile.
type ToolType string

const (
	// ToolTypeGather marks a read-only tool that Gather may invoke freely.
	ToolTypeGather ToolType = "gather"
	// ToolTypeInternalAction marks a side-effecting tool visible only to the team.
	ToolTypeInternalAction ToolType = "internal_action"
	// ToolTypeExternalAction marks a side-effecting tool visible to the user.
	ToolTypeExternalAction ToolType = "external_action"
)

// IsAction reports whether tools of this type require a Coverage decision
// before execution.
func (t ToolType) IsAction() bool {
	return t == ToolTypeInternalAction || t == ToolTypeExternalAction
}

// Well-known tool names with dedicated handling in the pipeline.
const (
	// ToolSearchDocs is the documentation search tool. Its results are
	// keyed by query in docs_data rather than by tool name.
	ToolSearchDocs = "search_talent_docs"
	// ToolSearchProcedures retrieves internal procedures for the
	// pre-planning matching step.
	ToolSearchProcedures = "search_procedures"
	// ToolGetUserReferrals returns a user's referrals. Gather augments its
	// results with follow-up instructions for the planner.
	ToolGetUserReferrals = "get_user_referrals"
	// ToolMatchTicket links a conversation to an existing tracker ticket.
	// The only internal_action tool the server currently exposes.
	ToolMatchTicket = "match_and_link_conversation_to_ticket"
)

// ToolDefinition is one entry of the tool catalog fetched from the MCP server.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
	Type        ToolType       `json:"tool_type"`
}

// ToolCall is a single planned tool invocation. The same shape is used for
// the planner's structured output and for the sanitized calls retained in
// the hop record.
type ToolCall struct {
	ToolName   string         `json:"tool_name" jsonschema:"required,description=Name of the tool to call"`
	Parameters map[string]any `json:"parameters" jsonschema:"description=Complete parameters for the tool call"`
	Reasoning  string         `json:"reasoning" jsonschema:"required,description=Why this tool is needed for the current conversation"`
}

// ToolCallResult records one executed gather call with timing and outcome.
type ToolCallResult struct {
	ToolName        string         `json:"tool_name"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Data            any            `json:"data,omitempty"`
	Error           string         `json:"error,omitempty"`
	ExecutionTimeMs float64        `json:"execution_time_ms"`
	Success         bool           `json:"success"`
}
