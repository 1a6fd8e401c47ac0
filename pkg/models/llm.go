package models

// NextAction is the coverage verdict's routing decision.
type NextAction string

const (
	NextActionContinue      NextAction = "continue"
	NextActionGatherMore    NextAction = "gather_more"
	NextActionExecuteAction NextAction = "execute_action"
	NextActionEscalate      NextAction = "escalate"
)

// ResponseType distinguishes a direct reply from a handoff to the team.
type ResponseType string

const (
	ResponseTypeReply       ResponseType = "REPLY"
	ResponseTypeRouteToTeam ResponseType = "ROUTE_TO_TEAM"
)

// PlanResponse is the planner's structured output.
type PlanResponse struct {
	Reasoning string     `json:"reasoning" jsonschema:"required,description=Step-by-step reasoning about what data is needed to resolve the conversation"`
	ToolCalls []ToolCall `json:"tool_calls" jsonschema:"description=Tools to invoke with complete parameters"`
}

// DataGap describes one piece of missing data identified by Coverage.
type DataGap struct {
	GapType     string `json:"gap_type" jsonschema:"required,description=Category of the missing data"`
	Description string `json:"description" jsonschema:"required,description=What is missing and why it matters"`
}

// ActionDecision names the planned action tool Coverage wants executed.
// Parameters always come from the plan; Coverage only picks the tool.
type ActionDecision struct {
	ActionToolName string `json:"action_tool_name" jsonschema:"required,description=Name of a planned action tool to execute"`
	Reasoning      string `json:"reasoning" jsonschema:"required,description=Why this action should be executed now"`
}

// CoverageResponse is the coverage analyzer's structured output.
type CoverageResponse struct {
	DataSufficient   bool            `json:"data_sufficient" jsonschema:"required,description=Whether the gathered data is sufficient to answer the user"`
	MissingData      []DataGap       `json:"missing_data" jsonschema:"description=Specific data gaps preventing a response"`
	Reasoning        string          `json:"reasoning" jsonschema:"required,description=Detailed reasoning behind the decision"`
	Confidence       float64         `json:"confidence" jsonschema:"required,minimum=0,maximum=1,description=Confidence in the decision between 0 and 1"`
	NextAction       NextAction      `json:"next_action" jsonschema:"required,enum=continue,enum=gather_more,enum=execute_action,enum=escalate,description=Next step for the pipeline"`
	EscalationReason string          `json:"escalation_reason,omitempty" jsonschema:"description=Reason for escalation when next_action is escalate"`
	ActionDecision   *ActionDecision `json:"action_decision,omitempty" jsonschema:"description=Which planned action tool to execute when next_action is execute_action"`
}

// DraftResponse is the drafter's structured output.
type DraftResponse struct {
	Response         string       `json:"response" jsonschema:"required,description=The reply to send to the user"`
	ResponseType     ResponseType `json:"response_type" jsonschema:"required,enum=REPLY,enum=ROUTE_TO_TEAM,description=REPLY answers the user directly; ROUTE_TO_TEAM hands the conversation to a human"`
	EscalationReason string       `json:"escalation_reason,omitempty" jsonschema:"description=Why the conversation needs a human when response_type is ROUTE_TO_TEAM"`
}

// QueryGeneration is the structured output of the procedure query step.
type QueryGeneration struct {
	Query     string `json:"query" jsonschema:"required,description=The search query to find relevant procedures"`
	Reasoning string `json:"reasoning" jsonschema:"required,description=Why this query will surface relevant procedures"`
}

// ProcedureEvaluation is the structured output of the procedure match step.
type ProcedureEvaluation struct {
	IsMatch                bool   `json:"is_match" jsonschema:"required,description=Whether any retrieved procedure matches the scenario"`
	SelectedProcedureIndex int    `json:"selected_procedure_index" jsonschema:"required,description=Zero-based index of the selected procedure or -1 if none"`
	Reasoning              string `json:"reasoning" jsonschema:"required,description=Detailed reasoning for selection or rejection"`
}
