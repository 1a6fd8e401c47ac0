package models

// Default budgets for the bounded agent graph.
const (
	DefaultMaxHops    = 3
	DefaultMaxActions = 1
)

// State is the run context carried through every stage of the agent graph.
// It is created by Initialize, owned by the single stage currently
// executing, and released at graph termination; it is never persisted.
type State struct {
	ConversationID string      `json:"conversation_id"`
	MelvinAdminID  string      `json:"melvin_admin_id"`
	Messages       []Message   `json:"messages"`
	Subject        string      `json:"subject,omitempty"`
	UserDetails    UserDetails `json:"user_details"`

	// AvailableTools is the catalog fetched at initialization, keyed by
	// tool name and tagged with a tool type.
	AvailableTools map[string]ToolDefinition `json:"available_tools"`

	// ToolData holds the latest successful result per gather tool; a
	// later invocation of the same tool overwrites the earlier one.
	// DocsData keys embed the hop number so successive searches never
	// collide.
	ToolData map[string]any `json:"tool_data"`
	DocsData map[string]any `json:"docs_data"`

	Hops         []HopRecord    `json:"hops"`
	MaxHops      int            `json:"max_hops"`
	Actions      []ActionRecord `json:"actions"`
	MaxActions   int            `json:"max_actions"`
	ActionsTaken int            `json:"actions_taken"`

	Procedure         *ProcedureData     `json:"procedure,omitempty"`
	SelectedProcedure *SelectedProcedure `json:"selected_procedure,omitempty"`

	Initialize       *InitializeRecord `json:"initialize,omitempty"`
	Draft            *DraftRecord      `json:"draft,omitempty"`
	Validate         *ValidateRecord   `json:"validate,omitempty"`
	ResponseDelivery *ResponseRecord   `json:"response_delivery,omitempty"`
	Escalate         *EscalateRecord   `json:"escalate,omitempty"`
	Finalize         *FinalizeRecord   `json:"finalize,omitempty"`

	// Response is the user-visible reply text produced by Draft and
	// consumed by Validate and Response.
	Response string `json:"response,omitempty"`

	// NextNode is the routing hint set by the stage that just ran.
	NextNode Node `json:"next_node,omitempty"`

	Error            string `json:"error,omitempty"`
	EscalationReason string `json:"escalation_reason,omitempty"`
}

// NewState returns a run context with empty containers and default budgets.
func NewState(conversationID string) *State {
	return &State{
		ConversationID: conversationID,
		AvailableTools: make(map[string]ToolDefinition),
		ToolData:       make(map[string]any),
		DocsData:       make(map[string]any),
		MaxHops:        DefaultMaxHops,
		MaxActions:     DefaultMaxActions,
	}
}

// CurrentHop returns the hop being executed, or nil before the first plan.
func (s *State) CurrentHop() *HopRecord {
	if len(s.Hops) == 0 {
		return nil
	}
	return &s.Hops[len(s.Hops)-1]
}

// BeginHop appends a new hop record and returns it. Hop numbers are 1-based.
func (s *State) BeginHop() *HopRecord {
	s.Hops = append(s.Hops, HopRecord{HopNumber: len(s.Hops) + 1})
	return &s.Hops[len(s.Hops)-1]
}

// LatestCoverageReasoning returns the reasoning of the most recent coverage
// verdict, walking hops from newest to oldest.
func (s *State) LatestCoverageReasoning() string {
	for i := len(s.Hops) - 1; i >= 0; i-- {
		if cov := s.Hops[i].Coverage; cov != nil {
			return cov.Response.Reasoning
		}
	}
	return ""
}
