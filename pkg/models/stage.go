package models

import "time"

// Node identifies a stage of the agent graph.
type Node string

const (
	NodeInitialize Node = "initialize"
	NodeProcedure  Node = "procedure"
	NodePlan       Node = "plan"
	NodeGather     Node = "gather"
	NodeCoverage   Node = "coverage"
	NodeAction     Node = "action"
	NodeDraft      Node = "draft"
	NodeValidate   Node = "validate"
	NodeResponse   Node = "response"
	NodeEscalate   Node = "escalate"
	NodeFinalize   Node = "finalize"
	NodeEnd        Node = "end"
)

// MelvinStatus is the terminal label written to the "Melvin Status"
// custom attribute. The set is closed.
type MelvinStatus string

const (
	StatusSuccess          MelvinStatus = "success"
	StatusResponseFailed   MelvinStatus = "response_failed"
	StatusValidationFailed MelvinStatus = "validation_failed"
	StatusMessageFailed    MelvinStatus = "message_failed"
	StatusRouteToTeam      MelvinStatus = "route_to_team"
	StatusError            MelvinStatus = "error"
)

// EscalationSource identifies which stage triggered an escalation.
type EscalationSource string

const (
	SourceInitialization EscalationSource = "initialization"
	SourceCoverage       EscalationSource = "coverage"
	SourceDraft          EscalationSource = "draft"
	SourceValidate       EscalationSource = "validate"
	SourceUnknown        EscalationSource = "unknown"
)

// InitializeRecord is the outcome of the Initialize stage.
type InitializeRecord struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DraftRecord is the outcome of the Draft stage. Error is set when response
// generation itself failed; a ROUTE_TO_TEAM draft is not an error.
type DraftRecord struct {
	Response         string       `json:"response"`
	ResponseType     ResponseType `json:"response_type"`
	EscalationReason string       `json:"escalation_reason,omitempty"`
	GenerationTimeMs float64      `json:"generation_time_ms"`
	Error            string       `json:"error,omitempty"`
	Timestamp        time.Time    `json:"timestamp"`
}

// ValidateRecord is the outcome of the Validate stage. Verdict carries the
// policy service's raw diagnostics for the audit note.
type ValidateRecord struct {
	OverallPassed bool           `json:"overall_passed"`
	Verdict       map[string]any `json:"verdict"`
	NotePosted    bool           `json:"note_posted"`
	Timestamp     time.Time      `json:"timestamp"`
}

// ResponseRecord is the outcome of the Response (delivery) stage.
type ResponseRecord struct {
	IntercomDelivered bool      `json:"intercom_delivered"`
	DeliveryTimeMs    float64   `json:"delivery_time_ms"`
	Error             string    `json:"error,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// EscalateRecord is the outcome of the Escalate stage.
type EscalateRecord struct {
	Reason     string           `json:"reason"`
	Source     EscalationSource `json:"source"`
	NotePosted bool             `json:"note_posted"`
	Timestamp  time.Time        `json:"timestamp"`
}

// FinalizeRecord is the outcome of the Finalize stage.
type FinalizeRecord struct {
	Status           MelvinStatus `json:"status"`
	AttributeUpdated bool         `json:"attribute_updated"`
	Snoozed          bool         `json:"snoozed"`
	Timestamp        time.Time    `json:"timestamp"`
}
