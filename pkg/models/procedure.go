package models

import "time"

// ProcedureResult is one document returned by the procedure search tool.
type ProcedureResult struct {
	ID             string         `json:"id,omitempty"`
	Title          string         `json:"title,omitempty"`
	Content        string         `json:"content"`
	RelevanceScore float64        `json:"relevance_score,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// SelectedProcedure is the procedure chosen by the evaluation step. Its
// content is supplied verbatim to the planner prompt.
type SelectedProcedure struct {
	ID             string  `json:"id,omitempty"`
	Title          string  `json:"title,omitempty"`
	Content        string  `json:"content"`
	Reasoning      string  `json:"reasoning"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// ProcedureData records the full procedure retrieval attempt. Failures are
// non-fatal; the run continues without procedure guidance.
type ProcedureData struct {
	Query               string             `json:"query"`
	QueryReasoning      string             `json:"query_reasoning"`
	TopKResults         []ProcedureResult  `json:"top_k_results"`
	SelectedProcedure   *SelectedProcedure `json:"selected_procedure,omitempty"`
	EvaluationReasoning string             `json:"evaluation_reasoning"`
	Success             bool               `json:"success"`
	Error               string             `json:"error,omitempty"`
	Timestamp           time.Time          `json:"timestamp"`
}
