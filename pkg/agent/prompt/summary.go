package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/talent-success/melvin/pkg/models"
)

// AvailableData collects everything the coverage model needs to judge
// whether gathered data can answer the conversation.
type AvailableData struct {
	ToolData        map[string]any
	DocsData        map[string]any
	PlanReasoning   string
	PlannedActions  []models.ToolCall
	ExecutedActions []models.ActionRecord
	ActionsTaken    int
	MaxActions      int
	HopNumber       int
	MaxHops         int
}

// SummarizeAvailableData renders the full accumulated-data block for the
// coverage prompt. Content is shown in full; the coverage model needs to
// see actual values, not shapes.
func SummarizeAvailableData(d AvailableData) string {
	var summary []string

	summary = append(summary, fmt.Sprintf("CURRENT HOP: %d/%d", d.HopNumber, d.MaxHops))
	summary = append(summary, "")

	if d.PlanReasoning != "" {
		summary = append(summary, "PLAN REASONING:")
		summary = append(summary, "  "+d.PlanReasoning)
		summary = append(summary, "")
	}

	if len(d.ToolData) > 0 {
		summary = append(summary, "TOOL DATA:")
		for _, toolName := range sortedKeys(d.ToolData) {
			summary = append(summary, fmt.Sprintf("\n%s:", toolName))
			summary = append(summary, formatDataContent(d.ToolData[toolName])...)
		}
	} else {
		summary = append(summary, "TOOL DATA: None available")
	}

	if len(d.DocsData) > 0 {
		summary = append(summary, "\nDOCS DATA:")
		for _, query := range sortedKeys(d.DocsData) {
			summary = append(summary, fmt.Sprintf("\nQuery: '%s'", query))
			summary = append(summary, formatDataContent(d.DocsData[query])...)
		}
	} else {
		summary = append(summary, "\nDOCS DATA: None available")
	}

	if len(d.ExecutedActions) > 0 {
		summary = append(summary, "\n\n⚠️  EXECUTED ACTIONS:")
		summary = append(summary, "The following actions have already been executed in this conversation:")
		for i, action := range d.ExecutedActions {
			status := "✅ SUCCESS"
			if !action.Success {
				status = "❌ FAILED"
			}
			summary = append(summary, fmt.Sprintf("\n  %d. %s (%s) - Hop %d", i+1, action.ToolName, status, action.HopNumber))
			summary = append(summary, fmt.Sprintf("     Audit: %s", action.AuditNotes))
		}
		summary = append(summary, "\n⚠️  DO NOT execute these actions again - they have already been attempted!")
	}

	if len(d.PlannedActions) > 0 {
		summary = append(summary, "\n\nPLANNED ACTION TOOLS:")
		summary = append(summary, fmt.Sprintf("Actions taken so far: %d/%d", d.ActionsTaken, d.MaxActions))
		summary = append(summary, "Plan has suggested the following action tools WITH COMPLETE PARAMETERS.")
		summary = append(summary, "You can ONLY decide to execute one of these (by name). DO NOT modify parameters.")

		if d.ActionsTaken >= d.MaxActions {
			summary = append(summary, "⚠️  Maximum actions reached - cannot execute more action tools")
		} else {
			for _, tc := range d.PlannedActions {
				summary = append(summary, fmt.Sprintf("\n  - Tool Name: %s", tc.ToolName))
				summary = append(summary, fmt.Sprintf("    Plan's Reasoning: %s", tc.Reasoning))
				summary = append(summary, fmt.Sprintf("    Parameters (already validated and injected by Plan): %s", jsonCompact(tc.Parameters)))
			}
		}
	}

	return strings.Join(summary, "\n")
}

// formatDataContent renders one tool's or query's stored payload in full.
func formatDataContent(data any) []string {
	var content []string

	switch v := data.(type) {
	case []any:
		if len(v) == 0 {
			return []string{fmt.Sprintf("  %v", v)}
		}
		for i, item := range v {
			if m, ok := item.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					content = append(content, fmt.Sprintf("  Item %d: %s", i+1, text))
					continue
				}
				content = append(content, fmt.Sprintf("  Item %d: %s", i+1, jsonIndent(m)))
				continue
			}
			content = append(content, fmt.Sprintf("  Item %d: %v", i+1, item))
		}
	case map[string]any:
		content = append(content, "  "+jsonIndent(v))
	default:
		content = append(content, fmt.Sprintf("  %v", v))
	}

	return content
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func jsonIndent(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func jsonCompact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
