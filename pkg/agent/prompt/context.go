package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talent-success/melvin/pkg/models"
)

// PlanContext summarizes prior hops for the planning prompt so the model
// does not repeat work it already did.
type PlanContext struct {
	CurrentHop        int
	MaxHops           int
	ToolExecutions    []ToolExecution
	DocSearches       []DocSearch
	CoverageReasoning string
	AvailableDocs     []string
}

// ToolExecution is one prior gather call with its outcome.
type ToolExecution struct {
	ToolName   string
	Parameters map[string]any
	Success    bool
	Error      string
}

// DocSearch is one prior documentation search with its result count.
type DocSearch struct {
	Query       string
	ResultCount int
	Success     bool
}

// BuildPlanContext aggregates tool executions and doc searches from all
// completed hops, plus the latest coverage reasoning.
func BuildPlanContext(state *models.State) PlanContext {
	ctx := PlanContext{
		CurrentHop: len(state.Hops) + 1,
		MaxHops:    state.MaxHops,
	}

	for _, hop := range state.Hops {
		if hop.Gather == nil {
			continue
		}
		for _, result := range hop.Gather.ToolResults {
			if result.ToolName == models.ToolSearchDocs {
				ctx.DocSearches = append(ctx.DocSearches, DocSearch{
					Query:       stringParam(result.Parameters, "query", "unknown query"),
					ResultCount: docResultCount(result),
					Success:     result.Success,
				})
				continue
			}
			exec := ToolExecution{
				ToolName:   result.ToolName,
				Parameters: result.Parameters,
				Success:    result.Success,
			}
			if !result.Success {
				exec.Error = result.Error
			}
			ctx.ToolExecutions = append(ctx.ToolExecutions, exec)
		}
	}

	ctx.CoverageReasoning = state.LatestCoverageReasoning()

	for query := range state.DocsData {
		ctx.AvailableDocs = append(ctx.AvailableDocs, query)
	}
	sort.Strings(ctx.AvailableDocs)

	return ctx
}

// FormatPlanContext renders the cross-hop context block for the planner.
func FormatPlanContext(ctx PlanContext) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("- Planning for hop: %d/%d", ctx.CurrentHop, ctx.MaxHops))

	if len(ctx.ToolExecutions) > 0 {
		parts = append(parts, "\n- Previously executed tools:")
		for _, exec := range ctx.ToolExecutions {
			status := "✓ SUCCESS"
			if !exec.Success {
				status = fmt.Sprintf("✗ FAILED (%s)", exec.Error)
			}
			parts = append(parts, fmt.Sprintf("  * %s(%s) - %s", exec.ToolName, paramString(exec.Parameters), status))
		}
	}

	if len(ctx.DocSearches) > 0 {
		parts = append(parts, "\n- Previously searched documentation:")
		for _, search := range ctx.DocSearches {
			status := fmt.Sprintf("%d results", search.ResultCount)
			if !search.Success {
				status = "FAILED"
			}
			parts = append(parts, fmt.Sprintf("  * '%s' - %s", search.Query, status))
		}
	}

	if ctx.CoverageReasoning != "" {
		parts = append(parts, fmt.Sprintf("\n- Coverage analysis from previous hop: %s", ctx.CoverageReasoning))
	}

	if len(ctx.AvailableDocs) > 0 {
		parts = append(parts, fmt.Sprintf("\n- Available documentation collected: %d searches", len(ctx.AvailableDocs)))
	}

	return strings.Join(parts, "\n")
}

// FormatToolCatalog renders every tool with its full input schema so the
// planner generates complete, valid parameters.
func FormatToolCatalog(tools map[string]models.ToolDefinition) string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	formatted := make([]string, 0, len(names))
	for _, name := range names {
		tool := tools[name]
		formatted = append(formatted, fmt.Sprintf("Tool: %s\nDescription: %s\nType: %s\nInput Schema:\n%s",
			tool.Name, tool.Description, tool.Type, jsonIndent(tool.InputSchema)))
	}
	return strings.Join(formatted, "\n\n")
}

// paramString renders parameters compactly as k=v pairs in key order.
func paramString(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := params[k].(type) {
		case string:
			pairs = append(pairs, fmt.Sprintf("%s=%q", k, v))
		default:
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(pairs, ", ")
}

func stringParam(params map[string]any, key, fallback string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// docResultCount extracts total_results from a parsed doc-search payload.
func docResultCount(result models.ToolCallResult) int {
	if !result.Success {
		return 0
	}
	payload, ok := result.Data.(map[string]any)
	if !ok {
		return 0
	}
	if n, ok := payload["total_results"].(float64); ok {
		return int(n)
	}
	return 0
}
