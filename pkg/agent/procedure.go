package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/talent-success/melvin/pkg/llm"
	"github.com/talent-success/melvin/pkg/mcp"
	"github.com/talent-success/melvin/pkg/models"
	"github.com/talent-success/melvin/pkg/prompts"
)

const querySystemPrompt = `You are an expert at analyzing customer support conversations and finding relevant internal procedures.

Your task is to generate a SHORT, SIMPLE search query (5-10 words maximum) that will find procedures relevant to the customer's issue or request.

IMPORTANT: Keep the query extremely concise. Focus on the core topic only.

Good examples:
- "application status"
- "payment issue"
- "account verification"
- "interview scheduling"

Bad examples (too long):
- "candidate application status inquiry procedure India verify identity ATS lookup"
- "how to handle payment disputes and refund requests for contractors"

Generate a clear, SHORT query (2-5 words) that captures the main topic.`

// procedure retrieves candidate procedures for the conversation and asks
// the planner model whether one of them matches. Every failure here is
// non-fatal; the run continues to planning without procedure guidance.
func (r *run) procedure(ctx context.Context) {
	logger := r.stageLogger("procedure")
	record := &models.ProcedureData{Timestamp: time.Now().UTC()}
	r.state.Procedure = record
	r.state.NextNode = models.NodePlan

	fail := func(err error) {
		record.Error = fmt.Sprintf("Procedure retrieval failed: %v", err)
		r.state.SelectedProcedure = nil
		logger.Warn("continuing without procedure guidance", "error", err)
	}

	if len(r.state.Messages) == 0 {
		fail(fmt.Errorf("no messages found in state"))
		return
	}

	// 1. Generate a short search query from the conversation.
	query, err := r.generateProcedureQuery(ctx)
	if err != nil {
		fail(fmt.Errorf("generate query: %w", err))
		return
	}
	record.Query = query.Query
	record.QueryReasoning = query.Reasoning
	logger.Info("generated procedure query", "query", query.Query)

	// 2. Fetch the top candidates from the tool server.
	results, err := r.fetchProcedures(ctx, query.Query)
	if err != nil {
		fail(fmt.Errorf("fetch procedures: %w", err))
		return
	}
	record.TopKResults = results
	logger.Info("retrieved procedures", "count", len(results))

	// 3. Ask the model whether any candidate matches the scenario.
	evaluation, err := r.evaluateProcedures(ctx, results, query.Query)
	if err != nil {
		fail(fmt.Errorf("evaluate procedures: %w", err))
		return
	}
	record.EvaluationReasoning = evaluation.Reasoning

	if evaluation.IsMatch && evaluation.SelectedProcedureIndex >= 0 && evaluation.SelectedProcedureIndex < len(results) {
		chosen := results[evaluation.SelectedProcedureIndex]
		r.state.SelectedProcedure = &models.SelectedProcedure{
			ID:             chosen.ID,
			Title:          chosen.Title,
			Content:        chosen.Content,
			Reasoning:      evaluation.Reasoning,
			RelevanceScore: chosen.RelevanceScore,
		}
		record.SelectedProcedure = r.state.SelectedProcedure
		logger.Info("selected procedure", "id", chosen.ID, "title", chosen.Title)
	} else {
		r.state.SelectedProcedure = nil
		logger.Info("no procedure selected")
	}

	record.Success = true

	r.postProcedureNote(ctx, record)
}

func (r *run) generateProcedureQuery(ctx context.Context) (*models.QueryGeneration, error) {
	user := fmt.Sprintf(`Based on this conversation, generate a SHORT search query (2-5 words) to find relevant internal procedures:

%s

Generate a SHORT query (2-5 words only) that captures the main topic.`, messageContext(r.state.Messages))

	return llm.CreateStructured[models.QueryGeneration](ctx, r.llm, llm.Request{
		System:      querySystemPrompt,
		User:        user,
		Temperature: r.cfg.LLM.PlannerTemperature,
	}, llm.FunctionSpec{
		Name:        "generate_search_query",
		Description: "Record the procedure search query with reasoning",
	})
}

// fetchProcedures calls the procedure search tool and assembles each result
// into a single content string (description, required tools, steps, notes).
func (r *run) fetchProcedures(ctx context.Context, query string) ([]models.ProcedureResult, error) {
	content, err := r.tools.CallTool(ctx, models.ToolSearchProcedures, map[string]any{
		"query": query,
		"top_k": r.cfg.Agent.ProcedureTopK,
	})
	if err != nil {
		return nil, err
	}

	payload, err := mcp.ParseToolResult(content)
	if err != nil {
		return nil, err
	}
	body, ok := payload.(map[string]any)
	if !ok {
		return nil, nil
	}
	items, ok := body["results"].([]any)
	if !ok {
		return nil, nil
	}

	results := make([]models.ProcedureResult, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		results = append(results, models.ProcedureResult{
			ID:             procedureID(item["id"]),
			Title:          stringValue(item["title"]),
			Content:        procedureContent(item),
			RelevanceScore: procedureScore(item),
			Metadata: map[string]any{
				"category":      item["category"],
				"document_type": item["document_type"],
			},
		})
	}
	return results, nil
}

func (r *run) evaluateProcedures(ctx context.Context, results []models.ProcedureResult, query string) (*models.ProcedureEvaluation, error) {
	system, err := r.prompts.Get(ctx, prompts.ProcedureMatchingPrompt)
	if err != nil {
		return nil, err
	}

	var candidates strings.Builder
	for i, proc := range results {
		fmt.Fprintf(&candidates, "\n--- Procedure %d ---\n", i)
		if proc.Title != "" {
			fmt.Fprintf(&candidates, "Title: %s\n", proc.Title)
		}
		if proc.ID != "" {
			fmt.Fprintf(&candidates, "ID: %s\n", proc.ID)
		}
		fmt.Fprintf(&candidates, "Content:\n%s\n", proc.Content)
	}

	user := fmt.Sprintf(`Conversation:
%s

Search Query Used: %s

Retrieved Procedures:
%s

Evaluate these procedures and determine if any perfectly match this scenario.`,
		messageContext(r.state.Messages), query, candidates.String())

	return llm.CreateStructured[models.ProcedureEvaluation](ctx, r.llm, llm.Request{
		System:      system,
		User:        user,
		Temperature: r.cfg.LLM.PlannerTemperature,
	}, llm.FunctionSpec{
		Name:        "evaluate_procedures",
		Description: "Record whether a retrieved procedure matches the scenario",
	})
}

// postProcedureNote documents the search and its outcome as an internal
// note. Failures are logged and swallowed.
func (r *run) postProcedureNote(ctx context.Context, record *models.ProcedureData) {
	logger := r.stageLogger("procedure")
	if r.state.ConversationID == "" || r.state.MelvinAdminID == "" {
		logger.Warn("skipping procedure note, missing conversation or admin id")
		return
	}

	lines := []string{
		"📚 **Procedure Search Results**",
		"",
		fmt.Sprintf("**Query:** `%s`", record.Query),
		"",
	}
	if record.SelectedProcedure != nil {
		lines = append(lines,
			"✅ **Procedure Selected:** Yes",
			fmt.Sprintf("**Title:** %s", record.SelectedProcedure.Title),
			fmt.Sprintf("**ID:** %s", record.SelectedProcedure.ID),
			"",
			"**Reasoning:**",
			record.EvaluationReasoning,
			"",
			"**Procedure Content:**",
			"```",
			record.SelectedProcedure.Content,
			"```",
		)
	} else {
		lines = append(lines,
			"❌ **Procedure Selected:** No",
			"",
			"**Reasoning:**",
			record.EvaluationReasoning,
		)
	}

	if err := r.intercom.AddNote(ctx, r.state.ConversationID, strings.Join(lines, "\n")); err != nil {
		logger.Warn("failed to post procedure note", "error", err)
	}
}

// messageContext renders the conversation as "ROLE: content" lines for the
// procedure prompts.
func messageContext(messages []models.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(msg.Role), msg.Content))
	}
	return strings.Join(lines, "\n")
}

// procedureContent flattens a search hit into one text block.
func procedureContent(item map[string]any) string {
	var parts []string

	if desc, ok := item["description"].(string); ok && desc != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", desc))
	}

	if tools, ok := item["tools_required"].([]any); ok && len(tools) > 0 {
		names := make([]string, 0, len(tools))
		for _, t := range tools {
			names = append(names, fmt.Sprint(t))
		}
		parts = append(parts, fmt.Sprintf("\nTools Required: %s", strings.Join(names, ", ")))
	}

	if steps, ok := item["steps"].([]any); ok && len(steps) > 0 {
		parts = append(parts, "\nSteps:")
		for i, step := range steps {
			parts = append(parts, fmt.Sprintf("%d. %v", i+1, step))
		}
	}

	if notes, ok := item["notes"].([]any); ok && len(notes) > 0 {
		parts = append(parts, "\nNotes:")
		for _, note := range notes {
			parts = append(parts, fmt.Sprintf("- %v", note))
		}
	}

	return strings.Join(parts, "\n")
}

// procedureID normalizes numeric ids to their decimal string form.
func procedureID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// procedureScore reads the similarity score, falling back to "score".
func procedureScore(item map[string]any) float64 {
	if s, ok := item["similarity"].(float64); ok {
		return s
	}
	if s, ok := item["score"].(float64); ok {
		return s
	}
	return 0
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
