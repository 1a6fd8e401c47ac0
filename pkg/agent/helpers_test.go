package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talent-success/melvin/pkg/config"
	"github.com/talent-success/melvin/pkg/intercom"
	"github.com/talent-success/melvin/pkg/llm"
	"github.com/talent-success/melvin/pkg/mcp"
	"github.com/talent-success/melvin/pkg/models"
	"github.com/talent-success/melvin/pkg/validation"
)

// stubIntercom records every conversation mutation so tests can assert on
// notes, replies, snoozes, and attribute writes.
type stubIntercom struct {
	adminID string
	data    *intercom.ConversationData

	dataErr   error
	noteErr   error
	sendErr   error
	snoozeErr error
	attrErr   error

	notes   []string
	sent    []string
	snoozes []time.Time
	attrs   map[string]any
}

func (s *stubIntercom) AdminID() string { return s.adminID }

func (s *stubIntercom) GetConversationData(_ context.Context, _ string) (*intercom.ConversationData, error) {
	if s.dataErr != nil {
		return nil, s.dataErr
	}
	return s.data, nil
}

func (s *stubIntercom) AddNote(_ context.Context, _ string, body string) error {
	if s.noteErr != nil {
		return s.noteErr
	}
	s.notes = append(s.notes, body)
	return nil
}

func (s *stubIntercom) SendMessage(_ context.Context, _ string, body string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, body)
	return nil
}

func (s *stubIntercom) SnoozeConversation(_ context.Context, _ string, until time.Time) error {
	if s.snoozeErr != nil {
		return s.snoozeErr
	}
	s.snoozes = append(s.snoozes, until)
	return nil
}

func (s *stubIntercom) UpdateCustomAttribute(_ context.Context, _ string, name string, value any) error {
	if s.attrErr != nil {
		return s.attrErr
	}
	if s.attrs == nil {
		s.attrs = make(map[string]any)
	}
	s.attrs[name] = value
	return nil
}

type toolInvocation struct {
	Name string
	Args map[string]any
}

// stubTools serves a fixed catalog and dispatches calls to a respond
// function, recording every invocation in order.
type stubTools struct {
	tools   []mcp.Tool
	listErr error
	respond func(name string, args map[string]any) ([]mcp.ContentBlock, error)

	calls []toolInvocation
}

func (s *stubTools) ListTools(_ context.Context) ([]mcp.Tool, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.tools, nil
}

func (s *stubTools) CallTool(_ context.Context, name string, args map[string]any) ([]mcp.ContentBlock, error) {
	s.calls = append(s.calls, toolInvocation{Name: name, Args: args})
	if s.respond == nil {
		return textResult(`{}`), nil
	}
	return s.respond(name, args)
}

func textResult(payload string) []mcp.ContentBlock {
	return []mcp.ContentBlock{{Type: "text", Text: payload}}
}

// defaultPromptTemplate carries every placeholder the stages render, so
// prompt assertions see the substituted values. Placeholders a stage does
// not fill stay literal, which no assertion should match on.
const defaultPromptTemplate = `History:
{conversation_history}

User:
{user_details}

Context:
{context_info}

Tools:
{available_tools}

Data:
{available_data}{data_summary}`

// stubPrompts returns fixtures by name, or the placeholder default so
// stages do not fail on templates a test does not care about.
type stubPrompts struct {
	templates map[string]string
	err       error
}

func (s *stubPrompts) Get(_ context.Context, name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if tpl, ok := s.templates[name]; ok {
		return tpl, nil
	}
	return defaultPromptTemplate, nil
}

type stubValidator struct {
	verdict  validation.Verdict
	err      error
	received []string
}

func (s *stubValidator) Validate(_ context.Context, reply string) (validation.Verdict, error) {
	s.received = append(s.received, reply)
	if s.err != nil {
		return nil, s.err
	}
	if s.verdict == nil {
		return validation.Verdict{"overall_passed": true}, nil
	}
	return s.verdict, nil
}

// scriptedCompletions is a fake chat completions endpoint. Each forced
// function call pops the next canned arguments payload for that function
// name; the user prompt of every request is captured for assertions.
type scriptedCompletions struct {
	mu      sync.Mutex
	replies map[string][]string
	calls   []string
	prompts map[string][]string
}

func (s *scriptedCompletions) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
			ToolChoice struct {
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tool_choice"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		name := req.ToolChoice.Function.Name

		s.mu.Lock()
		s.calls = append(s.calls, name)
		for _, msg := range req.Messages {
			if msg.Role == "user" {
				var text string
				if err := json.Unmarshal(msg.Content, &text); err != nil {
					text = string(msg.Content)
				}
				if s.prompts == nil {
					s.prompts = make(map[string][]string)
				}
				s.prompts[name] = append(s.prompts[name], text)
			}
		}
		queue := s.replies[name]
		if len(queue) == 0 {
			s.mu.Unlock()
			assert.Failf(t, "unscripted llm call", "no canned reply for function %q", name)
			http.Error(w, fmt.Sprintf("no script for %s", name), http.StatusInternalServerError)
			return
		}
		arguments := queue[0]
		s.replies[name] = queue[1:]
		s.mu.Unlock()

		response := map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"index": 0,
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{{
						"id":   "call_1",
						"type": "function",
						"function": map[string]any{
							"name":      name,
							"arguments": arguments,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

func (s *scriptedCompletions) lastPrompt(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prompts := s.prompts[name]
	if len(prompts) == 0 {
		return ""
	}
	return prompts[len(prompts)-1]
}

// newScriptedLLM starts a fake completions server with the given replies
// per function name and returns a client pointed at it.
func newScriptedLLM(t *testing.T, replies map[string][]string) (*llm.Client, *scriptedCompletions) {
	t.Helper()
	script := &scriptedCompletions{replies: replies}
	server := httptest.NewServer(script.handler(t))
	t.Cleanup(server.Close)
	client := llm.NewClientWithBaseURL(config.LLMConfig{
		APIKey:             "test-key",
		Model:              "gpt-4o-mini",
		PlannerTemperature: 0,
		DrafterTemperature: 0.2,
	}, server.URL+"/v1")
	return client, script
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Intercom.AdminID = "admin-77"
	return cfg
}

// newTestRun builds a run around stub clients for exercising one stage
// at a time. The returned stubs are the same instances the run holds.
func newTestRun(t *testing.T, state *models.State) (*run, *stubIntercom, *stubTools) {
	t.Helper()
	ic := &stubIntercom{adminID: "admin-77"}
	tools := &stubTools{}
	o := &Orchestrator{
		cfg:       testConfig(),
		intercom:  ic,
		tools:     tools,
		prompts:   &stubPrompts{},
		validator: &stubValidator{},
		logger:    slog.Default(),
	}
	return &run{Orchestrator: o, state: state, logger: slog.Default()}, ic, tools
}

// testState returns a populated mid-run state: conversation loaded, admin
// known, catalog with one gather and one action tool.
func testState() *models.State {
	state := models.NewState("conv-1")
	state.MelvinAdminID = "admin-77"
	state.Messages = []models.Message{{Role: "user", Content: "Where is my application?"}}
	state.UserDetails = models.UserDetails{Name: "Dana", Email: "dana@example.com"}
	state.AvailableTools = map[string]models.ToolDefinition{
		"get_applications": {
			Name: "get_applications",
			Type: models.ToolTypeGather,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_email": map[string]any{"type": "string"},
				},
			},
		},
		models.ToolMatchTicket: {
			Name: models.ToolMatchTicket,
			Type: models.ToolTypeInternalAction,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"conversation_id": map[string]any{"type": "string"},
					"ticket_id":       map[string]any{"type": "string"},
				},
			},
		},
	}
	return state
}
