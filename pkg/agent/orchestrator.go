// Package agent runs the conversation workflow: a bounded graph of stages
// that ingests an Intercom conversation, plans and executes tool calls,
// analyzes coverage, drafts and validates a reply, and delivers it or
// escalates to the team. One Orchestrator serves many conversations; each
// Run owns a single mutable state that is discarded when the graph ends.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talent-success/melvin/pkg/config"
	"github.com/talent-success/melvin/pkg/intercom"
	"github.com/talent-success/melvin/pkg/llm"
	"github.com/talent-success/melvin/pkg/mcp"
	"github.com/talent-success/melvin/pkg/models"
	"github.com/talent-success/melvin/pkg/prompts"
	"github.com/talent-success/melvin/pkg/validation"
)

// maxGraphSteps bounds the dispatch loop. The hop and action budgets keep
// well under it; hitting the bound means a routing bug.
const maxGraphSteps = 32

// conversationClient is the slice of the Intercom client the stages use.
type conversationClient interface {
	AdminID() string
	GetConversationData(ctx context.Context, conversationID string) (*intercom.ConversationData, error)
	AddNote(ctx context.Context, conversationID, body string) error
	SendMessage(ctx context.Context, conversationID, body string) error
	SnoozeConversation(ctx context.Context, conversationID string, until time.Time) error
	UpdateCustomAttribute(ctx context.Context, conversationID, name string, value any) error
}

// toolClient is the slice of the tool-server client the stages use.
type toolClient interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) ([]mcp.ContentBlock, error)
}

// promptSource resolves prompt templates by logical name.
type promptSource interface {
	Get(ctx context.Context, name string) (string, error)
}

// replyValidator checks a drafted reply against the policy service.
type replyValidator interface {
	Validate(ctx context.Context, reply string) (validation.Verdict, error)
}

// Orchestrator executes the agent graph for Intercom conversations. It is
// safe for concurrent Runs; all per-conversation state lives on the run.
type Orchestrator struct {
	cfg       *config.Config
	intercom  conversationClient
	tools     toolClient
	llm       *llm.Client
	prompts   promptSource
	validator replyValidator
	logger    *slog.Logger
}

// New creates an Orchestrator with clients built from the configuration.
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		intercom:  intercom.NewClient(cfg.Intercom, cfg.DryRun),
		tools:     mcp.NewClient(cfg.MCP),
		llm:       llm.NewClient(cfg.LLM),
		prompts:   prompts.NewRegistry(cfg.Prompts),
		validator: validation.NewClient(cfg.Validation),
		logger:    slog.Default().With("component", "orchestrator"),
	}
}

// Run executes the graph for one conversation and returns the final state.
// All failures are folded into the state (error, escalation, finalize
// status); the graph itself never aborts.
func (o *Orchestrator) Run(ctx context.Context, conversationID string) *models.State {
	state := models.NewState(conversationID)
	state.MaxHops = o.cfg.Agent.MaxHops
	state.MaxActions = o.cfg.Agent.MaxActions

	r := &run{
		Orchestrator: o,
		state:        state,
		logger: o.logger.With(
			"run_id", uuid.NewString(),
			"conversation_id", conversationID,
		),
	}
	r.execute(ctx)
	return state
}

// run is the per-conversation execution context: one state, one logger.
type run struct {
	*Orchestrator
	state  *models.State
	logger *slog.Logger
}

func (r *run) execute(ctx context.Context) {
	r.logger.Info("run started",
		"max_hops", r.state.MaxHops,
		"max_actions", r.state.MaxActions,
		"dry_run", r.cfg.DryRun)

	r.state.NextNode = models.NodeInitialize
	for steps := 0; r.state.NextNode != models.NodeEnd; steps++ {
		if steps >= maxGraphSteps {
			r.logger.Error("step budget exceeded, stopping graph",
				"steps", steps, "next_node", r.state.NextNode)
			return
		}
		r.step(ctx)
	}

	r.logger.Info("run finished",
		"status", finalStatus(r.state),
		"hops", len(r.state.Hops),
		"actions_taken", r.state.ActionsTaken,
		"error", r.state.Error)
}

// step dispatches the stage named by the routing hint. Every stage sets
// state.NextNode before returning.
func (r *run) step(ctx context.Context) {
	switch node := r.state.NextNode; node {
	case models.NodeInitialize:
		r.initialize(ctx)
	case models.NodeProcedure:
		r.procedure(ctx)
	case models.NodePlan:
		r.plan(ctx)
	case models.NodeGather:
		r.gather(ctx)
	case models.NodeCoverage:
		r.coverage(ctx)
	case models.NodeAction:
		r.action(ctx)
	case models.NodeDraft:
		r.draft(ctx)
	case models.NodeValidate:
		r.validate(ctx)
	case models.NodeResponse:
		r.respond(ctx)
	case models.NodeEscalate:
		r.escalate(ctx)
	case models.NodeFinalize:
		r.finalize(ctx)
	default:
		r.logger.Error("unknown graph node, stopping", "node", node)
		r.state.NextNode = models.NodeEnd
	}
}

// stageLogger derives a logger scoped to one stage of this run.
func (r *run) stageLogger(stage string) *slog.Logger {
	return r.logger.With("stage", stage)
}

func finalStatus(state *models.State) string {
	if state.Finalize == nil {
		return "unfinalized"
	}
	return string(state.Finalize.Status)
}
