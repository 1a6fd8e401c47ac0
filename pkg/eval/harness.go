// Package eval runs the agent against a batch of conversations and
// collects per-run result rows. Every evaluated run is forced into
// dry-run mode so nothing is written back to Intercom or the tool
// server's side-effecting tools.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/talent-success/melvin/pkg/agent"
	"github.com/talent-success/melvin/pkg/config"
	"github.com/talent-success/melvin/pkg/models"
)

// resultsFileName is the CSV inside the output directory; batches append
// to it so successive evaluations accumulate in one file.
const resultsFileName = "eval_results.csv"

// agentRunner is the slice of the orchestrator the harness uses.
type agentRunner interface {
	Run(ctx context.Context, conversationID string) *models.State
}

// Harness evaluates conversations on a bounded worker pool.
type Harness struct {
	runner      agentRunner
	parallelism int
	outputDir   string
	logger      *slog.Logger
}

// New creates a harness with its own orchestrator. The configuration is
// copied with DryRun forced on; the caller's config is untouched.
func New(cfg *config.Config) *Harness {
	evalCfg := *cfg
	evalCfg.DryRun = true
	return NewWithRunner(agent.New(&evalCfg), cfg.Eval)
}

// NewWithRunner creates a harness around an existing runner. Useful for
// testing with a stub orchestrator.
func NewWithRunner(runner agentRunner, cfg config.EvalConfig) *Harness {
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = config.DefaultEvalParallelism
	}
	return &Harness{
		runner:      runner,
		parallelism: parallelism,
		outputDir:   cfg.OutputDir,
		logger:      slog.Default().With("component", "eval"),
	}
}

// Run evaluates the conversations in parallel and appends one CSV row
// per conversation to the results file. Rows come back in input order
// regardless of which worker finished first.
func (h *Harness) Run(ctx context.Context, conversationIDs []string) ([]Row, error) {
	evalID := uuid.NewString()
	logger := h.logger.With("eval_id", evalID)
	logger.Info("evaluation started",
		"conversations", len(conversationIDs),
		"workers", h.parallelism)

	rows := h.evaluateAll(ctx, logger, conversationIDs)

	path := filepath.Join(h.outputDir, resultsFileName)
	if err := AppendResults(path, rows); err != nil {
		return rows, fmt.Errorf("write evaluation results: %w", err)
	}

	failed := 0
	for _, row := range rows {
		if row.Error != "" {
			failed++
		}
	}
	logger.Info("evaluation finished",
		"results_file", path,
		"total", len(rows),
		"succeeded", len(rows)-failed,
		"failed", failed)

	return rows, nil
}

func (h *Harness) evaluateAll(ctx context.Context, logger *slog.Logger, conversationIDs []string) []Row {
	rows := make([]Row, len(conversationIDs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < h.parallelism; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log := logger.With("worker_id", workerID)
			for idx := range jobs {
				rows[idx] = h.evaluate(ctx, log, conversationIDs[idx])
			}
		}(i)
	}

	for i := range conversationIDs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return rows
}

func (h *Harness) evaluate(ctx context.Context, logger *slog.Logger, conversationID string) Row {
	logger.Info("evaluating conversation", "conversation_id", conversationID)

	state := h.runner.Run(ctx, conversationID)
	row := RowFromState(state)

	logger.Info("conversation evaluated",
		"conversation_id", conversationID,
		"hops", row.Hops,
		"escalated", row.EscalationReason != "",
		"error", row.Error)
	return row
}
