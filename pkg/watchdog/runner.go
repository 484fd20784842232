package watchdog

import (
	"context"
	"log/slog"

	"github.com/juju/clock"

	"github.com/detrin/sentinel/pkg/actions"
	"github.com/detrin/sentinel/pkg/models"
	"github.com/detrin/sentinel/pkg/observability"
	"github.com/detrin/sentinel/pkg/store"
)

// ActionExecutor runs one configured action to completion.
type ActionExecutor interface {
	Execute(ctx context.Context, action *models.Action, executionType models.ExecutionType) (actions.Result, error)
}

// Runner executes an ordered list of actions sequentially with
// continue-on-error semantics: a failing action never aborts the sequence.
// Each invocation is bracketed by an audit record, which is the
// authoritative outcome; the runner reports no aggregate result.
type Runner struct {
	store    *store.Store
	executor ActionExecutor
	clock    clock.Clock
}

// NewRunner creates a runner over the given store and executor.
func NewRunner(st *store.Store, executor ActionExecutor, clk clock.Clock) *Runner {
	return &Runner{
		store:    st,
		executor: executor,
		clock:    clk,
	}
}

// RunAll executes the actions in the given order.
func (r *Runner) RunAll(ctx context.Context, switchID string, acts []*models.Action, executionType models.ExecutionType) {
	log := slog.With("switch_id", switchID, "execution_type", string(executionType))
	log.Info("Executing actions", "count", len(acts))

	for _, action := range acts {
		r.runOne(ctx, log, action, executionType)
	}

	log.Info("Completed actions", "count", len(acts))
}

func (r *Runner) runOne(ctx context.Context, log *slog.Logger, action *models.Action, executionType models.ExecutionType) {
	execID, err := r.store.BeginExecution(ctx, action.SwitchID, action.ID, executionType, r.clock.Now().Unix())
	if err != nil {
		log.Error("Failed to create execution record", "action_id", action.ID, "error", err)
		return
	}

	log.Info("Executing action",
		"action_id", action.ID,
		"action_type", string(action.ActionType),
		"execution_id", execID)

	result, runErr := r.executor.Execute(ctx, action, executionType)

	outcome := store.ExecutionOutcome{
		CompletedAt: r.clock.Now().Unix(),
		ExitCode:    result.ExitCode,
		Stdout:      result.Stdout,
		Stderr:      result.Stderr,
	}
	if runErr != nil {
		outcome.ErrorMessage = runErr.Error()
	}

	if err := r.store.FinishExecution(ctx, execID, outcome); err != nil {
		log.Error("Failed to update execution record", "execution_id", execID, "error", err)
	}
	observability.ActionExecutions.WithLabelValues(string(action.ActionType), string(outcome.Status())).Inc()

	switch {
	case runErr != nil:
		log.Error("Action failed", "action_id", action.ID, "execution_id", execID, "error", runErr)
	case result.ExitCode != 0:
		log.Error("Action exited non-zero", "action_id", action.ID, "execution_id", execID, "exit_code", result.ExitCode)
	default:
		log.Info("Action completed", "action_id", action.ID, "execution_id", execID)
	}
}
