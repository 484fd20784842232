package store

import (
	"context"
	"fmt"

	"github.com/detrin/sentinel/pkg/models"
)

// BeginExecution inserts a running execution record before an action is
// dispatched and returns its ID. If the process dies mid-action the row stays
// in 'running' state until startup recovery reaps it.
func (s *Store) BeginExecution(ctx context.Context, switchID string, actionID int64, executionType models.ExecutionType, startedAt int64) (int64, error) {
	query := `
		INSERT INTO action_executions (switch_id, action_id, execution_type, started_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query, switchID, actionID, executionType, startedAt, models.ExecutionStatusRunning).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert execution record: %w", err)
	}
	return id, nil
}

// ExecutionOutcome carries the result of a finished action run.
type ExecutionOutcome struct {
	CompletedAt  int64
	ExitCode     int64
	Stdout       string
	Stderr       string
	ErrorMessage string
}

// Status derives the final record state: any error message or non-zero exit
// code means the action failed.
func (o ExecutionOutcome) Status() models.ExecutionStatus {
	if o.ErrorMessage != "" || o.ExitCode != 0 {
		return models.ExecutionStatusFailed
	}
	return models.ExecutionStatusCompleted
}

// FinishExecution closes out a running execution record with its outcome.
// A driver error means there was no process outcome, so exit code and output
// are stored as NULL rather than zero values.
func (s *Store) FinishExecution(ctx context.Context, id int64, outcome ExecutionOutcome) error {
	query := `
		UPDATE action_executions
		SET completed_at = $1, status = $2, exit_code = $3, stdout = $4, stderr = $5, error_message = $6
		WHERE id = $7
	`
	var (
		exitCode               *int64
		stdout, stderr, errMsg *string
	)
	if outcome.ErrorMessage != "" {
		errMsg = &outcome.ErrorMessage
	} else {
		exitCode = &outcome.ExitCode
		stdout = &outcome.Stdout
		stderr = &outcome.Stderr
	}
	res, err := s.db.ExecContext(ctx, query,
		outcome.CompletedAt,
		outcome.Status(),
		exitCode,
		stdout,
		stderr,
		errMsg,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution record: %w", err)
	}
	return requireOneRow(res)
}

// ReapOrphanedExecutions fails every record still marked running. Called once
// at startup, before the scheduler ticks, so rows abandoned by a crash cannot
// masquerade as in-flight work. Returns the number of rows reaped.
func (s *Store) ReapOrphanedExecutions(ctx context.Context) (int64, error) {
	query := `
		UPDATE action_executions
		SET status = $1, error_message = $2
		WHERE status = $3
	`
	res, err := s.db.ExecContext(ctx, query,
		models.ExecutionStatusFailed,
		"Process crashed during execution",
		models.ExecutionStatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reap orphaned executions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}

// ListExecutionHistory returns a switch's most recent executions, newest
// first, capped at limit.
func (s *Store) ListExecutionHistory(ctx context.Context, switchID string, limit int) ([]*models.ActionExecution, error) {
	query := `
		SELECT id, switch_id, action_id, execution_type, started_at, completed_at,
			status, exit_code, stdout, stderr, error_message
		FROM action_executions
		WHERE switch_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, switchID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution history: %w", err)
	}
	defer rows.Close()

	var executions []*models.ActionExecution
	for rows.Next() {
		var exec models.ActionExecution
		err := rows.Scan(
			&exec.ID,
			&exec.SwitchID,
			&exec.ActionID,
			&exec.ExecutionType,
			&exec.StartedAt,
			&exec.CompletedAt,
			&exec.Status,
			&exec.ExitCode,
			&exec.Stdout,
			&exec.Stderr,
			&exec.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution record: %w", err)
		}
		executions = append(executions, &exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate execution records: %w", err)
	}
	return executions, nil
}

// PurgeCompletedExecutions deletes finished executions older than the cutoff.
// Running records are never purged; recovery owns those.
func (s *Store) PurgeCompletedExecutions(ctx context.Context, olderThan int64) (int64, error) {
	query := `
		DELETE FROM action_executions
		WHERE status != $1 AND started_at < $2
	`
	res, err := s.db.ExecContext(ctx, query, models.ExecutionStatusRunning, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge execution records: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}
