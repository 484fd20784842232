package store

import (
	"context"
	"fmt"

	"github.com/detrin/sentinel/pkg/models"
)

// CreateWarningStage inserts a stage and fills in its generated ID.
func (s *Store) CreateWarningStage(ctx context.Context, stage *models.WarningStage) error {
	query := `
		INSERT INTO warning_stages (switch_id, seconds_before_deadline)
		VALUES ($1, $2)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, stage.SwitchID, stage.SecondsBeforeDeadline).Scan(&stage.ID)
	if err != nil {
		return fmt.Errorf("failed to insert warning stage: %w", err)
	}
	return nil
}

// ListWarningStages returns a switch's stages in ascending
// seconds_before_deadline order, the order the scheduler evaluates them in.
func (s *Store) ListWarningStages(ctx context.Context, switchID string) ([]*models.WarningStage, error) {
	query := `
		SELECT id, switch_id, seconds_before_deadline
		FROM warning_stages
		WHERE switch_id = $1
		ORDER BY seconds_before_deadline ASC
	`
	rows, err := s.db.QueryContext(ctx, query, switchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query warning stages: %w", err)
	}
	defer rows.Close()

	var stages []*models.WarningStage
	for rows.Next() {
		var stage models.WarningStage
		if err := rows.Scan(&stage.ID, &stage.SwitchID, &stage.SecondsBeforeDeadline); err != nil {
			return nil, fmt.Errorf("failed to scan warning stage: %w", err)
		}
		stages = append(stages, &stage)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate warning stages: %w", err)
	}
	return stages, nil
}

// WasWarningSent reports whether the (switch, stage) pair has already fired.
func (s *Store) WasWarningSent(ctx context.Context, switchID string, stageSeconds int64) (bool, error) {
	query := `
		SELECT COUNT(*) FROM warning_executions
		WHERE switch_id = $1 AND stage_seconds = $2
	`
	var count int64
	if err := s.db.QueryRowContext(ctx, query, switchID, stageSeconds).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check warning execution: %w", err)
	}
	return count > 0, nil
}

// RecordWarningSent marks a (switch, stage) pair as fired. Called strictly
// after the warning actions have run.
func (s *Store) RecordWarningSent(ctx context.Context, switchID string, stageSeconds, timestamp int64) error {
	query := `
		INSERT INTO warning_executions (switch_id, stage_seconds, executed_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.db.ExecContext(ctx, query, switchID, stageSeconds, timestamp); err != nil {
		return fmt.Errorf("failed to record warning execution: %w", err)
	}
	return nil
}

// PurgeStaleWarningExecutions deletes warning records that predate their
// switch's current deadline window. Such rows belong to completed cycles and
// can no longer suppress a pending warning.
func (s *Store) PurgeStaleWarningExecutions(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM warning_executions we
		USING switches sw
		WHERE we.switch_id = sw.id AND we.executed_at < sw.last_checkin
	`
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to purge warning executions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}
