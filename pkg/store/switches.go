package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/detrin/sentinel/pkg/models"
)

const switchColumns = `id, name, description, api_token, timeout_seconds, last_checkin, last_trigger, status, created_at, trigger_count_max, trigger_interval_seconds, trigger_count_executed`

func scanSwitch(row rowScanner) (*models.Switch, error) {
	var sw models.Switch
	err := row.Scan(
		&sw.ID, &sw.Name, &sw.Description, &sw.APIToken, &sw.TimeoutSeconds,
		&sw.LastCheckin, &sw.LastTrigger, &sw.Status, &sw.CreatedAt,
		&sw.TriggerCountMax, &sw.TriggerIntervalSeconds, &sw.TriggerCountExecuted,
	)
	if err != nil {
		return nil, err
	}
	return &sw, nil
}

// CreateSwitch inserts a new switch row.
func (s *Store) CreateSwitch(ctx context.Context, sw *models.Switch) error {
	query := `
		INSERT INTO switches (` + switchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		sw.ID, sw.Name, sw.Description, sw.APIToken, sw.TimeoutSeconds,
		sw.LastCheckin, sw.LastTrigger, sw.Status, sw.CreatedAt,
		sw.TriggerCountMax, sw.TriggerIntervalSeconds, sw.TriggerCountExecuted,
	)
	if err != nil {
		return fmt.Errorf("failed to insert switch: %w", err)
	}
	return nil
}

// GetSwitch loads a switch by ID. Returns ErrNotFound if it does not exist.
func (s *Store) GetSwitch(ctx context.Context, id string) (*models.Switch, error) {
	query := `SELECT ` + switchColumns + ` FROM switches WHERE id = $1`
	sw, err := scanSwitch(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query switch: %w", err)
	}
	return sw, nil
}

// ListSwitches returns all switches, newest first.
func (s *Store) ListSwitches(ctx context.Context) ([]*models.Switch, error) {
	query := `SELECT ` + switchColumns + ` FROM switches ORDER BY created_at DESC`
	return s.querySwitches(ctx, query)
}

// ListActiveSwitches returns the switches the active sweep considers.
func (s *Store) ListActiveSwitches(ctx context.Context) ([]*models.Switch, error) {
	query := `SELECT ` + switchColumns + ` FROM switches WHERE status = $1`
	return s.querySwitches(ctx, query, models.SwitchStatusActive)
}

// ListTriggeredSwitches returns the switches the retrigger sweep considers.
func (s *Store) ListTriggeredSwitches(ctx context.Context) ([]*models.Switch, error) {
	query := `SELECT ` + switchColumns + ` FROM switches WHERE status = $1`
	return s.querySwitches(ctx, query, models.SwitchStatusTriggered)
}

func (s *Store) querySwitches(ctx context.Context, query string, args ...any) ([]*models.Switch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query switches: %w", err)
	}
	defer rows.Close()

	var switches []*models.Switch
	for rows.Next() {
		sw, err := scanSwitch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan switch: %w", err)
		}
		switches = append(switches, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate switches: %w", err)
	}
	return switches, nil
}

// UpdateLastCheckin resets the deadline window. Returns ErrNotFound if the
// switch vanished between authentication and update.
func (s *Store) UpdateLastCheckin(ctx context.Context, id string, timestamp int64) error {
	query := `UPDATE switches SET last_checkin = $1 WHERE id = $2`
	res, err := s.db.ExecContext(ctx, query, timestamp, id)
	if err != nil {
		return fmt.Errorf("failed to update last_checkin: %w", err)
	}
	return requireOneRow(res)
}

// MarkTriggered transitions a switch to triggered after its first expiry:
// status, last_trigger, and the executed counter move in one statement.
func (s *Store) MarkTriggered(ctx context.Context, id string, timestamp int64) error {
	query := `
		UPDATE switches
		SET status = $1, last_trigger = $2, trigger_count_executed = 1
		WHERE id = $3
	`
	res, err := s.db.ExecContext(ctx, query, models.SwitchStatusTriggered, timestamp, id)
	if err != nil {
		return fmt.Errorf("failed to mark switch triggered: %w", err)
	}
	return requireOneRow(res)
}

// RecordRetrigger advances the re-fire bookkeeping. The counter arithmetic
// happens in SQL so concurrent writers can never lose an increment.
func (s *Store) RecordRetrigger(ctx context.Context, id string, timestamp int64) error {
	query := `
		UPDATE switches
		SET last_trigger = $1, trigger_count_executed = trigger_count_executed + 1
		WHERE id = $2
	`
	res, err := s.db.ExecContext(ctx, query, timestamp, id)
	if err != nil {
		return fmt.Errorf("failed to record retrigger: %w", err)
	}
	return requireOneRow(res)
}

// DeleteSwitch removes a switch; stages, actions, and execution history go
// with it via cascade. Returns ErrNotFound if nothing was deleted.
func (s *Store) DeleteSwitch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM switches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete switch: %w", err)
	}
	return requireOneRow(res)
}

// CountSwitchesByStatus returns the number of switches in each status.
func (s *Store) CountSwitchesByStatus(ctx context.Context) (map[models.SwitchStatus]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM switches GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count switches: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SwitchStatus]int64)
	for rows.Next() {
		var status models.SwitchStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return counts, nil
}

func requireOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
