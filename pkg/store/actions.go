package store

import (
	"context"
	"fmt"

	"github.com/detrin/sentinel/pkg/models"
)

// CreateAction inserts an action and fills in its generated ID.
func (s *Store) CreateAction(ctx context.Context, action *models.Action) error {
	query := `
		INSERT INTO actions (switch_id, action_order, action_type, is_warning, config)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		action.SwitchID,
		action.ActionOrder,
		action.ActionType,
		action.IsWarning,
		action.Config,
	).Scan(&action.ID)
	if err != nil {
		return fmt.Errorf("failed to insert action: %w", err)
	}
	return nil
}

// ListActions returns a switch's warning or final actions ordered by
// action_order, the order the runner executes them in.
func (s *Store) ListActions(ctx context.Context, switchID string, isWarning bool) ([]*models.Action, error) {
	query := `
		SELECT id, switch_id, action_order, action_type, is_warning, config
		FROM actions
		WHERE switch_id = $1 AND is_warning = $2
		ORDER BY action_order ASC
	`
	rows, err := s.db.QueryContext(ctx, query, switchID, isWarning)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []*models.Action
	for rows.Next() {
		var action models.Action
		err := rows.Scan(
			&action.ID,
			&action.SwitchID,
			&action.ActionOrder,
			&action.ActionType,
			&action.IsWarning,
			&action.Config,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, &action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate actions: %w", err)
	}
	return actions, nil
}
