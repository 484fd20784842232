package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/detrin/sentinel/pkg/auth"
	"github.com/detrin/sentinel/pkg/models"
	"github.com/detrin/sentinel/pkg/observability"
	"github.com/detrin/sentinel/pkg/store"
)

// executionHistoryLimit caps the audit rows returned in a switch detail.
const executionHistoryLimit = 100

// SwitchService manages switch lifecycle and check-ins.
type SwitchService struct {
	store *store.Store
}

// NewSwitchService creates a new SwitchService
func NewSwitchService(st *store.Store) *SwitchService {
	return &SwitchService{store: st}
}

// CreateSwitch creates a switch together with its warning stages and both
// action lists. The generated API token is returned exactly once, here.
func (s *SwitchService) CreateSwitch(ctx context.Context, req models.CreateSwitchRequest) (*models.CreateSwitchResponse, error) {
	// Validate input
	if req.Name == "" {
		return nil, NewValidationError("name", "required")
	}
	if req.TimeoutSeconds < 1 {
		return nil, NewValidationError("timeout_seconds", "must be >= 1")
	}
	if req.TriggerCountMax < 0 {
		return nil, NewValidationError("trigger_count_max", "must be >= 0")
	}
	if req.TriggerIntervalSeconds < 1 {
		return nil, NewValidationError("trigger_interval_seconds", "must be >= 1")
	}
	for _, seconds := range req.WarningStages {
		if seconds <= 0 || seconds >= req.TimeoutSeconds {
			return nil, NewValidationError("warning_stages",
				fmt.Sprintf("stage %d must satisfy 0 < stage < timeout_seconds", seconds))
		}
	}
	if err := validateActions("warning_actions", req.WarningActions); err != nil {
		return nil, err
	}
	if err := validateActions("final_actions", req.FinalActions); err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api token: %w", err)
	}

	now := time.Now().Unix()
	sw := &models.Switch{
		ID:                     uuid.New().String(),
		Name:                   req.Name,
		Description:            req.Description,
		APIToken:               token,
		TimeoutSeconds:         req.TimeoutSeconds,
		LastCheckin:            now,
		Status:                 models.SwitchStatusActive,
		CreatedAt:              now,
		TriggerCountMax:        req.TriggerCountMax,
		TriggerIntervalSeconds: req.TriggerIntervalSeconds,
	}
	if err := s.store.CreateSwitch(ctx, sw); err != nil {
		return nil, fmt.Errorf("failed to create switch: %w", err)
	}

	for _, seconds := range req.WarningStages {
		stage := &models.WarningStage{SwitchID: sw.ID, SecondsBeforeDeadline: seconds}
		if err := s.store.CreateWarningStage(ctx, stage); err != nil {
			return nil, fmt.Errorf("failed to create warning stage: %w", err)
		}
	}
	if err := s.createActions(ctx, sw.ID, req.WarningActions, true); err != nil {
		return nil, err
	}
	if err := s.createActions(ctx, sw.ID, req.FinalActions, false); err != nil {
		return nil, err
	}

	slog.Info("Created new switch", "name", sw.Name, "switch_id", sw.ID)

	return &models.CreateSwitchResponse{
		Success:  true,
		SwitchID: sw.ID,
		APIToken: token,
	}, nil
}

func validateActions(field string, reqs []models.CreateActionRequest) error {
	for _, r := range reqs {
		if !r.ActionType.IsValid() {
			return NewValidationError(field, fmt.Sprintf("unknown action type '%s'", r.ActionType))
		}
		if len(r.Config) == 0 {
			return NewValidationError(field, "config is required")
		}
	}
	return nil
}

func (s *SwitchService) createActions(ctx context.Context, switchID string, reqs []models.CreateActionRequest, isWarning bool) error {
	for order, r := range reqs {
		action := &models.Action{
			SwitchID:    switchID,
			ActionOrder: int64(order),
			ActionType:  r.ActionType,
			IsWarning:   isWarning,
			Config:      string(r.Config),
		}
		if err := s.store.CreateAction(ctx, action); err != nil {
			return fmt.Errorf("failed to create action: %w", err)
		}
	}
	return nil
}

// ListSwitches returns all switches, newest first.
func (s *SwitchService) ListSwitches(ctx context.Context) ([]*models.Switch, error) {
	switches, err := s.store.ListSwitches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list switches: %w", err)
	}
	if switches == nil {
		switches = []*models.Switch{}
	}
	return switches, nil
}

// GetSwitchDetail returns one switch with its stages, both action lists, and
// the most recent execution history.
func (s *SwitchService) GetSwitchDetail(ctx context.Context, id string) (*models.SwitchDetail, error) {
	sw, err := s.store.GetSwitch(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get switch: %w", err)
	}

	stages, err := s.store.ListWarningStages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get warning stages: %w", err)
	}
	warningActions, err := s.store.ListActions(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get warning actions: %w", err)
	}
	finalActions, err := s.store.ListActions(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get final actions: %w", err)
	}
	history, err := s.store.ListExecutionHistory(ctx, id, executionHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution history: %w", err)
	}

	detail := &models.SwitchDetail{
		Switch:           sw,
		WarningStages:    stages,
		WarningActions:   warningActions,
		FinalActions:     finalActions,
		ExecutionHistory: history,
	}
	// JSON renders empty arrays, not null.
	if detail.WarningStages == nil {
		detail.WarningStages = []*models.WarningStage{}
	}
	if detail.WarningActions == nil {
		detail.WarningActions = []*models.Action{}
	}
	if detail.FinalActions == nil {
		detail.FinalActions = []*models.Action{}
	}
	if detail.ExecutionHistory == nil {
		detail.ExecutionHistory = []*models.ActionExecution{}
	}
	return detail, nil
}

// DeleteSwitch removes a switch and everything it owns.
func (s *SwitchService) DeleteSwitch(ctx context.Context, id string) error {
	err := s.store.DeleteSwitch(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete switch: %w", err)
	}
	slog.Info("Deleted switch", "switch_id", id)
	return nil
}

// CheckIn authenticates a check-in and resets the switch's deadline. An
// unknown switch ID and a wrong token both return ErrAuthenticationFailed so
// that callers cannot probe for valid IDs. The presented token is never
// logged.
func (s *SwitchService) CheckIn(ctx context.Context, id, token string) (*models.CheckinResponse, error) {
	sw, err := s.store.GetSwitch(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("Authentication failed", "switch_id", id)
		observability.CheckinsTotal.WithLabelValues(observability.CheckinResultUnauthorized).Inc()
		return nil, ErrAuthenticationFailed
	}
	if err != nil {
		observability.CheckinsTotal.WithLabelValues(observability.CheckinResultError).Inc()
		return nil, fmt.Errorf("failed to get switch: %w", err)
	}

	if !auth.VerifyToken(sw.APIToken, token) {
		slog.Warn("Authentication failed", "switch_id", id)
		observability.CheckinsTotal.WithLabelValues(observability.CheckinResultUnauthorized).Inc()
		return nil, ErrAuthenticationFailed
	}

	now := time.Now().Unix()
	if err := s.store.UpdateLastCheckin(ctx, id, now); err != nil {
		observability.CheckinsTotal.WithLabelValues(observability.CheckinResultError).Inc()
		return nil, fmt.Errorf("failed to update checkin: %w", err)
	}

	observability.CheckinsTotal.WithLabelValues(observability.CheckinResultOK).Inc()
	slog.Info("Check-in successful", "switch_id", sw.ID, "name", sw.Name)

	return &models.CheckinResponse{
		Success:      true,
		LastCheckin:  now,
		NextDeadline: now + sw.TimeoutSeconds,
	}, nil
}
