package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detrin/sentinel/pkg/models"
	testdb "github.com/detrin/sentinel/test/database"
)

func newTestStore(t *testing.T) *Store {
	client := testdb.NewTestClient(t)
	return New(client.DB())
}

func seedSwitch(t *testing.T, s *Store, id string, mutate func(*models.Switch)) *models.Switch {
	t.Helper()
	now := time.Now().Unix()
	sw := &models.Switch{
		ID:                     id,
		Name:                   "test switch " + id,
		APIToken:               "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		TimeoutSeconds:         3600,
		LastCheckin:            now,
		Status:                 models.SwitchStatusActive,
		CreatedAt:              now,
		TriggerCountMax:        3,
		TriggerIntervalSeconds: 600,
	}
	if mutate != nil {
		mutate(sw)
	}
	require.NoError(t, s.CreateSwitch(context.Background(), sw))
	return sw
}

func TestStore_SwitchLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	desc := "nightly backup on nas-01"
	created := seedSwitch(t, s, "sw-lifecycle", func(sw *models.Switch) {
		sw.Description = &desc
	})

	// Round-trip preserves every column, including nullable ones.
	got, err := s.GetSwitch(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Name, got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	assert.Equal(t, created.APIToken, got.APIToken)
	assert.Equal(t, created.TimeoutSeconds, got.TimeoutSeconds)
	assert.Equal(t, created.LastCheckin, got.LastCheckin)
	assert.Nil(t, got.LastTrigger)
	assert.Equal(t, models.SwitchStatusActive, got.Status)
	assert.Equal(t, int64(3), got.TriggerCountMax)
	assert.Equal(t, int64(600), got.TriggerIntervalSeconds)
	assert.Equal(t, int64(0), got.TriggerCountExecuted)

	// Check-in moves the deadline window.
	newCheckin := created.LastCheckin + 120
	require.NoError(t, s.UpdateLastCheckin(ctx, created.ID, newCheckin))
	got, err = s.GetSwitch(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, newCheckin, got.LastCheckin)
	assert.Equal(t, newCheckin+created.TimeoutSeconds, got.Deadline())

	// First trigger flips status and seeds the executed counter.
	triggerTime := newCheckin + created.TimeoutSeconds
	require.NoError(t, s.MarkTriggered(ctx, created.ID, triggerTime))
	got, err = s.GetSwitch(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SwitchStatusTriggered, got.Status)
	require.NotNil(t, got.LastTrigger)
	assert.Equal(t, triggerTime, *got.LastTrigger)
	assert.Equal(t, int64(1), got.TriggerCountExecuted)

	// Each retrigger advances the counter and the last trigger time.
	require.NoError(t, s.RecordRetrigger(ctx, created.ID, triggerTime+600))
	require.NoError(t, s.RecordRetrigger(ctx, created.ID, triggerTime+1200))
	got, err = s.GetSwitch(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.TriggerCountExecuted)
	require.NotNil(t, got.LastTrigger)
	assert.Equal(t, triggerTime+1200, *got.LastTrigger)

	require.NoError(t, s.DeleteSwitch(ctx, created.ID))
	_, err = s.GetSwitch(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SwitchNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetSwitch(ctx, "no-such-switch")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.UpdateLastCheckin(ctx, "no-such-switch", 42), ErrNotFound)
	assert.ErrorIs(t, s.MarkTriggered(ctx, "no-such-switch", 42), ErrNotFound)
	assert.ErrorIs(t, s.RecordRetrigger(ctx, "no-such-switch", 42), ErrNotFound)
	assert.ErrorIs(t, s.DeleteSwitch(ctx, "no-such-switch"), ErrNotFound)
}

func TestStore_ListSwitchesByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedSwitch(t, s, "sw-active-1", nil)
	seedSwitch(t, s, "sw-active-2", nil)
	seedSwitch(t, s, "sw-paused", func(sw *models.Switch) {
		sw.Status = models.SwitchStatusPaused
	})
	seedSwitch(t, s, "sw-triggered", func(sw *models.Switch) {
		sw.Status = models.SwitchStatusTriggered
	})

	all, err := s.ListSwitches(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	active, err := s.ListActiveSwitches(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, sw := range active {
		assert.Equal(t, models.SwitchStatusActive, sw.Status)
	}

	triggered, err := s.ListTriggeredSwitches(ctx)
	require.NoError(t, err)
	require.Len(t, triggered, 1)
	assert.Equal(t, "sw-triggered", triggered[0].ID)

	counts, err := s.CountSwitchesByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.SwitchStatusActive])
	assert.Equal(t, int64(1), counts[models.SwitchStatusPaused])
	assert.Equal(t, int64(1), counts[models.SwitchStatusTriggered])
}

func TestStore_WarningStagesAndDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sw := seedSwitch(t, s, "sw-warnings", nil)

	// Insert out of order; listing must come back ascending.
	for _, secs := range []int64{1800, 300, 900} {
		err := s.CreateWarningStage(ctx, &models.WarningStage{
			SwitchID:              sw.ID,
			SecondsBeforeDeadline: secs,
		})
		require.NoError(t, err)
	}
	stages, err := s.ListWarningStages(ctx, sw.ID)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, int64(300), stages[0].SecondsBeforeDeadline)
	assert.Equal(t, int64(900), stages[1].SecondsBeforeDeadline)
	assert.Equal(t, int64(1800), stages[2].SecondsBeforeDeadline)

	sent, err := s.WasWarningSent(ctx, sw.ID, 300)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, s.RecordWarningSent(ctx, sw.ID, 300, time.Now().Unix()))
	sent, err = s.WasWarningSent(ctx, sw.ID, 300)
	require.NoError(t, err)
	assert.True(t, sent)

	// The other stages are still pending.
	sent, err = s.WasWarningSent(ctx, sw.ID, 900)
	require.NoError(t, err)
	assert.False(t, sent)

	// The (switch, stage) pair is unique; recording twice is a bug upstream
	// and the schema rejects it.
	err = s.RecordWarningSent(ctx, sw.ID, 300, time.Now().Unix())
	assert.Error(t, err)
}

func TestStore_PurgeStaleWarningExecutions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().Unix()
	sw := seedSwitch(t, s, "sw-purge-warnings", func(sw *models.Switch) {
		sw.LastCheckin = now
	})

	// One record from a previous cycle, one from the current cycle.
	require.NoError(t, s.RecordWarningSent(ctx, sw.ID, 300, now-10_000))
	require.NoError(t, s.RecordWarningSent(ctx, sw.ID, 900, now+5))

	purged, err := s.PurgeStaleWarningExecutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	// The stale record is gone, so the stage could fire again; the current
	// cycle's record still suppresses its stage.
	sent, err := s.WasWarningSent(ctx, sw.ID, 300)
	require.NoError(t, err)
	assert.False(t, sent)
	sent, err = s.WasWarningSent(ctx, sw.ID, 900)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestStore_ActionsOrderedWithinPartition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sw := seedSwitch(t, s, "sw-actions", nil)

	insert := func(order int64, actionType models.ActionType, isWarning bool) {
		t.Helper()
		action := &models.Action{
			SwitchID:    sw.ID,
			ActionOrder: order,
			ActionType:  actionType,
			IsWarning:   isWarning,
			Config:      `{"url":"https://example.com/hook","method":"POST"}`,
		}
		require.NoError(t, s.CreateAction(ctx, action))
		assert.NotZero(t, action.ID)
	}

	insert(1, models.ActionTypeWebhook, false)
	insert(0, models.ActionTypeEmail, false)
	insert(2, models.ActionTypeScript, false)
	insert(0, models.ActionTypeEmail, true)

	final, err := s.ListActions(ctx, sw.ID, false)
	require.NoError(t, err)
	require.Len(t, final, 3)
	assert.Equal(t, models.ActionTypeEmail, final[0].ActionType)
	assert.Equal(t, models.ActionTypeWebhook, final[1].ActionType)
	assert.Equal(t, models.ActionTypeScript, final[2].ActionType)

	warnings, err := s.ListActions(ctx, sw.ID, true)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.True(t, warnings[0].IsWarning)
}

func TestStore_ExecutionRecordLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sw := seedSwitch(t, s, "sw-executions", nil)

	action := &models.Action{
		SwitchID:    sw.ID,
		ActionOrder: 0,
		ActionType:  models.ActionTypeWebhook,
		Config:      `{"url":"https://example.com/hook","method":"GET"}`,
	}
	require.NoError(t, s.CreateAction(ctx, action))

	start := time.Now().Unix()
	id, err := s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeFinal, start)
	require.NoError(t, err)
	require.NotZero(t, id)

	history, err := s.ListExecutionHistory(ctx, sw.ID, 100)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ExecutionStatusRunning, history[0].Status)
	assert.Nil(t, history[0].CompletedAt)

	err = s.FinishExecution(ctx, id, ExecutionOutcome{
		CompletedAt: start + 2,
		ExitCode:    0,
		Stdout:      "Webhook executed successfully (HTTP 200)",
	})
	require.NoError(t, err)

	history, err = s.ListExecutionHistory(ctx, sw.ID, 100)
	require.NoError(t, err)
	require.Len(t, history, 1)
	exec := history[0]
	assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)
	assert.Equal(t, models.ExecutionTypeFinal, exec.ExecutionType)
	require.NotNil(t, exec.CompletedAt)
	assert.Equal(t, start+2, *exec.CompletedAt)
	require.NotNil(t, exec.ExitCode)
	assert.Equal(t, int64(0), *exec.ExitCode)
	require.NotNil(t, exec.Stdout)
	assert.Equal(t, "Webhook executed successfully (HTTP 200)", *exec.Stdout)
	assert.Nil(t, exec.ErrorMessage)
}

func TestStore_FinishExecutionWithDriverError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sw := seedSwitch(t, s, "sw-driver-error", nil)

	action := &models.Action{
		SwitchID:   sw.ID,
		ActionType: models.ActionTypeWebhook,
		Config:     `{"url":"https://example.com/hook","method":"PATCH"}`,
	}
	require.NoError(t, s.CreateAction(ctx, action))

	start := time.Now().Unix()
	id, err := s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeWarning, start)
	require.NoError(t, err)

	require.NoError(t, s.FinishExecution(ctx, id, ExecutionOutcome{
		CompletedAt:  start + 1,
		ErrorMessage: "Unsupported HTTP method: PATCH",
	}))

	history, err := s.ListExecutionHistory(ctx, sw.ID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	exec := history[0]
	assert.Equal(t, models.ExecutionStatusFailed, exec.Status)
	require.NotNil(t, exec.ErrorMessage)
	assert.Equal(t, "Unsupported HTTP method: PATCH", *exec.ErrorMessage)
	// A driver error carries no process outcome.
	assert.Nil(t, exec.ExitCode)
	assert.Nil(t, exec.Stdout)
	assert.Nil(t, exec.Stderr)
}

func TestStore_ExecutionOutcomeStatus(t *testing.T) {
	tests := []struct {
		name    string
		outcome ExecutionOutcome
		want    models.ExecutionStatus
	}{
		{"clean run", ExecutionOutcome{ExitCode: 0}, models.ExecutionStatusCompleted},
		{"non-zero exit", ExecutionOutcome{ExitCode: 2}, models.ExecutionStatusFailed},
		{"killed by timeout", ExecutionOutcome{ExitCode: -1}, models.ExecutionStatusFailed},
		{"error message", ExecutionOutcome{ExitCode: 0, ErrorMessage: "connection refused"}, models.ExecutionStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.Status())
		})
	}
}

func TestStore_ReapOrphanedExecutions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sw := seedSwitch(t, s, "sw-orphans", nil)

	action := &models.Action{
		SwitchID:   sw.ID,
		ActionType: models.ActionTypeScript,
		Config:     `{"script_path":"notify.sh"}`,
	}
	require.NoError(t, s.CreateAction(ctx, action))

	start := time.Now().Unix()
	orphan1, err := s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeFinal, start)
	require.NoError(t, err)
	orphan2, err := s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeWarning, start)
	require.NoError(t, err)
	finished, err := s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeFinal, start)
	require.NoError(t, err)
	require.NoError(t, s.FinishExecution(ctx, finished, ExecutionOutcome{CompletedAt: start + 1}))

	reaped, err := s.ReapOrphanedExecutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reaped)

	history, err := s.ListExecutionHistory(ctx, sw.ID, 100)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for _, exec := range history {
		switch exec.ID {
		case orphan1, orphan2:
			assert.Equal(t, models.ExecutionStatusFailed, exec.Status)
			require.NotNil(t, exec.ErrorMessage)
			assert.Equal(t, "Process crashed during execution", *exec.ErrorMessage)
		default:
			assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)
		}
	}

	// Reaping again is a no-op.
	reaped, err = s.ReapOrphanedExecutions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reaped)
}

func TestStore_ExecutionHistoryOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sw := seedSwitch(t, s, "sw-history", nil)

	action := &models.Action{
		SwitchID:   sw.ID,
		ActionType: models.ActionTypeEmail,
		Config:     `{"bcc":["ops@example.com"],"subject":"s","body":"b"}`,
	}
	require.NoError(t, s.CreateAction(ctx, action))

	base := time.Now().Unix()
	for i := int64(0); i < 5; i++ {
		id, err := s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeFinal, base+i)
		require.NoError(t, err)
		require.NoError(t, s.FinishExecution(ctx, id, ExecutionOutcome{CompletedAt: base + i}))
	}

	history, err := s.ListExecutionHistory(ctx, sw.ID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Newest first.
	assert.Equal(t, base+4, history[0].StartedAt)
	assert.Equal(t, base+3, history[1].StartedAt)
	assert.Equal(t, base+2, history[2].StartedAt)
}

func TestStore_PurgeCompletedExecutions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sw := seedSwitch(t, s, "sw-retention", nil)

	action := &models.Action{
		SwitchID:   sw.ID,
		ActionType: models.ActionTypeWebhook,
		Config:     `{"url":"https://example.com/hook","method":"GET"}`,
	}
	require.NoError(t, s.CreateAction(ctx, action))

	now := time.Now().Unix()
	cutoff := now - 90*24*3600

	oldDone, err := s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeFinal, cutoff-100)
	require.NoError(t, err)
	require.NoError(t, s.FinishExecution(ctx, oldDone, ExecutionOutcome{CompletedAt: cutoff - 99}))

	// Old but still running: recovery owns it, retention must not touch it.
	_, err = s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeFinal, cutoff-100)
	require.NoError(t, err)

	recent, err := s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeFinal, now)
	require.NoError(t, err)
	require.NoError(t, s.FinishExecution(ctx, recent, ExecutionOutcome{CompletedAt: now + 1}))

	purged, err := s.PurgeCompletedExecutions(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	history, err := s.ListExecutionHistory(ctx, sw.ID, 100)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	for _, exec := range history {
		assert.NotEqual(t, oldDone, exec.ID)
	}
}

func TestStore_CascadeDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sw := seedSwitch(t, s, "sw-cascade", nil)

	require.NoError(t, s.CreateWarningStage(ctx, &models.WarningStage{
		SwitchID:              sw.ID,
		SecondsBeforeDeadline: 300,
	}))
	action := &models.Action{
		SwitchID:   sw.ID,
		ActionType: models.ActionTypeEmail,
		Config:     `{"bcc":["ops@example.com"],"subject":"s","body":"b"}`,
	}
	require.NoError(t, s.CreateAction(ctx, action))
	id, err := s.BeginExecution(ctx, sw.ID, action.ID, models.ExecutionTypeFinal, time.Now().Unix())
	require.NoError(t, err)
	require.NoError(t, s.FinishExecution(ctx, id, ExecutionOutcome{CompletedAt: time.Now().Unix()}))
	require.NoError(t, s.RecordWarningSent(ctx, sw.ID, 300, time.Now().Unix()))

	require.NoError(t, s.DeleteSwitch(ctx, sw.ID))

	stages, err := s.ListWarningStages(ctx, sw.ID)
	require.NoError(t, err)
	assert.Empty(t, stages)

	actions, err := s.ListActions(ctx, sw.ID, false)
	require.NoError(t, err)
	assert.Empty(t, actions)

	history, err := s.ListExecutionHistory(ctx, sw.ID, 100)
	require.NoError(t, err)
	assert.Empty(t, history)

	sent, err := s.WasWarningSent(ctx, sw.ID, 300)
	require.NoError(t, err)
	assert.False(t, sent)
}
