// Package actions implements the drivers that fire when a switch warns or
// expires: email through the configured SMTP relay, webhooks over HTTP, and
// sandboxed local scripts.
//
// Drivers return a Result plus an error. The error carries a stable,
// human-readable message that lands in the execution audit trail; a nil
// error with a non-zero exit code still marks the execution failed.
package actions

import (
	"context"
	"fmt"

	"github.com/detrin/sentinel/pkg/config"
	"github.com/detrin/sentinel/pkg/models"
)

// Result is a driver's captured outcome.
type Result struct {
	ExitCode int64
	Stdout   string
	Stderr   string
}

// Dispatcher routes an action to its kind-specific driver.
type Dispatcher struct {
	email   *EmailDriver
	webhook *WebhookDriver
	script  *ScriptDriver
}

// NewDispatcher wires the three drivers from the process configuration.
func NewDispatcher(cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		email:   NewEmailDriver(cfg.SMTP),
		webhook: NewWebhookDriver(),
		script:  NewScriptDriver(cfg.Scripts),
	}
}

// Execute runs one action to completion. The action type set is closed;
// anything else is an error so a corrupted row surfaces in the audit trail
// instead of being skipped silently.
func (d *Dispatcher) Execute(ctx context.Context, action *models.Action, executionType models.ExecutionType) (Result, error) {
	switch action.ActionType {
	case models.ActionTypeEmail:
		return d.email.Execute(ctx, action.Config)
	case models.ActionTypeWebhook:
		return d.webhook.Execute(ctx, action.Config)
	case models.ActionTypeScript:
		return d.script.Execute(ctx, action.Config, action.SwitchID, executionType)
	default:
		return Result{}, fmt.Errorf("Unknown action type: %s", action.ActionType)
	}
}
