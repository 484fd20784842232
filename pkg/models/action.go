package models

// ActionType identifies the driver that executes an action. The set is
// closed: dispatch matches on the type and anything else is an error.
type ActionType string

const (
	// ActionTypeEmail sends mail through the configured SMTP relay.
	ActionTypeEmail ActionType = "email"
	// ActionTypeWebhook issues a GET or POST to a configured URL.
	ActionTypeWebhook ActionType = "webhook"
	// ActionTypeScript runs an executable from the scripts directory.
	ActionTypeScript ActionType = "script"
)

// IsValid checks if the action type is valid.
func (t ActionType) IsValid() bool {
	return t == ActionTypeEmail || t == ActionTypeWebhook || t == ActionTypeScript
}

// Action is one configured effect of a switch, ordered within its
// (switch, is_warning) partition. Config is an opaque JSON document whose
// shape depends on ActionType; it is parsed by the driver at execution time.
type Action struct {
	ID          int64      `json:"id"`
	SwitchID    string     `json:"switch_id"`
	ActionOrder int64      `json:"action_order"`
	ActionType  ActionType `json:"action_type"`
	IsWarning   bool       `json:"is_warning"`
	Config      string     `json:"config"`
}

// ExecutionType distinguishes why an action ran.
type ExecutionType string

const (
	// ExecutionTypeWarning marks a run caused by an approaching deadline.
	ExecutionTypeWarning ExecutionType = "warning"
	// ExecutionTypeFinal marks a run caused by a missed deadline or re-fire.
	ExecutionTypeFinal ExecutionType = "final"
)

// ExecutionStatus is the lifecycle state of one action invocation.
type ExecutionStatus string

const (
	// ExecutionStatusRunning means the driver has started and not yet returned.
	ExecutionStatusRunning ExecutionStatus = "running"
	// ExecutionStatusCompleted means the driver returned exit code 0 and no error.
	ExecutionStatusCompleted ExecutionStatus = "completed"
	// ExecutionStatusFailed means the driver errored or returned non-zero.
	ExecutionStatusFailed ExecutionStatus = "failed"
)

// ActionExecution is the audit record of a single action invocation.
// Rows are created in running state before the driver is invoked and
// finished exactly once; rows stuck in running indicate a crash and are
// reaped at startup.
type ActionExecution struct {
	ID            int64           `json:"id"`
	SwitchID      string          `json:"switch_id"`
	ActionID      int64           `json:"action_id"`
	ExecutionType ExecutionType   `json:"execution_type"`
	StartedAt     int64           `json:"started_at"`
	CompletedAt   *int64          `json:"completed_at,omitempty"`
	Status        ExecutionStatus `json:"status"`
	ExitCode      *int64          `json:"exit_code,omitempty"`
	Stdout        *string         `json:"stdout,omitempty"`
	Stderr        *string         `json:"stderr,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
}
