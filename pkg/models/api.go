package models

import "encoding/json"

// CreateSwitchRequest is the body of POST /switches.
type CreateSwitchRequest struct {
	Name                   string                `json:"name"`
	Description            *string               `json:"description,omitempty"`
	TimeoutSeconds         int64                 `json:"timeout_seconds"`
	TriggerCountMax        int64                 `json:"trigger_count_max"`
	TriggerIntervalSeconds int64                 `json:"trigger_interval_seconds"`
	WarningStages          []int64               `json:"warning_stages"`
	WarningActions         []CreateActionRequest `json:"warning_actions"`
	FinalActions           []CreateActionRequest `json:"final_actions"`
}

// CreateActionRequest configures one action at switch creation. Config is
// passed through to the driver untouched.
type CreateActionRequest struct {
	ActionType ActionType      `json:"action_type"`
	Config     json.RawMessage `json:"config"`
}

// CreateSwitchResponse carries the identifiers of a freshly created switch.
// This is the only response that ever serializes the API token.
type CreateSwitchResponse struct {
	Success  bool   `json:"success"`
	SwitchID string `json:"switch_id"`
	APIToken string `json:"api_token"`
}

// CheckinResponse acknowledges a successful deadline reset.
type CheckinResponse struct {
	Success      bool  `json:"success"`
	LastCheckin  int64 `json:"last_checkin"`
	NextDeadline int64 `json:"next_deadline"`
}

// SwitchDetail aggregates everything known about one switch.
type SwitchDetail struct {
	Switch           *Switch            `json:"switch"`
	WarningStages    []*WarningStage    `json:"warning_stages"`
	WarningActions   []*Action          `json:"warning_actions"`
	FinalActions     []*Action          `json:"final_actions"`
	ExecutionHistory []*ActionExecution `json:"execution_history"`
}
