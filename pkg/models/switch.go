// Package models defines the persisted entities of the switch supervisor.
// All timestamps are Unix epoch seconds; all durations are whole seconds.
package models

// SwitchStatus is the lifecycle state of a switch.
type SwitchStatus string

const (
	// SwitchStatusActive means the switch is being supervised and can expire.
	SwitchStatusActive SwitchStatus = "active"
	// SwitchStatusTriggered means the deadline was missed and final actions fired.
	SwitchStatusTriggered SwitchStatus = "triggered"
	// SwitchStatusPaused means the scheduler ignores the switch entirely.
	SwitchStatusPaused SwitchStatus = "paused"
)

// IsValid checks if the switch status is valid.
func (s SwitchStatus) IsValid() bool {
	return s == SwitchStatusActive || s == SwitchStatusTriggered || s == SwitchStatusPaused
}

// Switch is a supervised entity whose liveness is asserted by periodic
// check-ins. The API token authenticates check-ins only; it is returned
// once at creation and never serialized afterwards.
type Switch struct {
	ID                     string       `json:"id"`
	Name                   string       `json:"name"`
	Description            *string      `json:"description,omitempty"`
	APIToken               string       `json:"-"`
	TimeoutSeconds         int64        `json:"timeout_seconds"`
	LastCheckin            int64        `json:"last_checkin"`
	LastTrigger            *int64       `json:"last_trigger,omitempty"`
	Status                 SwitchStatus `json:"status"`
	CreatedAt              int64        `json:"created_at"`
	TriggerCountMax        int64        `json:"trigger_count_max"`
	TriggerIntervalSeconds int64        `json:"trigger_interval_seconds"`
	TriggerCountExecuted   int64        `json:"trigger_count_executed"`
}

// Deadline returns the instant the switch expires if no further check-in
// arrives.
func (s *Switch) Deadline() int64 {
	return s.LastCheckin + s.TimeoutSeconds
}
