package models

// WarningStage configures one advance notice: warning actions fire when the
// switch comes within SecondsBeforeDeadline of its deadline. Valid stages
// satisfy 0 < SecondsBeforeDeadline < the switch's TimeoutSeconds.
type WarningStage struct {
	ID                    int64  `json:"id"`
	SwitchID              string `json:"switch_id"`
	SecondsBeforeDeadline int64  `json:"seconds_before_deadline"`
}

// WarningExecution records that the warning stage identified by
// (SwitchID, StageSeconds) has fired. Its existence is the dedup key that
// makes each stage fire at most once per deadline cycle.
type WarningExecution struct {
	ID           int64  `json:"id"`
	SwitchID     string `json:"switch_id"`
	StageSeconds int64  `json:"stage_seconds"`
	ExecutedAt   int64  `json:"executed_at"`
}
