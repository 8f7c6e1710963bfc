package models

import "time"

// RunStatus is the lifecycle state of a run. A run is created as running and
// finalized exactly once as success or failed.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunStepStatus is the outcome recorded for one executed step.
type RunStepStatus string

const (
	RunStepStatusSuccess RunStepStatus = "success"
	RunStepStatusError   RunStepStatus = "error"
	RunStepStatusSkipped RunStepStatus = "skipped"
)

// Run is one execution of one definition's step list against one context.
// Immutable once finalized.
type Run struct {
	ID           string         `json:"id"`
	WorkspaceID  string         `json:"workspace_id"`
	DefinitionID string         `json:"definition_id"`
	ContactID    string         `json:"contact_id,omitempty"`
	ListingID    string         `json:"listing_id,omitempty"`
	Trigger      TriggerName    `json:"trigger"`
	Payload      map[string]any `json:"payload,omitempty"`
	Status       RunStatus      `json:"status"`
	Message      string         `json:"message,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
}

// RunStep is one append-only audit record for one step actually executed.
// Index is strictly increasing within a run and reflects execution order,
// branch steps included.
type RunStep struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	Index     int            `json:"index"`
	StepID    string         `json:"step_id,omitempty"`
	Kind      StepKind       `json:"kind"`
	Status    RunStepStatus  `json:"status"`
	Message   string         `json:"message,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
