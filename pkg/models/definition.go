// Package models defines the core domain models for the automation engine.
package models

import "time"

// TriggerName identifies the event kind that activates matching definitions.
type TriggerName string

const (
	TriggerContactCreated       TriggerName = "contact.created"
	TriggerContactStageChanged  TriggerName = "contact.stage_changed"
	TriggerListingCreated       TriggerName = "listing.created"
	TriggerListingStatusChanged TriggerName = "listing.status_changed"
	TriggerTaskCompleted        TriggerName = "task.completed"
)

// Known reports whether t is one of the trigger names the engine dispatches.
func (t TriggerName) Known() bool {
	switch t {
	case TriggerContactCreated,
		TriggerContactStageChanged,
		TriggerListingCreated,
		TriggerListingStatusChanged,
		TriggerTaskCompleted:
		return true
	}

	return false
}

// Capability flags checked against the acting user's plan.
const (
	CapabilityAutomationsTrigger = "AUTOMATIONS_TRIGGER"
	CapabilityAutomationsRun     = "AUTOMATIONS_RUN"
)

// AutomationDefinition is a named workflow owned by a workspace. The engine
// only reads definitions; authoring happens through the builder surface.
type AutomationDefinition struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspace_id" validate:"required"`
	Name        string      `json:"name"         validate:"required,min=3"`
	Trigger     TriggerName `json:"trigger"      validate:"required"`
	Active      bool        `json:"active"`
	Steps       []*Step     `json:"steps"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
