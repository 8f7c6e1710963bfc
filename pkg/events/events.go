// Package events defines the trigger events that enter the automation engine.
package events

import (
	"time"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic is the bus topic automation trigger events travel on.
const Topic = "dealdesk.automations"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// AutomationTriggeredEvent is published when a domain operation fires a
	// trigger (contact created, stage changed, ...).
	AutomationTriggeredEvent EventType = "automation.triggered"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// AutomationTriggered carries one trigger occurrence and its execution
// context to the worker.
type AutomationTriggered struct {
	BaseEvent

	Trigger     models.TriggerName `json:"trigger"`
	WorkspaceID string             `json:"workspace_id"`
	UserID      string             `json:"user_id"`
	ContactID   string             `json:"contact_id,omitempty"`
	ListingID   string             `json:"listing_id,omitempty"`
	Payload     map[string]any     `json:"payload,omitempty"`
}

func (a AutomationTriggered) GetType() EventType {
	return AutomationTriggeredEvent
}

// NewAutomationTriggered builds the event for one trigger occurrence.
func NewAutomationTriggered(trigger models.TriggerName, execCtx models.ExecutionContext) AutomationTriggered {
	return AutomationTriggered{
		BaseEvent:   NewBaseEvent(AutomationTriggeredEvent),
		Trigger:     trigger,
		WorkspaceID: execCtx.WorkspaceID,
		UserID:      execCtx.UserID,
		ContactID:   execCtx.ContactID,
		ListingID:   execCtx.ListingID,
		Payload:     execCtx.Payload,
	}
}

// ExecutionContext converts the event back to the engine's input shape.
func (a AutomationTriggered) ExecutionContext() models.ExecutionContext {
	return models.ExecutionContext{
		WorkspaceID: a.WorkspaceID,
		UserID:      a.UserID,
		ContactID:   a.ContactID,
		ListingID:   a.ListingID,
		Trigger:     a.Trigger,
		Payload:     a.Payload,
	}
}
