// Package web provides HTTP request and response types for the automation API.
package web

import "github.com/dealdesk/dealdesk/pkg/models"

// CreateDefinitionRequest represents the request body for creating a new
// automation definition.
type CreateDefinitionRequest struct {
	Name    string         `json:"name"    validate:"required,min=3"`
	Trigger string         `json:"trigger" validate:"required"`
	Active  bool           `json:"active"`
	Steps   []*models.Step `json:"steps"`
}

// UpdateDefinitionRequest represents the request body for updating an existing
// automation definition. All fields are optional to support partial updates.
type UpdateDefinitionRequest struct {
	Name    *string        `json:"name,omitempty"    validate:"omitempty,min=3"`
	Trigger *string        `json:"trigger,omitempty"`
	Active  *bool          `json:"active,omitempty"`
	Steps   []*models.Step `json:"steps,omitempty"`
}

// DefinitionResponse wraps a saved definition together with advisory lint
// warnings. Warnings never block a save.
type DefinitionResponse struct {
	Definition *models.AutomationDefinition `json:"definition"`
	Warnings   []string                     `json:"warnings,omitempty"`
}

// TriggerRequest represents the request body for manually firing a trigger.
type TriggerRequest struct {
	WorkspaceID string         `json:"workspace_id" validate:"required"`
	UserID      string         `json:"user_id"      validate:"required"`
	ContactID   string         `json:"contact_id,omitempty"`
	ListingID   string         `json:"listing_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// RunDetailResponse is a run together with its ordered step records.
type RunDetailResponse struct {
	Run   *models.Run       `json:"run"`
	Steps []*models.RunStep `json:"steps"`
}
