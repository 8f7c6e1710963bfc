package models

// ExecutionContext carries the inputs to one trigger-matching pass. It is
// built once per incoming event and reused across every matching definition.
type ExecutionContext struct {
	WorkspaceID string         `json:"workspace_id"`
	UserID      string         `json:"user_id"`
	ContactID   string         `json:"contact_id,omitempty"`
	ListingID   string         `json:"listing_id,omitempty"`
	Trigger     TriggerName    `json:"trigger"`
	Payload     map[string]any `json:"payload,omitempty"`
}
