package models

import "time"

// Task is the record returned by the task-creation service.
type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ContactID string    `json:"contact_id,omitempty"`
	ListingID string    `json:"listing_id,omitempty"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTaskRequest is the input to the task-creation service. The service
// performs its own window-based dedupe; a nil Task result means the request
// was deduped, which callers treat as success.
type CreateTaskRequest struct {
	UserID              string    `json:"user_id"`
	ContactID           string    `json:"contact_id,omitempty"`
	ListingID           string    `json:"listing_id,omitempty"`
	Title               string    `json:"title"`
	Notes               string    `json:"notes,omitempty"`
	DueAt               time.Time `json:"due_at"`
	DedupeWindowMinutes int       `json:"dedupe_window_minutes,omitempty"`
}
