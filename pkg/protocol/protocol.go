// Package protocol defines the collaborator contracts the engine consumes.
// The surrounding system implements these; the engine never writes through
// the read-side interfaces.
package protocol

import (
	"context"

	"github.com/dealdesk/dealdesk/pkg/models"
)

// EntitlementChecker reads the acting user's plan capabilities. Entitlement
// state is read-only to the engine; a downgrade in another process is only
// observed at the next check point.
type EntitlementChecker interface {
	HasEntitlement(ctx context.Context, userID, capability string) (bool, error)
}

// Directory loads entity snapshots. Contact and listing reads are scoped to
// the acting user so the row-visibility rules of the surrounding system
// apply; a load outside the caller's visibility returns nil, nil.
type Directory interface {
	UserByID(ctx context.Context, userID string) (*models.User, error)
	ContactByID(ctx context.Context, contactID, scopeUserID string) (*models.Contact, error)
	ListingByID(ctx context.Context, listingID, scopeUserID string) (*models.Listing, error)
	WorkspaceMember(ctx context.Context, workspaceID, userID string) (bool, error)
}

// SMSSender delivers one outbound text message. Implementations return an
// error on failure; the executor treats any error as fatal to the run.
type SMSSender interface {
	SendSMS(ctx context.Context, toPhone, body string) error
}

// EmailSender delivers one outbound email.
type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, subject, html string) error
}

// TaskCreator creates a follow-up task. Implementations own the window-based
// dedupe; a nil task with a nil error means the request was deduped, which
// callers record as success.
type TaskCreator interface {
	CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error)
}
