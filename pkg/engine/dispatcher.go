package engine

import (
	"context"
	"log/slog"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence"
	"github.com/dealdesk/dealdesk/pkg/protocol"
)

// Dispatcher resolves the definitions matching an incoming trigger event and
// hands each one to the executor, sequentially. Dispatch never propagates an
// error or panic to the triggering operation: creating a contact must succeed
// even when its automation fails outright.
type Dispatcher struct {
	persistence  persistence.Persistence
	directory    protocol.Directory
	entitlements protocol.EntitlementChecker
	executor     *Executor
	logger       *slog.Logger
}

func NewDispatcher(
	persistence persistence.Persistence,
	directory protocol.Directory,
	entitlements protocol.EntitlementChecker,
	executor *Executor,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		persistence:  persistence,
		directory:    directory,
		entitlements: entitlements,
		executor:     executor,
		logger:       logger.With("module", "dispatcher"),
	}
}

// Dispatch is fire-and-forget. Precondition failures abort silently; failure
// detail lives in the logs and the run audit trail, never in a return value.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger models.TriggerName, execCtx models.ExecutionContext) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "Recovered from panic during dispatch",
				"trigger", trigger, "panic", r)
		}
	}()

	logger := d.logger.With(
		"trigger", trigger,
		"workspace_id", execCtx.WorkspaceID,
		"user_id", execCtx.UserID,
	)

	execCtx.Trigger = trigger

	if !d.preconditionsMet(ctx, logger, execCtx) {
		return
	}

	definitions, err := d.persistence.Definitions().MatchingDefinitions(ctx, execCtx.WorkspaceID, trigger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load matching definitions", "error", err)

		return
	}

	if len(definitions) == 0 {
		logger.DebugContext(ctx, "No active definitions match trigger")

		return
	}

	// Sequential on purpose: a slow or failing definition must not affect
	// the ordering or isolation of the next one, and it bounds load during
	// trigger storms.
	for _, definition := range definitions {
		run, err := d.executor.Execute(ctx, definition, execCtx)
		if err != nil {
			logger.ErrorContext(ctx, "Automation run failed to start",
				"definition_id", definition.ID, "error", err)

			continue
		}

		logger.InfoContext(ctx, "Automation run completed",
			"definition_id", definition.ID, "run_id", run.ID, "status", run.Status)
	}
}

func (d *Dispatcher) preconditionsMet(ctx context.Context, logger *slog.Logger, execCtx models.ExecutionContext) bool {
	if execCtx.UserID == "" || execCtx.WorkspaceID == "" {
		logger.DebugContext(ctx, "Dispatch skipped: missing user or workspace")

		return false
	}

	entitled, err := d.entitlements.HasEntitlement(ctx, execCtx.UserID, models.CapabilityAutomationsTrigger)
	if err != nil {
		logger.ErrorContext(ctx, "Entitlement check failed", "error", err)

		return false
	}

	if !entitled {
		logger.DebugContext(ctx, "Dispatch skipped: user not entitled to trigger automations")

		return false
	}

	member, err := d.directory.WorkspaceMember(ctx, execCtx.WorkspaceID, execCtx.UserID)
	if err != nil {
		logger.ErrorContext(ctx, "Workspace membership check failed", "error", err)

		return false
	}

	if !member {
		logger.DebugContext(ctx, "Dispatch skipped: user is not an active workspace member")

		return false
	}

	if execCtx.ContactID != "" {
		contact, err := d.directory.ContactByID(ctx, execCtx.ContactID, execCtx.UserID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to load contact", "contact_id", execCtx.ContactID, "error", err)

			return false
		}

		if contact == nil || contact.WorkspaceID != execCtx.WorkspaceID {
			logger.DebugContext(ctx, "Dispatch skipped: contact not in workspace", "contact_id", execCtx.ContactID)

			return false
		}

		// Partner contacts are categorically excluded from automation
		// execution. This is a hard invariant, not something a workflow
		// author can override.
		if contact.Relationship == models.RelationshipPartner {
			logger.DebugContext(ctx, "Dispatch skipped: partner contact", "contact_id", execCtx.ContactID)

			return false
		}
	}

	if execCtx.ListingID != "" {
		listing, err := d.directory.ListingByID(ctx, execCtx.ListingID, execCtx.UserID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to load listing", "listing_id", execCtx.ListingID, "error", err)

			return false
		}

		if listing == nil || listing.WorkspaceID != execCtx.WorkspaceID {
			logger.DebugContext(ctx, "Dispatch skipped: listing not in workspace", "listing_id", execCtx.ListingID)

			return false
		}
	}

	return true
}
