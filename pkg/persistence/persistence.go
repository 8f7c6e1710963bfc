// Package persistence provides the storage abstraction for automation
// definitions and the run audit trail.
package persistence

import (
	"context"

	"github.com/dealdesk/dealdesk/pkg/models"
)

// DefinitionRepository reads and writes automation definitions. The engine
// itself only reads; the write side serves the authoring API.
type DefinitionRepository interface {
	// MatchingDefinitions returns the active definitions for a trigger in a
	// workspace, ordered by creation time ascending. Oldest-defined-first is
	// the tie-break when several definitions match one event.
	MatchingDefinitions(ctx context.Context, workspaceID string, trigger models.TriggerName) ([]*models.AutomationDefinition, error)

	DefinitionsByWorkspace(ctx context.Context, workspaceID string) ([]*models.AutomationDefinition, error)
	DefinitionByID(ctx context.Context, workspaceID, id string) (*models.AutomationDefinition, error)
	SaveDefinition(ctx context.Context, definition *models.AutomationDefinition) error
	DeleteDefinition(ctx context.Context, workspaceID, id string) error
}

// RunRepository owns the audit trail. Runs are created once and finalized
// once; run steps are append-only and never mutated.
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.Run) error

	// FinalizeRun writes the terminal status and message. Finalizing an
	// already-finalized run returns ErrRunFinalized.
	FinalizeRun(ctx context.Context, workspaceID, runID string, status models.RunStatus, message string) error

	AppendStep(ctx context.Context, step *models.RunStep) error

	RunByID(ctx context.Context, workspaceID, runID string) (*models.Run, error)
	RunsByWorkspace(ctx context.Context, workspaceID string) ([]*models.Run, error)
	StepsByRun(ctx context.Context, workspaceID, runID string) ([]*models.RunStep, error)
}

type Persistence interface {
	Definitions() DefinitionRepository
	Runs() RunRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
