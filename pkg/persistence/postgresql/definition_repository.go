package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence"
)

// DefinitionRepository handles definition-related database operations.
type DefinitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDefinitionRepository creates a new definition repository.
func NewDefinitionRepository(db *sql.DB, logger *slog.Logger) *DefinitionRepository {
	return &DefinitionRepository{db: db, logger: logger}
}

const definitionColumns = "id, workspace_id, name, trigger_name, active, steps, created_at, updated_at"

func (dr *DefinitionRepository) MatchingDefinitions(ctx context.Context, workspaceID string, trigger models.TriggerName) ([]*models.AutomationDefinition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM automation_definitions
		WHERE workspace_id = $1 AND trigger_name = $2 AND active = true
		ORDER BY created_at ASC
	`

	return dr.queryDefinitions(ctx, query, workspaceID, string(trigger))
}

func (dr *DefinitionRepository) DefinitionsByWorkspace(ctx context.Context, workspaceID string) ([]*models.AutomationDefinition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM automation_definitions
		WHERE workspace_id = $1
		ORDER BY created_at ASC
	`

	return dr.queryDefinitions(ctx, query, workspaceID)
}

func (dr *DefinitionRepository) queryDefinitions(ctx context.Context, query string, args ...any) ([]*models.AutomationDefinition, error) {
	rows, err := dr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			dr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var definitions []*models.AutomationDefinition

	for rows.Next() {
		definition, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}

		definitions = append(definitions, definition)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating definitions: %w", err)
	}

	return definitions, nil
}

func (dr *DefinitionRepository) DefinitionByID(ctx context.Context, workspaceID, id string) (*models.AutomationDefinition, error) {
	query := `
		SELECT ` + definitionColumns + `
		FROM automation_definitions
		WHERE workspace_id = $1 AND id = $2
	`

	row := dr.db.QueryRowContext(ctx, query, workspaceID, id)

	definition, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewDefinitionError("DefinitionByID", id, persistence.ErrDefinitionNotFound)
	}

	if err != nil {
		return nil, persistence.NewDefinitionError("DefinitionByID", id, err)
	}

	return definition, nil
}

func (dr *DefinitionRepository) SaveDefinition(ctx context.Context, definition *models.AutomationDefinition) error {
	steps, err := json.Marshal(definition.Steps)
	if err != nil {
		return persistence.NewDefinitionError("SaveDefinition", definition.ID, err)
	}

	query := `
		INSERT INTO automation_definitions (` + definitionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			trigger_name = EXCLUDED.trigger_name,
			active = EXCLUDED.active,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at
	`

	_, err = dr.db.ExecContext(ctx, query,
		definition.ID,
		definition.WorkspaceID,
		definition.Name,
		string(definition.Trigger),
		definition.Active,
		steps,
		definition.CreatedAt,
		definition.UpdatedAt,
	)
	if err != nil {
		return persistence.NewDefinitionError("SaveDefinition", definition.ID, err)
	}

	return nil
}

func (dr *DefinitionRepository) DeleteDefinition(ctx context.Context, workspaceID, id string) error {
	result, err := dr.db.ExecContext(ctx,
		"DELETE FROM automation_definitions WHERE workspace_id = $1 AND id = $2", workspaceID, id)
	if err != nil {
		return persistence.NewDefinitionError("DeleteDefinition", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewDefinitionError("DeleteDefinition", id, err)
	}

	if affected == 0 {
		return persistence.NewDefinitionError("DeleteDefinition", id, persistence.ErrDefinitionNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*models.AutomationDefinition, error) {
	var (
		definition models.AutomationDefinition
		trigger    string
		steps      []byte
	)

	err := row.Scan(
		&definition.ID,
		&definition.WorkspaceID,
		&definition.Name,
		&trigger,
		&definition.Active,
		&steps,
		&definition.CreatedAt,
		&definition.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	definition.Trigger = models.TriggerName(trigger)

	if err := json.Unmarshal(steps, &definition.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps: %w", err)
	}

	return &definition, nil
}
