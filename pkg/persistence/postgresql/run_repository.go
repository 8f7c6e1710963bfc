package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence"
)

// RunRepository handles the run audit trail.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

func (rr *RunRepository) CreateRun(ctx context.Context, run *models.Run) error {
	payload, err := json.Marshal(run.Payload)
	if err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	query := `
		INSERT INTO automation_runs
			(id, workspace_id, definition_id, contact_id, listing_id, trigger_name, payload, status, message, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = rr.db.ExecContext(ctx, query,
		run.ID,
		run.WorkspaceID,
		run.DefinitionID,
		nullable(run.ContactID),
		nullable(run.ListingID),
		string(run.Trigger),
		payload,
		string(run.Status),
		nullable(run.Message),
		run.StartedAt,
	)
	if err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	return nil
}

// FinalizeRun writes the terminal status exactly once; the WHERE clause on
// the running status makes a second finalization a no-op the repository
// reports as ErrRunFinalized.
func (rr *RunRepository) FinalizeRun(ctx context.Context, workspaceID, runID string, status models.RunStatus, message string) error {
	query := `
		UPDATE automation_runs
		SET status = $1, message = $2, finished_at = $3
		WHERE workspace_id = $4 AND id = $5 AND status = 'running'
	`

	result, err := rr.db.ExecContext(ctx, query,
		string(status), nullable(message), time.Now(), workspaceID, runID)
	if err != nil {
		return persistence.NewRunError("FinalizeRun", runID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("FinalizeRun", runID, err)
	}

	if affected == 0 {
		_, getErr := rr.RunByID(ctx, workspaceID, runID)
		if getErr != nil {
			return persistence.NewRunError("FinalizeRun", runID, persistence.ErrRunNotFound)
		}

		return persistence.NewRunError("FinalizeRun", runID, persistence.ErrRunFinalized)
	}

	return nil
}

func (rr *RunRepository) AppendStep(ctx context.Context, step *models.RunStep) error {
	detail, err := json.Marshal(step.Detail)
	if err != nil {
		return persistence.NewRunError("AppendStep", step.RunID, err)
	}

	query := `
		INSERT INTO automation_run_steps
			(id, run_id, step_index, step_id, kind, status, message, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = rr.db.ExecContext(ctx, query,
		step.ID,
		step.RunID,
		step.Index,
		nullable(step.StepID),
		string(step.Kind),
		string(step.Status),
		nullable(step.Message),
		detail,
		step.CreatedAt,
	)
	if err != nil {
		return persistence.NewRunError("AppendStep", step.RunID, err)
	}

	return nil
}

const runColumns = "id, workspace_id, definition_id, contact_id, listing_id, trigger_name, payload, status, message, started_at, finished_at"

func (rr *RunRepository) RunByID(ctx context.Context, workspaceID, runID string) (*models.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM automation_runs
		WHERE workspace_id = $1 AND id = $2
	`

	run, err := scanRun(rr.db.QueryRowContext(ctx, query, workspaceID, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRunError("RunByID", runID, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewRunError("RunByID", runID, err)
	}

	return run, nil
}

func (rr *RunRepository) RunsByWorkspace(ctx context.Context, workspaceID string) ([]*models.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM automation_runs
		WHERE workspace_id = $1
		ORDER BY started_at DESC
	`

	rows, err := rr.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			rr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var runs []*models.Run

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func (rr *RunRepository) StepsByRun(ctx context.Context, workspaceID, runID string) ([]*models.RunStep, error) {
	query := `
		SELECT s.id, s.run_id, s.step_index, s.step_id, s.kind, s.status, s.message, s.detail, s.created_at
		FROM automation_run_steps s
		JOIN automation_runs r ON r.id = s.run_id
		WHERE r.workspace_id = $1 AND s.run_id = $2
		ORDER BY s.step_index ASC
	`

	rows, err := rr.db.QueryContext(ctx, query, workspaceID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run steps: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			rr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var steps []*models.RunStep

	for rows.Next() {
		step, err := scanRunStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run step: %w", err)
		}

		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run steps: %w", err)
	}

	return steps, nil
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run        models.Run
		contactID  sql.NullString
		listingID  sql.NullString
		trigger    string
		payload    []byte
		status     string
		message    sql.NullString
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.WorkspaceID,
		&run.DefinitionID,
		&contactID,
		&listingID,
		&trigger,
		&payload,
		&status,
		&message,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.ContactID = contactID.String
	run.ListingID = listingID.String
	run.Trigger = models.TriggerName(trigger)
	run.Status = models.RunStatus(status)
	run.Message = message.String

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &run.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload: %w", err)
		}
	}

	return &run, nil
}

func scanRunStep(row rowScanner) (*models.RunStep, error) {
	var (
		step    models.RunStep
		stepID  sql.NullString
		kind    string
		status  string
		message sql.NullString
		detail  []byte
	)

	err := row.Scan(
		&step.ID,
		&step.RunID,
		&step.Index,
		&stepID,
		&kind,
		&status,
		&message,
		&detail,
		&step.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	step.StepID = stepID.String
	step.Kind = models.StepKind(kind)
	step.Status = models.RunStepStatus(status)
	step.Message = message.String

	if len(detail) > 0 {
		if err := json.Unmarshal(detail, &step.Detail); err != nil {
			return nil, fmt.Errorf("failed to decode detail: %w", err)
		}
	}

	return &step, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
