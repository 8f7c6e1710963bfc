package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence"
)

// RunRepository stores runs and their append-only step records under
// <root>/runs/<workspace>/.
type RunRepository struct {
	root string
	mu   sync.Mutex
}

func NewRunRepository(root string) *RunRepository {
	return &RunRepository{root: root}
}

func (r *RunRepository) runPath(workspaceID, runID string) string {
	return filepath.Join(r.root, "runs", workspaceID, runID+".json")
}

func (r *RunRepository) stepsDir(workspaceID, runID string) string {
	return filepath.Join(r.root, "runs", workspaceID, runID+".steps")
}

func (r *RunRepository) CreateRun(_ context.Context, run *models.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.runPath(run.WorkspaceID, run.ID))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	if err := writeJSON(r.runPath(run.WorkspaceID, run.ID), run); err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	return nil
}

func (r *RunRepository) FinalizeRun(_ context.Context, workspaceID, runID string, status models.RunStatus, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.runPath(workspaceID, runID)

	run, err := readJSON[models.Run](path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return persistence.NewRunError("FinalizeRun", runID, persistence.ErrRunNotFound)
		}

		return persistence.NewRunError("FinalizeRun", runID, err)
	}

	if run.Status != models.RunStatusRunning {
		return persistence.NewRunError("FinalizeRun", runID, persistence.ErrRunFinalized)
	}

	now := time.Now()
	run.Status = status
	run.Message = message
	run.FinishedAt = &now

	if err := writeJSON(path, run); err != nil {
		return persistence.NewRunError("FinalizeRun", runID, err)
	}

	return nil
}

func (r *RunRepository) AppendStep(_ context.Context, step *models.RunStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Steps do not carry the workspace; locate the run's directory by scan.
	workspaceID, err := r.workspaceForRun(step.RunID)
	if err != nil {
		return persistence.NewRunError("AppendStep", step.RunID, err)
	}

	dir := r.stepsDir(workspaceID, step.RunID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return persistence.NewRunError("AppendStep", step.RunID, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%06d.json", step.Index))
	if _, err := os.Stat(path); err == nil {
		return persistence.NewRunError("AppendStep", step.RunID,
			fmt.Errorf("step index %d already recorded", step.Index))
	}

	if err := writeJSON(path, step); err != nil {
		return persistence.NewRunError("AppendStep", step.RunID, err)
	}

	return nil
}

func (r *RunRepository) RunByID(_ context.Context, workspaceID, runID string) (*models.Run, error) {
	path := r.runPath(workspaceID, runID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, persistence.NewRunError("RunByID", runID, persistence.ErrRunNotFound)
	}

	run, err := readJSON[models.Run](path)
	if err != nil {
		return nil, persistence.NewRunError("RunByID", runID, err)
	}

	return run, nil
}

func (r *RunRepository) RunsByWorkspace(_ context.Context, workspaceID string) ([]*models.Run, error) {
	dir := filepath.Join(r.root, "runs", workspaceID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.Run{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}

	runs := make([]*models.Run, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		run, err := readJSON[models.Run](filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", name, err)
		}

		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

func (r *RunRepository) StepsByRun(_ context.Context, workspaceID, runID string) ([]*models.RunStep, error) {
	dir := r.stepsDir(workspaceID, runID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.RunStep{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list run step files: %w", err)
	}

	steps := make([]*models.RunStep, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		step, err := readJSON[models.RunStep](filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load run step %s: %w", name, err)
		}

		steps = append(steps, step)
	}

	sort.Slice(steps, func(i, j int) bool {
		return steps[i].Index < steps[j].Index
	})

	return steps, nil
}

func (r *RunRepository) workspaceForRun(runID string) (string, error) {
	runsRoot := filepath.Join(r.root, "runs")

	entries, err := os.ReadDir(runsRoot)
	if err != nil {
		return "", fmt.Errorf("failed to read runs directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if _, err := os.Stat(r.runPath(entry.Name(), runID)); err == nil {
			return entry.Name(), nil
		}
	}

	return "", persistence.ErrRunNotFound
}
