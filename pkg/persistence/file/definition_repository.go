package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence"
)

const dirPerm = 0o755

// DefinitionRepository stores one JSON file per definition under
// <root>/definitions/<workspace>/.
type DefinitionRepository struct {
	root string
	mu   sync.RWMutex
}

func NewDefinitionRepository(root string) *DefinitionRepository {
	return &DefinitionRepository{root: root}
}

func (r *DefinitionRepository) workspaceDir(workspaceID string) string {
	return filepath.Join(r.root, "definitions", workspaceID)
}

func (r *DefinitionRepository) MatchingDefinitions(ctx context.Context, workspaceID string, trigger models.TriggerName) ([]*models.AutomationDefinition, error) {
	all, err := r.DefinitionsByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.AutomationDefinition, 0, len(all))

	for _, definition := range all {
		if definition.Active && definition.Trigger == trigger {
			matching = append(matching, definition)
		}
	}

	return matching, nil
}

func (r *DefinitionRepository) DefinitionsByWorkspace(_ context.Context, workspaceID string) ([]*models.AutomationDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dir := r.workspaceDir(workspaceID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.AutomationDefinition{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list definition files: %w", err)
	}

	definitions := make([]*models.AutomationDefinition, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		definition, err := readJSON[models.AutomationDefinition](filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load definition %s: %w", name, err)
		}

		definitions = append(definitions, definition)
	}

	// Oldest-defined-first keeps multi-match dispatch ordering deterministic.
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].CreatedAt.Before(definitions[j].CreatedAt)
	})

	return definitions, nil
}

func (r *DefinitionRepository) DefinitionByID(_ context.Context, workspaceID, id string) (*models.AutomationDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path := filepath.Join(r.workspaceDir(workspaceID), id+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, persistence.NewDefinitionError("DefinitionByID", id, persistence.ErrDefinitionNotFound)
	}

	definition, err := readJSON[models.AutomationDefinition](path)
	if err != nil {
		return nil, persistence.NewDefinitionError("DefinitionByID", id, err)
	}

	return definition, nil
}

func (r *DefinitionRepository) SaveDefinition(_ context.Context, definition *models.AutomationDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := r.workspaceDir(definition.WorkspaceID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return persistence.NewDefinitionError("SaveDefinition", definition.ID, err)
	}

	path := filepath.Join(dir, definition.ID+".json")
	if err := writeJSON(path, definition); err != nil {
		return persistence.NewDefinitionError("SaveDefinition", definition.ID, err)
	}

	return nil
}

func (r *DefinitionRepository) DeleteDefinition(_ context.Context, workspaceID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := filepath.Join(r.workspaceDir(workspaceID), id+".json")

	err := os.Remove(path)
	if os.IsNotExist(err) {
		return persistence.NewDefinitionError("DeleteDefinition", id, persistence.ErrDefinitionNotFound)
	}

	if err != nil {
		return persistence.NewDefinitionError("DeleteDefinition", id, err)
	}

	return nil
}

func readJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &value, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
