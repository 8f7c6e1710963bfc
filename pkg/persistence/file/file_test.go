package file

import (
	"context"
	"testing"
	"time"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinition(id, workspaceID string, trigger models.TriggerName, active bool, createdAt time.Time) *models.AutomationDefinition {
	return &models.AutomationDefinition{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        "Definition " + id,
		Trigger:     trigger,
		Active:      active,
		Steps: []*models.Step{
			{Kind: models.StepKindWait, Config: map[string]any{"amount": 1, "unit": "days"}},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestDefinitionRepository_SaveAndFetch(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	definition := testDefinition("def-1", "ws-1", models.TriggerContactCreated, true, time.Now())
	require.NoError(t, p.Definitions().SaveDefinition(ctx, definition))

	loaded, err := p.Definitions().DefinitionByID(ctx, "ws-1", "def-1")
	require.NoError(t, err)
	assert.Equal(t, definition.Name, loaded.Name)
	assert.Equal(t, definition.Trigger, loaded.Trigger)
	assert.Len(t, loaded.Steps, 1)
}

func TestDefinitionRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	_, err := p.Definitions().DefinitionByID(ctx, "ws-1", "missing")
	assert.True(t, persistence.IsDefinitionNotFound(err))

	err = p.Definitions().DeleteDefinition(ctx, "ws-1", "missing")
	assert.True(t, persistence.IsDefinitionNotFound(err))
}

func TestDefinitionRepository_MatchingOrderedOldestFirst(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.Definitions().SaveDefinition(ctx,
		testDefinition("def-newer", "ws-1", models.TriggerContactCreated, true, base.Add(time.Hour))))
	require.NoError(t, p.Definitions().SaveDefinition(ctx,
		testDefinition("def-older", "ws-1", models.TriggerContactCreated, true, base)))
	require.NoError(t, p.Definitions().SaveDefinition(ctx,
		testDefinition("def-inactive", "ws-1", models.TriggerContactCreated, false, base)))
	require.NoError(t, p.Definitions().SaveDefinition(ctx,
		testDefinition("def-other-trigger", "ws-1", models.TriggerListingCreated, true, base)))

	matching, err := p.Definitions().MatchingDefinitions(ctx, "ws-1", models.TriggerContactCreated)
	require.NoError(t, err)
	require.Len(t, matching, 2)
	assert.Equal(t, "def-older", matching[0].ID)
	assert.Equal(t, "def-newer", matching[1].ID)
}

func TestDefinitionRepository_WorkspaceIsolation(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.Definitions().SaveDefinition(ctx,
		testDefinition("def-1", "ws-1", models.TriggerContactCreated, true, time.Now())))

	other, err := p.Definitions().MatchingDefinitions(ctx, "ws-2", models.TriggerContactCreated)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRunRepository_CreateFinalizeOnce(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	run := &models.Run{
		ID:           "run-1",
		WorkspaceID:  "ws-1",
		DefinitionID: "def-1",
		Trigger:      models.TriggerContactCreated,
		Status:       models.RunStatusRunning,
		StartedAt:    time.Now(),
	}
	require.NoError(t, p.Runs().CreateRun(ctx, run))

	require.NoError(t, p.Runs().FinalizeRun(ctx, "ws-1", "run-1", models.RunStatusSuccess, ""))

	err := p.Runs().FinalizeRun(ctx, "ws-1", "run-1", models.RunStatusFailed, "late")
	assert.True(t, persistence.IsRunFinalized(err))

	loaded, err := p.Runs().RunByID(ctx, "ws-1", "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, loaded.Status)
	assert.NotNil(t, loaded.FinishedAt)
}

func TestRunRepository_AppendAndListSteps(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	run := &models.Run{
		ID:          "run-1",
		WorkspaceID: "ws-1",
		Status:      models.RunStatusRunning,
		StartedAt:   time.Now(),
	}
	require.NoError(t, p.Runs().CreateRun(ctx, run))

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Runs().AppendStep(ctx, &models.RunStep{
			ID:     "runstep-" + string(rune('a'+i)),
			RunID:  "run-1",
			Index:  i,
			Kind:   models.StepKindWait,
			Status: models.RunStepStatusSuccess,
		}))
	}

	// Re-appending an existing index is rejected: the trail is append-only.
	err := p.Runs().AppendStep(ctx, &models.RunStep{RunID: "run-1", Index: 1})
	assert.Error(t, err)

	steps, err := p.Runs().StepsByRun(ctx, "ws-1", "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 3)

	for i, step := range steps {
		assert.Equal(t, i, step.Index)
	}
}

func TestRunRepository_RunsByWorkspaceNewestFirst(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, p.Runs().CreateRun(ctx, &models.Run{
		ID: "run-old", WorkspaceID: "ws-1", Status: models.RunStatusRunning, StartedAt: base,
	}))
	require.NoError(t, p.Runs().CreateRun(ctx, &models.Run{
		ID: "run-new", WorkspaceID: "ws-1", Status: models.RunStatusRunning, StartedAt: base.Add(time.Hour),
	}))

	runs, err := p.Runs().RunsByWorkspace(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := NewPersistence(t.TempDir())
	assert.NoError(t, p.HealthCheck(context.Background()))

	missing := NewPersistence("/nonexistent/dealdesk-test")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
