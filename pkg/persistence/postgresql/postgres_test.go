package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence"
	"github.com/dealdesk/dealdesk/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{"automation_run_steps", "automation_runs", "automation_definitions", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("dealdesk_test"),
			postgres.WithUsername("dealdesk"),
			postgres.WithPassword("dealdesk"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func testDefinition(workspaceID, name string, trigger models.TriggerName, active bool, createdAt time.Time) *models.AutomationDefinition {
	return &models.AutomationDefinition{
		ID:          "def-" + uuid.New().String(),
		WorkspaceID: workspaceID,
		Name:        name,
		Trigger:     trigger,
		Active:      active,
		Steps: []*models.Step{
			{ID: "s1", Kind: models.StepKindSMS, Config: map[string]any{"message": "Hi {{firstName}}"}},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func testRun(workspaceID string) *models.Run {
	return &models.Run{
		ID:           "run-" + uuid.New().String(),
		WorkspaceID:  workspaceID,
		DefinitionID: "def-1",
		ContactID:    "contact-1",
		Trigger:      models.TriggerContactCreated,
		Payload:      map[string]any{"source": "referral"},
		Status:       models.RunStatusRunning,
		StartedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	// Verify tables were created
	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'automation_definitions')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "automation_definitions table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'automation_run_steps')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "automation_run_steps table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestDefinitionRepository_SaveAndFetch(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	definition := testDefinition("ws-1", "Welcome new contacts", models.TriggerContactCreated, true, time.Now().UTC())
	require.NoError(t, p.Definitions().SaveDefinition(ctx, definition))

	fetched, err := p.Definitions().DefinitionByID(ctx, "ws-1", definition.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome new contacts", fetched.Name)
	assert.Equal(t, models.TriggerContactCreated, fetched.Trigger)
	require.Len(t, fetched.Steps, 1)
	assert.Equal(t, models.StepKindSMS, fetched.Steps[0].Kind)

	// Saving the same ID again is an upsert, not a duplicate row.
	definition.Name = "Welcome new contacts v2"
	definition.Active = false
	require.NoError(t, p.Definitions().SaveDefinition(ctx, definition))

	fetched, err = p.Definitions().DefinitionByID(ctx, "ws-1", definition.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome new contacts v2", fetched.Name)
	assert.False(t, fetched.Active)

	all, err := p.Definitions().DefinitionsByWorkspace(ctx, "ws-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDefinitionRepository_FetchMissing(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.Definitions().DefinitionByID(ctx, "ws-1", "def-missing")
	assert.True(t, persistence.IsDefinitionNotFound(err))
}

func TestDefinitionRepository_MatchingDefinitionsOrdering(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	base := time.Now().UTC().Add(-time.Hour)

	oldest := testDefinition("ws-1", "Oldest automation", models.TriggerContactCreated, true, base)
	newest := testDefinition("ws-1", "Newest automation", models.TriggerContactCreated, true, base.Add(30*time.Minute))
	inactive := testDefinition("ws-1", "Inactive automation", models.TriggerContactCreated, false, base.Add(10*time.Minute))
	otherTrigger := testDefinition("ws-1", "Listing automation", models.TriggerListingCreated, true, base)
	otherWorkspace := testDefinition("ws-2", "Neighbor automation", models.TriggerContactCreated, true, base)

	for _, definition := range []*models.AutomationDefinition{newest, inactive, otherTrigger, otherWorkspace, oldest} {
		require.NoError(t, p.Definitions().SaveDefinition(ctx, definition))
	}

	matching, err := p.Definitions().MatchingDefinitions(ctx, "ws-1", models.TriggerContactCreated)
	require.NoError(t, err)

	require.Len(t, matching, 2)
	assert.Equal(t, oldest.ID, matching[0].ID, "oldest-defined-first ordering")
	assert.Equal(t, newest.ID, matching[1].ID)
}

func TestDefinitionRepository_Delete(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	definition := testDefinition("ws-1", "Doomed automation", models.TriggerContactCreated, true, time.Now().UTC())
	require.NoError(t, p.Definitions().SaveDefinition(ctx, definition))

	require.NoError(t, p.Definitions().DeleteDefinition(ctx, "ws-1", definition.ID))

	err := p.Definitions().DeleteDefinition(ctx, "ws-1", definition.ID)
	assert.True(t, persistence.IsDefinitionNotFound(err))
}

func TestRunRepository_FinalizeExactlyOnce(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	run := testRun("ws-1")
	require.NoError(t, p.Runs().CreateRun(ctx, run))

	fetched, err := p.Runs().RunByID(ctx, "ws-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, fetched.Status)
	assert.Nil(t, fetched.FinishedAt)
	assert.Equal(t, "referral", fetched.Payload["source"])

	require.NoError(t, p.Runs().FinalizeRun(ctx, "ws-1", run.ID, models.RunStatusSuccess, ""))

	fetched, err = p.Runs().RunByID(ctx, "ws-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, fetched.Status)
	assert.NotNil(t, fetched.FinishedAt)

	err = p.Runs().FinalizeRun(ctx, "ws-1", run.ID, models.RunStatusFailed, "late failure")
	assert.True(t, persistence.IsRunFinalized(err))

	// The second finalize must not have touched the row.
	fetched, err = p.Runs().RunByID(ctx, "ws-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, fetched.Status)
	assert.Empty(t, fetched.Message)
}

func TestRunRepository_FinalizeMissingRun(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.Runs().FinalizeRun(ctx, "ws-1", "run-missing", models.RunStatusSuccess, "")
	assert.True(t, persistence.IsRunNotFound(err))
}

func TestRunRepository_StepsAreAppendOnly(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	run := testRun("ws-1")
	require.NoError(t, p.Runs().CreateRun(ctx, run))

	now := time.Now().UTC()

	for index, kind := range []models.StepKind{models.StepKindWait, models.StepKindSMS} {
		require.NoError(t, p.Runs().AppendStep(ctx, &models.RunStep{
			ID:        "runstep-" + uuid.New().String(),
			RunID:     run.ID,
			Index:     index,
			StepID:    "s1",
			Kind:      kind,
			Status:    models.RunStepStatusSuccess,
			Detail:    map[string]any{"position": index},
			CreatedAt: now,
		}))
	}

	// A second insert at an existing index violates the per-run uniqueness.
	err := p.Runs().AppendStep(ctx, &models.RunStep{
		ID:        "runstep-" + uuid.New().String(),
		RunID:     run.ID,
		Index:     0,
		Kind:      models.StepKindEmail,
		Status:    models.RunStepStatusSuccess,
		CreatedAt: now,
	})
	assert.Error(t, err)

	steps, err := p.Runs().StepsByRun(ctx, "ws-1", run.ID)
	require.NoError(t, err)

	require.Len(t, steps, 2)
	assert.Equal(t, 0, steps[0].Index)
	assert.Equal(t, models.StepKindWait, steps[0].Kind)
	assert.Equal(t, 1, steps[1].Index)
	assert.Equal(t, models.StepKindSMS, steps[1].Kind)
}

func TestRunRepository_RunsByWorkspaceNewestFirst(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	older := testRun("ws-1")
	older.StartedAt = older.StartedAt.Add(-time.Hour)
	newer := testRun("ws-1")
	elsewhere := testRun("ws-2")

	for _, run := range []*models.Run{older, newer, elsewhere} {
		require.NoError(t, p.Runs().CreateRun(ctx, run))
	}

	runs, err := p.Runs().RunsByWorkspace(ctx, "ws-1")
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
}
