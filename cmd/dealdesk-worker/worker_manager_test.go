package main

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dealdesk/dealdesk/pkg/channels/gochannel"
	"github.com/dealdesk/dealdesk/pkg/engine"
	"github.com/dealdesk/dealdesk/pkg/eventbus"
	"github.com/dealdesk/dealdesk/pkg/events"
	"github.com/dealdesk/dealdesk/pkg/mocks"
	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWorkerManager_TriggerEventProducesRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	persistence := file.NewPersistence(t.TempDir())

	directory := &mocks.MockDirectory{}
	entitlements := &mocks.MockEntitlementChecker{}
	sms := &mocks.MockSMSSender{}
	email := &mocks.MockEmailSender{}
	taskCreator := &mocks.MockTaskCreator{}

	entitlements.On("HasEntitlement", mock.Anything, "user-1", mock.Anything).Return(true, nil)
	directory.On("WorkspaceMember", mock.Anything, "ws-1", "user-1").Return(true, nil)
	directory.On("UserByID", mock.Anything, "user-1").
		Return(&models.User{ID: "user-1", Name: "Sam Rivera", Email: "sam@agency.test"}, nil)

	require.NoError(t, persistence.Definitions().SaveDefinition(ctx, &models.AutomationDefinition{
		ID:          "def-1",
		WorkspaceID: "ws-1",
		Name:        "Stage change follow up",
		Trigger:     models.TriggerContactStageChanged,
		Active:      true,
		Steps:       []*models.Step{},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}))

	executor := engine.NewExecutor(persistence, directory, entitlements, sms, email, taskCreator, logger)
	dispatcher := engine.NewDispatcher(persistence, directory, entitlements, executor, logger)

	worker := NewWorkerManager("worker-test", dispatcher, bus, logger)

	require.NoError(t, bus.Handle(events.AutomationTriggeredEvent, worker.handleAutomationTriggered))
	require.NoError(t, bus.Subscribe(ctx))

	event := events.NewAutomationTriggered(models.TriggerContactStageChanged, models.ExecutionContext{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Trigger:     models.TriggerContactStageChanged,
	})
	require.NoError(t, bus.Publish(ctx, "ws-1", event))

	require.Eventually(t, func() bool {
		runs, err := persistence.Runs().RunsByWorkspace(ctx, "ws-1")

		return err == nil && len(runs) == 1
	}, 5*time.Second, 50*time.Millisecond)

	runs, err := persistence.Runs().RunsByWorkspace(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, runs[0].Status)
	assert.Equal(t, "def-1", runs[0].DefinitionID)
}

func TestWorkerManager_InvalidEventTypeIsAcked(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	persistence := file.NewPersistence(t.TempDir())
	executor := engine.NewExecutor(persistence, &mocks.MockDirectory{}, &mocks.MockEntitlementChecker{},
		&mocks.MockSMSSender{}, &mocks.MockEmailSender{}, &mocks.MockTaskCreator{}, logger)
	dispatcher := engine.NewDispatcher(persistence, &mocks.MockDirectory{}, &mocks.MockEntitlementChecker{}, executor, logger)

	worker := NewWorkerManager("worker-test", dispatcher, nil, logger)

	err := worker.handleAutomationTriggered(context.Background(), "not an event")
	assert.NoError(t, err)
}
