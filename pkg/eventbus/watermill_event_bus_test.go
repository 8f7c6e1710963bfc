package eventbus_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dealdesk/dealdesk/pkg/channels/gochannel"
	"github.com/dealdesk/dealdesk/pkg/eventbus"
	"github.com/dealdesk/dealdesk/pkg/events"
	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub)
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bus := newTestBus(t)

	var (
		mu       sync.Mutex
		received *events.AutomationTriggered
	)

	require.NoError(t, bus.Handle(events.AutomationTriggeredEvent, func(_ context.Context, event any) error {
		triggered, ok := event.(*events.AutomationTriggered)
		if !ok {
			t.Errorf("unexpected event type %T", event)

			return nil
		}

		mu.Lock()
		received = triggered
		mu.Unlock()

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.NewAutomationTriggered(models.TriggerContactCreated, models.ExecutionContext{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		ContactID:   "contact-1",
		Trigger:     models.TriggerContactCreated,
	})
	require.NoError(t, bus.Publish(ctx, "ws-1", sent))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return received != nil
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, sent.ID, received.ID)
	assert.Equal(t, models.TriggerContactCreated, received.Trigger)
	assert.Equal(t, "contact-1", received.ContactID)
}

func TestWatermillEventBus_UnhandledEventTypeIsDropped(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := newTestBus(t)

	// No handler registered; the message must be acked, not redelivered.
	require.NoError(t, bus.Subscribe(ctx))

	event := events.NewAutomationTriggered(models.TriggerListingCreated, models.ExecutionContext{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
	})
	assert.NoError(t, bus.Publish(ctx, "ws-1", event))
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
