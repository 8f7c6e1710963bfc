// Package main provides the Dealdesk worker that turns trigger events into
// automation runs.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dealdesk/dealdesk/pkg/engine"
	"github.com/dealdesk/dealdesk/pkg/eventbus"
	"github.com/dealdesk/dealdesk/pkg/events"
	"github.com/dealdesk/dealdesk/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WorkerManager struct {
	id         string
	logger     *slog.Logger
	dispatcher *engine.Dispatcher
	eventBus   eventbus.EventBus
	tracer     trace.Tracer
}

func NewWorkerManager(
	id string,
	dispatcher *engine.Dispatcher,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:         id,
		logger:     logger.With("module", "dealdesk-worker", "worker_id", id),
		dispatcher: dispatcher,
		eventBus:   eventBus,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "worker_id", w.id)

	tracer, err := otelhelper.NewTracer(ctx, "dealdesk-worker")
	if err != nil {
		w.logger.WarnContext(ctx, "Tracing disabled", "error", err)
	} else {
		w.tracer = tracer
	}

	err = w.eventBus.Handle(events.AutomationTriggeredEvent, w.handleAutomationTriggered)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

// handleAutomationTriggered is the fire-and-forget boundary. Dispatch never
// returns an error, so the handler always acks; run outcomes live in the
// audit trail.
func (w *WorkerManager) handleAutomationTriggered(ctx context.Context, event any) error {
	triggeredEvent, ok := event.(*events.AutomationTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for AutomationTriggered")

		return nil
	}

	if w.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, w.tracer, "handleAutomationTriggered",
			attribute.String(otelhelper.TriggerKey, string(triggeredEvent.Trigger)),
			attribute.String(otelhelper.WorkspaceIDKey, triggeredEvent.WorkspaceID),
			attribute.String(otelhelper.WorkerIDKey, w.id),
		)
		defer span.End()
	}

	w.logger.InfoContext(ctx, "Processing trigger event",
		"trigger", triggeredEvent.Trigger,
		"workspace_id", triggeredEvent.WorkspaceID,
		"event_id", triggeredEvent.ID,
	)

	w.dispatcher.Dispatch(ctx, triggeredEvent.Trigger, triggeredEvent.ExecutionContext())

	return nil
}
