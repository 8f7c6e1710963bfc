// Package web provides HTTP handlers and REST API endpoints for the
// automation API.
package web

import (
	"log/slog"
	"time"

	"github.com/dealdesk/dealdesk/pkg/eventbus"
	"github.com/dealdesk/dealdesk/pkg/events"
	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type APIHandlers struct {
	persistence persistence.Persistence
	validator   *validator.Validate
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewAPIHandlers(
	persistence persistence.Persistence,
	validator *validator.Validate,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: persistence,
		validator:   validator,
		publisher:   publisher,
		logger:      logger,
	}
}

func (h *APIHandlers) GetDefinitions(c fiber.Ctx) error {
	workspaceID := c.Params("workspaceId")
	if workspaceID == "" {
		return badRequest(c, "Workspace ID is required")
	}

	definitions, err := h.persistence.Definitions().DefinitionsByWorkspace(c.Context(), workspaceID)
	if err != nil {
		return internalError(c, err)
	}

	if definitions == nil {
		definitions = []*models.AutomationDefinition{}
	}

	return c.JSON(definitions)
}

func (h *APIHandlers) GetDefinition(c fiber.Ctx) error {
	workspaceID := c.Params("workspaceId")
	id := c.Params("id")

	if workspaceID == "" || id == "" {
		return badRequest(c, "Workspace ID and definition ID are required")
	}

	definition, err := h.persistence.Definitions().DefinitionByID(c.Context(), workspaceID, id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.JSON(definition)
}

func (h *APIHandlers) CreateDefinition(c fiber.Ctx) error {
	workspaceID := c.Params("workspaceId")
	if workspaceID == "" {
		return badRequest(c, "Workspace ID is required")
	}

	var req CreateDefinitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	trigger := models.TriggerName(req.Trigger)
	if !trigger.Known() {
		return badRequest(c, "Unknown trigger: "+req.Trigger)
	}

	now := time.Now().UTC()
	definition := &models.AutomationDefinition{
		ID:          "def-" + uuid.New().String(),
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Trigger:     trigger,
		Active:      req.Active,
		Steps:       req.Steps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.persistence.Definitions().SaveDefinition(c.Context(), definition); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(DefinitionResponse{
		Definition: definition,
		Warnings:   models.LintSteps(definition.Steps),
	})
}

func (h *APIHandlers) UpdateDefinition(c fiber.Ctx) error {
	workspaceID := c.Params("workspaceId")
	id := c.Params("id")

	if workspaceID == "" || id == "" {
		return badRequest(c, "Workspace ID and definition ID are required")
	}

	var req UpdateDefinitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.Definitions().DefinitionByID(c.Context(), workspaceID, id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Trigger != nil {
		trigger := models.TriggerName(*req.Trigger)
		if !trigger.Known() {
			return badRequest(c, "Unknown trigger: "+*req.Trigger)
		}

		existing.Trigger = trigger
	}

	if req.Active != nil {
		existing.Active = *req.Active
	}

	if req.Steps != nil {
		existing.Steps = req.Steps
	}

	existing.UpdatedAt = time.Now().UTC()

	if err := h.persistence.Definitions().SaveDefinition(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(DefinitionResponse{
		Definition: existing,
		Warnings:   models.LintSteps(existing.Steps),
	})
}

func (h *APIHandlers) DeleteDefinition(c fiber.Ctx) error {
	workspaceID := c.Params("workspaceId")
	id := c.Params("id")

	if workspaceID == "" || id == "" {
		return badRequest(c, "Workspace ID and definition ID are required")
	}

	err := h.persistence.Definitions().DeleteDefinition(c.Context(), workspaceID, id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	workspaceID := c.Params("workspaceId")
	if workspaceID == "" {
		return badRequest(c, "Workspace ID is required")
	}

	runs, err := h.persistence.Runs().RunsByWorkspace(c.Context(), workspaceID)
	if err != nil {
		return internalError(c, err)
	}

	if runs == nil {
		runs = []*models.Run{}
	}

	return c.JSON(runs)
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	workspaceID := c.Params("workspaceId")
	id := c.Params("id")

	if workspaceID == "" || id == "" {
		return badRequest(c, "Workspace ID and run ID are required")
	}

	run, err := h.persistence.Runs().RunByID(c.Context(), workspaceID, id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	steps, err := h.persistence.Runs().StepsByRun(c.Context(), workspaceID, id)
	if err != nil {
		return handlePersistenceError(c, err)
	}

	if steps == nil {
		steps = []*models.RunStep{}
	}

	return c.JSON(RunDetailResponse{Run: run, Steps: steps})
}

// FireTrigger publishes a trigger event for the worker to pick up. The
// response acknowledges publication only; run outcomes live in the audit
// trail.
func (h *APIHandlers) FireTrigger(c fiber.Ctx) error {
	name := c.Params("name")

	trigger := models.TriggerName(name)
	if !trigger.Known() {
		return badRequest(c, "Unknown trigger: "+name)
	}

	var req TriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := events.NewAutomationTriggered(trigger, models.ExecutionContext{
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		ContactID:   req.ContactID,
		ListingID:   req.ListingID,
		Trigger:     trigger,
		Payload:     req.Payload,
	})

	if err := h.publisher.Publish(c.Context(), req.WorkspaceID, event); err != nil {
		h.logger.ErrorContext(c.Context(), "Failed to publish trigger event",
			"trigger", trigger, "workspace_id", req.WorkspaceID, "error", err)

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"event_id": event.ID,
		"trigger":  trigger,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Dealdesk API is healthy"
	httpStatus := fiber.StatusOK

	err := h.persistence.HealthCheck(c.Context())
	if err != nil {
		status = "unhealthy"
		message = "Dealdesk API is unhealthy"
		httpStatus = fiber.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
