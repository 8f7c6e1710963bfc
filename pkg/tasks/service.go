// Package tasks implements the task-creation service consumed by task steps.
// The service owns the window-based dedupe the engine relies on: a
// near-duplicate task for the same contact/listing inside the window is
// silently skipped and reported as a nil task.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/google/uuid"
)

// DedupeIndex reserves a dedupe key for a window. Claim returns false when
// the key is already held, meaning an equivalent task was created recently.
type DedupeIndex interface {
	Claim(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Sink persists created tasks. The surrounding system supplies the real one;
// tests use a capture.
type Sink interface {
	SaveTask(ctx context.Context, task *models.Task) error
}

type Service struct {
	dedupe DedupeIndex
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

func NewService(dedupe DedupeIndex, sink Sink, logger *slog.Logger) *Service {
	return &Service{
		dedupe: dedupe,
		sink:   sink,
		logger: logger.With("module", "tasks"),
		now:    time.Now,
	}
}

// CreateTask creates a task unless an equivalent one was created within the
// dedupe window. A deduped request returns nil, nil.
func (s *Service) CreateTask(ctx context.Context, req models.CreateTaskRequest) (*models.Task, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	window := time.Duration(req.DedupeWindowMinutes) * time.Minute
	if window > 0 {
		claimed, err := s.dedupe.Claim(ctx, dedupeKey(req), window)
		if err != nil {
			return nil, fmt.Errorf("dedupe check failed: %w", err)
		}

		if !claimed {
			s.logger.DebugContext(ctx, "Task deduped",
				"contact_id", req.ContactID, "listing_id", req.ListingID, "title", req.Title)

			return nil, nil
		}
	}

	task := &models.Task{
		ID:        "task-" + uuid.New().String(),
		UserID:    req.UserID,
		ContactID: req.ContactID,
		ListingID: req.ListingID,
		Title:     req.Title,
		Notes:     req.Notes,
		DueAt:     req.DueAt,
		CreatedAt: s.now(),
	}

	if err := s.sink.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	return task, nil
}

// dedupeKey ignores due dates on purpose: "call Dana" scheduled twice within
// the window is still one task.
func dedupeKey(req models.CreateTaskRequest) string {
	return strings.Join([]string{"task", req.UserID, req.ContactID, req.ListingID, req.Title}, ":")
}
