// Package engine implements the automation workflow engine: the trigger
// dispatcher and the step executor that turns a definition's step list into
// an audited run against a contact/listing context.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealdesk/dealdesk/pkg/conditions"
	"github.com/dealdesk/dealdesk/pkg/models"
	"github.com/dealdesk/dealdesk/pkg/persistence"
	"github.com/dealdesk/dealdesk/pkg/protocol"
	"github.com/dealdesk/dealdesk/pkg/template"
	"github.com/dealdesk/dealdesk/pkg/timecursor"
	"github.com/google/uuid"
)

const defaultStepTimeout = 30 * time.Second

// Executor walks a definition's ordered step list, dispatching by kind and
// recursing into branches. It records one RunStep per executed step and
// re-checks the triggering user's entitlement before every side-effecting
// step. One failing step halts the whole run; this is not a
// partial-failure/continue model.
type Executor struct {
	persistence  persistence.Persistence
	directory    protocol.Directory
	entitlements protocol.EntitlementChecker
	sms          protocol.SMSSender
	email        protocol.EmailSender
	tasks        protocol.TaskCreator
	logger       *slog.Logger
	stepTimeout  time.Duration
	now          func() time.Time
}

func NewExecutor(
	persistence persistence.Persistence,
	directory protocol.Directory,
	entitlements protocol.EntitlementChecker,
	sms protocol.SMSSender,
	email protocol.EmailSender,
	tasks protocol.TaskCreator,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		persistence:  persistence,
		directory:    directory,
		entitlements: entitlements,
		sms:          sms,
		email:        email,
		tasks:        tasks,
		logger:       logger.With("module", "executor"),
		stepTimeout:  defaultStepTimeout,
		now:          time.Now,
	}
}

// WithStepTimeout overrides the per-step timeout applied to side-effect
// adapter calls. A timed-out call surfaces as an error RunStep and fails the
// run instead of stalling it.
func (e *Executor) WithStepTimeout(timeout time.Duration) *Executor {
	e.stepTimeout = timeout

	return e
}

// WithClock overrides the wall clock, fixing the run start time in tests.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now

	return e
}

// runState carries the per-run working set through the recursive step walk.
// The time cursor is deliberately not part of it: the cursor is threaded as a
// value through runSteps parameters and return values.
type runState struct {
	run     *models.Run
	user    *models.User
	contact *models.Contact
	listing *models.Listing
	vars    map[string]string

	nextIndex   int
	halted      bool
	failMessage string
}

// Execute runs one definition against one context and returns the finalized
// run. The returned error covers infrastructure failures only (snapshot
// loads, run creation); step-level failures live in the audit trail.
func (e *Executor) Execute(ctx context.Context, definition *models.AutomationDefinition, execCtx models.ExecutionContext) (*models.Run, error) {
	logger := e.logger.With(
		"definition_id", definition.ID,
		"workspace_id", execCtx.WorkspaceID,
		"trigger", execCtx.Trigger,
	)

	user, err := e.directory.UserByID(ctx, execCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", execCtx.UserID, err)
	}

	if user == nil {
		return nil, fmt.Errorf("user %s not found", execCtx.UserID)
	}

	var contact *models.Contact
	if execCtx.ContactID != "" {
		contact, err = e.directory.ContactByID(ctx, execCtx.ContactID, execCtx.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load contact %s: %w", execCtx.ContactID, err)
		}
	}

	var listing *models.Listing
	if execCtx.ListingID != "" {
		listing, err = e.directory.ListingByID(ctx, execCtx.ListingID, execCtx.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load listing %s: %w", execCtx.ListingID, err)
		}
	}

	startedAt := e.now()
	run := &models.Run{
		ID:           "run-" + uuid.New().String(),
		WorkspaceID:  execCtx.WorkspaceID,
		DefinitionID: definition.ID,
		ContactID:    execCtx.ContactID,
		ListingID:    execCtx.ListingID,
		Trigger:      execCtx.Trigger,
		Payload:      execCtx.Payload,
		Status:       models.RunStatusRunning,
		StartedAt:    startedAt,
	}

	// The run record exists before any step executes: a crash mid-run still
	// leaves an auditable partial trail together with the step inserts.
	if err := e.persistence.Runs().CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	state := &runState{
		run:     run,
		user:    user,
		contact: contact,
		listing: listing,
		vars:    templateVars(user, contact, listing),
	}

	if e.allowed(ctx, execCtx.UserID, models.CapabilityAutomationsRun) {
		_ = e.runSteps(ctx, state, definition.Steps, timecursor.Start(startedAt))
	} else {
		state.halted = true
		state.failMessage = "plan does not include automation runs"
	}

	status := models.RunStatusSuccess
	if state.halted {
		status = models.RunStatusFailed
	}

	if err := e.persistence.Runs().FinalizeRun(ctx, run.WorkspaceID, run.ID, status, state.failMessage); err != nil {
		logger.ErrorContext(ctx, "Failed to finalize run", "run_id", run.ID, "error", err)
	}

	finishedAt := e.now()
	run.Status = status
	run.Message = state.failMessage
	run.FinishedAt = &finishedAt

	logger.InfoContext(ctx, "Run finished", "run_id", run.ID, "status", status)

	return run, nil
}

// runSteps walks one step list, recursing for branches. It takes the cursor
// by value and returns the advanced cursor so a wait inside a branch keeps
// shifting everything after the branch returns.
func (e *Executor) runSteps(ctx context.Context, state *runState, steps []*models.Step, cursor timecursor.Cursor) timecursor.Cursor {
	for _, step := range steps {
		if state.halted {
			return cursor
		}

		switch step.Kind {
		case models.StepKindSMS:
			e.runSMSStep(ctx, state, step)
		case models.StepKindEmail:
			e.runEmailStep(ctx, state, step)
		case models.StepKindWait:
			cursor = e.runWaitStep(ctx, state, step, cursor)
		case models.StepKindTask:
			e.runTaskStep(ctx, state, step, cursor)
		case models.StepKindIf:
			cursor = e.runIfStep(ctx, state, step, cursor)
		default:
			e.record(ctx, state, step, models.RunStepStatusError,
				fmt.Sprintf("unknown step kind %q", step.Kind), nil)
			state.fail(fmt.Sprintf("unknown step kind %q", step.Kind))
		}
	}

	return cursor
}

func (e *Executor) runSMSStep(ctx context.Context, state *runState, step *models.Step) {
	var phone string
	if state.contact != nil {
		phone = state.contact.Phone
	}

	// A user-only test run has no phone target either; missing targets are
	// fatal for SMS, not skippable.
	if phone == "" {
		e.record(ctx, state, step, models.RunStepStatusError, "no phone number available", nil)
		state.fail("no phone number available")

		return
	}

	if !e.allowed(ctx, state.user.ID, models.CapabilityAutomationsRun) {
		e.record(ctx, state, step, models.RunStepStatusSkipped, "plan downgraded mid-run, sms not sent", nil)
		state.fail("plan downgraded mid-run")

		return
	}

	body := template.Render(step.ConfigString("message"), state.vars)

	if err := e.withTimeout(ctx, func(ctx context.Context) error {
		return e.sms.SendSMS(ctx, phone, body)
	}); err != nil {
		e.record(ctx, state, step, models.RunStepStatusError, err.Error(), map[string]any{"to": phone})
		state.fail(err.Error())

		return
	}

	e.record(ctx, state, step, models.RunStepStatusSuccess, "sms sent", map[string]any{"to": phone})
}

func (e *Executor) runEmailStep(ctx context.Context, state *runState, step *models.Step) {
	var email string

	switch {
	case state.contact != nil:
		email = state.contact.Email
	default:
		// No contact means a user-only test run; outbound mail goes to the
		// acting user instead.
		email = state.user.Email
	}

	if email == "" {
		e.record(ctx, state, step, models.RunStepStatusError, "no email address available", nil)
		state.fail("no email address available")

		return
	}

	if !e.allowed(ctx, state.user.ID, models.CapabilityAutomationsRun) {
		e.record(ctx, state, step, models.RunStepStatusSkipped, "plan downgraded mid-run, email not sent", nil)
		state.fail("plan downgraded mid-run")

		return
	}

	subject := template.Render(step.ConfigString("subject"), state.vars)
	html := template.Render(template.NewlinesToParagraphs(step.ConfigString("body")), state.vars)

	if err := e.withTimeout(ctx, func(ctx context.Context) error {
		return e.email.SendEmail(ctx, email, subject, html)
	}); err != nil {
		e.record(ctx, state, step, models.RunStepStatusError, err.Error(), map[string]any{"to": email})
		state.fail(err.Error())

		return
	}

	e.record(ctx, state, step, models.RunStepStatusSuccess, "email sent", map[string]any{
		"to":      email,
		"subject": subject,
	})
}

// runWaitStep advances the virtual clock. Absence of timing configuration is
// a no-op delay, not a failure.
func (e *Executor) runWaitStep(ctx context.Context, state *runState, step *models.Step, cursor timecursor.Cursor) timecursor.Cursor {
	advanced := cursor

	if amount, ok := step.ConfigNumber("amount"); ok {
		advanced = cursor.Advance(int(amount), timecursor.Unit(step.ConfigString("unit")))
	} else if hours, ok := step.ConfigNumber("hours"); ok {
		// Legacy shape: bare hours/days fields.
		advanced = cursor.Advance(int(hours), timecursor.UnitHours)
	} else if days, ok := step.ConfigNumber("days"); ok {
		advanced = cursor.Advance(int(days), timecursor.UnitDays)
	}

	e.record(ctx, state, step, models.RunStepStatusSuccess, "wait", map[string]any{
		"cursor_from": cursor.Time(),
		"cursor_to":   advanced.Time(),
	})

	return advanced
}

func (e *Executor) runTaskStep(ctx context.Context, state *runState, step *models.Step, cursor timecursor.Cursor) {
	if !e.allowed(ctx, state.user.ID, models.CapabilityAutomationsRun) {
		e.record(ctx, state, step, models.RunStepStatusSkipped, "plan downgraded mid-run, task not created", nil)
		state.fail("plan downgraded mid-run")

		return
	}

	dueAt := e.taskDueAt(step, state.run.StartedAt, cursor)

	req := models.CreateTaskRequest{
		UserID:              state.user.ID,
		ContactID:           state.run.ContactID,
		ListingID:           state.run.ListingID,
		Title:               template.Render(step.ConfigString("title"), state.vars),
		Notes:               template.Render(step.ConfigString("notes"), state.vars),
		DueAt:               dueAt,
		DedupeWindowMinutes: defaultTaskDedupeWindowMinutes,
	}

	var task *models.Task

	if err := e.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		task, err = e.tasks.CreateTask(ctx, req)

		return err
	}); err != nil {
		e.record(ctx, state, step, models.RunStepStatusError, err.Error(), nil)
		state.fail(err.Error())

		return
	}

	if task == nil {
		e.record(ctx, state, step, models.RunStepStatusSuccess, "task deduped", map[string]any{"due_at": dueAt})

		return
	}

	e.record(ctx, state, step, models.RunStepStatusSuccess, "task created", map[string]any{
		"task_id": task.ID,
		"due_at":  dueAt,
	})
}

const defaultTaskDedupeWindowMinutes = 10

// taskDueAt resolves the due timestamp in precedence order: explicit due
// field, relative offset from run start, then the current cursor value.
func (e *Executor) taskDueAt(step *models.Step, startedAt time.Time, cursor timecursor.Cursor) time.Time {
	if raw := step.ConfigString("due_at"); raw != "" {
		if due, err := time.Parse(time.RFC3339, raw); err == nil {
			return due
		}
	}

	if minutes, ok := step.ConfigNumber("offset_minutes"); ok {
		return startedAt.Add(time.Duration(minutes) * time.Minute)
	}

	if hours, ok := step.ConfigNumber("offset_hours"); ok {
		return startedAt.Add(time.Duration(hours) * time.Hour)
	}

	if days, ok := step.ConfigNumber("offset_days"); ok {
		return startedAt.AddDate(0, 0, int(days))
	}

	return cursor.Time()
}

func (e *Executor) runIfStep(ctx context.Context, state *runState, step *models.Step, cursor timecursor.Cursor) timecursor.Cursor {
	var raw any
	if step.Config != nil {
		raw = step.Config["conditions"]
	}

	group := conditions.Normalize(raw)
	result := conditions.Evaluate(group, state.contact, state.listing)

	e.record(ctx, state, step, models.RunStepStatusSuccess, "condition evaluated", map[string]any{
		"result":     result,
		"conditions": group,
	})

	branch := step.Else
	if result {
		branch = step.Then
	}

	return e.runSteps(ctx, state, branch, cursor)
}

// record appends one audit row. Indices are strictly increasing and reflect
// actual execution order, branch steps included.
func (e *Executor) record(ctx context.Context, state *runState, step *models.Step, status models.RunStepStatus, message string, detail map[string]any) {
	runStep := &models.RunStep{
		ID:        "runstep-" + uuid.New().String(),
		RunID:     state.run.ID,
		Index:     state.nextIndex,
		StepID:    step.ID,
		Kind:      step.Kind,
		Status:    status,
		Message:   message,
		Detail:    detail,
		CreatedAt: e.now(),
	}
	state.nextIndex++

	if err := e.persistence.Runs().AppendStep(ctx, runStep); err != nil {
		e.logger.ErrorContext(ctx, "Failed to append run step",
			"run_id", state.run.ID, "index", runStep.Index, "error", err)
		state.fail("audit write failed: " + err.Error())
	}
}

func (e *Executor) allowed(ctx context.Context, userID, capability string) bool {
	ok, err := e.entitlements.HasEntitlement(ctx, userID, capability)
	if err != nil {
		e.logger.ErrorContext(ctx, "Entitlement check failed", "capability", capability, "error", err)

		return false
	}

	return ok
}

func (e *Executor) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	return fn(ctx)
}

func (state *runState) fail(message string) {
	state.halted = true

	if state.failMessage == "" {
		state.failMessage = message
	}
}

// templateVars builds the flat variable map outbound messages render with.
// Missing entities degrade to empty strings.
func templateVars(user *models.User, contact *models.Contact, listing *models.Listing) map[string]string {
	vars := map[string]string{
		"firstName":       "",
		"agentName":       "",
		"propertyAddress": "",
	}

	if contact != nil {
		vars["firstName"] = contact.FirstName
	}

	if user != nil {
		vars["agentName"] = user.Name
	}

	if listing != nil {
		vars["propertyAddress"] = listing.Address
	}

	return vars
}
