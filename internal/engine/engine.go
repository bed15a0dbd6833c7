package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/landertag/mailflow/internal/catalog"
	"github.com/landertag/mailflow/internal/domain"
	"github.com/landertag/mailflow/internal/email"
	"github.com/landertag/mailflow/pkg/mailflow/core"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrWorkflowDisabled = errors.New("workflow disabled")
	ErrInstanceNotFound = errors.New("workflow instance not found")
	// ErrStepNotFound means the instance points past the end of its
	// definition's steps, a catalog/instance mismatch that needs an operator.
	ErrStepNotFound = errors.New("workflow step not found")
)

type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
	OutcomeFinalized Outcome = "already_finalized"
	OutcomeStale     Outcome = "stale"
)

// StepResult is the structured outcome of one ExecuteStep call. When
// zero-delay steps chain within a single call, it reflects the last step
// attempted.
type StepResult struct {
	Outcome   Outcome
	StepIndex int
	MessageID string
	Err       error
}

// Engine owns all workflow instance state transitions. Between calls the
// system is fully at rest; nothing lives in memory except the catalog and
// template registry.
type Engine struct {
	catalog   *catalog.Catalog
	templates Renderer
	sender    email.Sender
	instances InstanceRepo
	schedules ScheduleRepo
	logs      EmailLogRepo
	clock     core.Clock
}

func New(cat *catalog.Catalog, templates Renderer, sender email.Sender,
	instances InstanceRepo, schedules ScheduleRepo, logs EmailLogRepo, clock core.Clock) *Engine {
	return &Engine{
		catalog:   cat,
		templates: templates,
		sender:    sender,
		instances: instances,
		schedules: schedules,
		logs:      logs,
		clock:     clock,
	}
}

// StartWorkflow creates a new instance of the named workflow and either sends
// step 0 inline (zero delay) or enqueues it. The instance id is returned even
// when the inline send fails; the failure is captured in the email log and
// the instance halts at step 0.
func (e *Engine) StartWorkflow(ctx context.Context, workflowID, userEmail, userID string, metadata map[string]any) (string, error) {
	def, ok := e.catalog.Get(workflowID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}
	if !def.Enabled {
		return "", fmt.Errorf("%w: %s", ErrWorkflowDisabled, workflowID)
	}

	metaJSON := "{}"
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("marshal metadata: %w", err)
		}
		metaJSON = string(raw)
	}

	inst := &domain.WorkflowInstance{
		ID:          uuid.NewString(),
		WorkflowID:  workflowID,
		UserID:      userID,
		UserEmail:   userEmail,
		Status:      domain.InstanceStatusActive,
		CurrentStep: 0,
		Metadata:    sql.NullString{String: metaJSON, Valid: true},
		StartedAt:   e.clock.Now().UTC(),
	}
	if err := e.instances.Save(inst); err != nil {
		return "", fmt.Errorf("save instance: %w", err)
	}
	slog.InfoContext(ctx, "Started workflow", "workflow_id", workflowID, "instance_id", inst.ID, "user_email", userEmail)

	if def.Steps[0].DelayHours == 0 {
		result, err := e.ExecuteStep(ctx, inst.ID, 0)
		if err != nil {
			slog.ErrorContext(ctx, "First step execution failed", "instance_id", inst.ID, "error", err)
		} else if result.Outcome == OutcomeFailed {
			slog.ErrorContext(ctx, "First step send failed", "instance_id", inst.ID, "error", result.Err)
		}
	} else {
		if err := e.enqueueStep(ctx, inst.ID, 0, def.Steps[0].DelayHours); err != nil {
			return "", err
		}
	}
	return inst.ID, nil
}

// StartForTrigger starts every enabled workflow bound to the given trigger
// and returns the created instance ids.
func (e *Engine) StartForTrigger(ctx context.Context, trigger catalog.Trigger, userEmail, userID string, metadata map[string]any) ([]string, error) {
	var ids []string
	for _, def := range e.catalog.ByTrigger(trigger) {
		id, err := e.StartWorkflow(ctx, def.ID, userEmail, userID, metadata)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ExecuteStep runs one step of an instance: condition check, render, send,
// log, advance. Steps whose successor has zero delay chain within the same
// call so a fully zero-delay workflow completes in one invocation.
func (e *Engine) ExecuteStep(ctx context.Context, instanceID string, stepIndex int) (*StepResult, error) {
	for {
		result, next, err := e.executeOne(ctx, instanceID, stepIndex)
		if err != nil || next < 0 {
			return result, err
		}
		stepIndex = next
	}
}

func (e *Engine) executeOne(ctx context.Context, instanceID string, stepIndex int) (*StepResult, int, error) {
	inst, err := e.instances.FindByID(instanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, -1, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
		}
		return nil, -1, fmt.Errorf("load instance: %w", err)
	}

	// Late-firing schedule entries must not resurrect a stopped workflow.
	if inst.IsTerminal() {
		slog.InfoContext(ctx, "Instance already finalized, skipping step", "instance_id", instanceID, "status", inst.Status, "step_index", stepIndex)
		return &StepResult{Outcome: OutcomeFinalized, StepIndex: stepIndex}, -1, nil
	}
	// A duplicate trigger for an already-executed step is dropped; this is
	// the per-instance ordering guard.
	if inst.CurrentStep != stepIndex {
		slog.WarnContext(ctx, "Step index does not match instance position, skipping", "instance_id", instanceID, "step_index", stepIndex, "current_step", inst.CurrentStep)
		return &StepResult{Outcome: OutcomeStale, StepIndex: stepIndex}, -1, nil
	}

	def, ok := e.catalog.Get(inst.WorkflowID)
	if !ok {
		return nil, -1, fmt.Errorf("%w: %s", ErrWorkflowNotFound, inst.WorkflowID)
	}
	if stepIndex < 0 || stepIndex >= len(def.Steps) {
		return nil, -1, fmt.Errorf("%w: workflow %s has no step %d", ErrStepNotFound, def.ID, stepIndex)
	}
	step := def.Steps[stepIndex]

	data := e.stepData(inst)

	if step.Condition != nil && !step.Condition(data) {
		slog.InfoContext(ctx, "Step condition not met, skipping", "instance_id", instanceID, "step_id", step.ID)
		next, err := e.advance(ctx, inst, def, stepIndex, sql.NullTime{})
		if err != nil {
			return nil, -1, err
		}
		return &StepResult{Outcome: OutcomeSkipped, StepIndex: stepIndex}, next, nil
	}

	html, text, err := e.templates.Render(step.TemplateKey, data)
	if err != nil {
		e.logFailure(ctx, inst, def, &step, err)
		return &StepResult{Outcome: OutcomeFailed, StepIndex: stepIndex, Err: err}, -1, nil
	}

	sendResult, err := e.sender.Send(ctx, email.Message{
		To:      inst.UserEmail,
		Subject: step.Subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		// A failed send halts the instance at this step: no advance, no
		// next schedule entry. Re-invoking ExecuteStep retries it.
		e.logFailure(ctx, inst, def, &step, err)
		slog.ErrorContext(ctx, "Workflow email send failed", "instance_id", instanceID, "step_id", step.ID, "error", err)
		return &StepResult{Outcome: OutcomeFailed, StepIndex: stepIndex, Err: err}, -1, nil
	}

	sentAt := e.clock.Now().UTC()
	e.appendLog(ctx, &domain.EmailLogEntry{
		ID:                uuid.NewString(),
		UserID:            inst.UserID,
		WorkflowID:        sql.NullString{String: def.ID, Valid: true},
		InstanceID:        sql.NullString{String: inst.ID, Valid: true},
		StepID:            sql.NullString{String: step.ID, Valid: true},
		Email:             inst.UserEmail,
		Subject:           step.Subject,
		Status:            domain.EmailLogStatusSent,
		Provider:          sql.NullString{String: sendResult.Provider, Valid: true},
		ProviderMessageID: sql.NullString{String: sendResult.MessageID, Valid: sendResult.MessageID != ""},
		SentAt:            sentAt,
	})
	slog.InfoContext(ctx, "Sent workflow email", "instance_id", instanceID, "step_id", step.ID, "to", inst.UserEmail)

	next, err := e.advance(ctx, inst, def, stepIndex, sql.NullTime{Time: sentAt, Valid: true})
	if err != nil {
		return nil, -1, err
	}
	return &StepResult{Outcome: OutcomeSent, StepIndex: stepIndex, MessageID: sendResult.MessageID}, next, nil
}

// advance moves the instance past stepIndex. It returns the index of the
// next step when that step should run immediately (zero delay), or -1.
func (e *Engine) advance(ctx context.Context, inst *domain.WorkflowInstance, def *catalog.WorkflowDefinition, stepIndex int, sentAt sql.NullTime) (int, error) {
	next := stepIndex + 1
	if err := e.instances.AdvanceStep(inst.ID, next, sentAt); err != nil {
		return -1, fmt.Errorf("advance instance: %w", err)
	}
	inst.CurrentStep = next

	if next >= len(def.Steps) {
		if err := e.instances.MarkCompleted(inst.ID); err != nil {
			return -1, fmt.Errorf("complete instance: %w", err)
		}
		slog.InfoContext(ctx, "Workflow completed", "instance_id", inst.ID, "workflow_id", def.ID)
		return -1, nil
	}

	if def.Steps[next].DelayHours == 0 {
		return next, nil
	}
	if err := e.enqueueStep(ctx, inst.ID, next, def.Steps[next].DelayHours); err != nil {
		return -1, err
	}
	return -1, nil
}

func (e *Engine) enqueueStep(ctx context.Context, instanceID string, stepIndex, delayHours int) error {
	pending, err := e.schedules.HasPendingForStep(instanceID, stepIndex)
	if err != nil {
		return fmt.Errorf("check pending schedule: %w", err)
	}
	if pending {
		slog.WarnContext(ctx, "Schedule entry already pending for step, not enqueueing again", "instance_id", instanceID, "step_index", stepIndex)
		return nil
	}

	scheduledFor := e.clock.Now().UTC().Add(time.Duration(delayHours) * time.Hour)
	entry := &domain.ScheduleEntry{
		ID:           uuid.NewString(),
		InstanceID:   instanceID,
		StepIndex:    stepIndex,
		ScheduledFor: scheduledFor,
		Status:       domain.ScheduleStatusPending,
	}
	if err := e.schedules.Save(entry); err != nil {
		return fmt.Errorf("save schedule entry: %w", err)
	}
	slog.InfoContext(ctx, "Scheduled workflow email", "instance_id", instanceID, "step_index", stepIndex, "scheduled_for", scheduledFor)
	return nil
}

// StopWorkflow cancels an active instance and its pending schedule entries.
// Stopping an already-terminal instance is a no-op.
func (e *Engine) StopWorkflow(ctx context.Context, instanceID string) error {
	if _, err := e.instances.FindByID(instanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
		}
		return fmt.Errorf("load instance: %w", err)
	}

	cancelled, err := e.instances.MarkCancelled(instanceID)
	if err != nil {
		return fmt.Errorf("cancel instance: %w", err)
	}
	n, err := e.schedules.CancelPendingByInstance(instanceID)
	if err != nil {
		return fmt.Errorf("cancel schedule entries: %w", err)
	}
	if cancelled {
		slog.InfoContext(ctx, "Stopped workflow", "instance_id", instanceID, "cancelled_schedules", n)
	}
	return nil
}

// InstanceDetail is the operator view of one instance.
type InstanceDetail struct {
	Instance  *domain.WorkflowInstance
	Schedules []domain.ScheduleEntry
	EmailLog  []domain.EmailLogEntry
}

func (e *Engine) GetInstance(ctx context.Context, instanceID string) (*InstanceDetail, error) {
	inst, err := e.instances.FindByID(instanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
		}
		return nil, err
	}
	schedules, err := e.schedules.FindByInstance(instanceID)
	if err != nil {
		return nil, err
	}
	logEntries, err := e.logs.FindByInstance(instanceID)
	if err != nil {
		return nil, err
	}
	return &InstanceDetail{Instance: inst, Schedules: *schedules, EmailLog: *logEntries}, nil
}

// ListActiveForUser returns the user's in-flight instances, oldest first.
func (e *Engine) ListActiveForUser(ctx context.Context, userID string) ([]domain.WorkflowInstance, error) {
	instances, err := e.instances.FindActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	return *instances, nil
}

func (e *Engine) stepData(inst *domain.WorkflowInstance) map[string]any {
	data := map[string]any{}
	if inst.Metadata.Valid && inst.Metadata.String != "" {
		if err := json.Unmarshal([]byte(inst.Metadata.String), &data); err != nil {
			slog.Warn("Instance metadata is not valid JSON", "instance_id", inst.ID, "error", err)
			data = map[string]any{}
		}
	}
	data["userEmail"] = inst.UserEmail
	data["userId"] = inst.UserID
	return data
}

func (e *Engine) logFailure(ctx context.Context, inst *domain.WorkflowInstance, def *catalog.WorkflowDefinition, step *catalog.StepDefinition, cause error) {
	e.appendLog(ctx, &domain.EmailLogEntry{
		ID:           uuid.NewString(),
		UserID:       inst.UserID,
		WorkflowID:   sql.NullString{String: def.ID, Valid: true},
		InstanceID:   sql.NullString{String: inst.ID, Valid: true},
		StepID:       sql.NullString{String: step.ID, Valid: true},
		Email:        inst.UserEmail,
		Subject:      step.Subject,
		Status:       domain.EmailLogStatusFailed,
		ErrorMessage: sql.NullString{String: cause.Error(), Valid: true},
		SentAt:       e.clock.Now().UTC(),
	})
}

// appendLog is best effort; the log is an audit trail, not control flow.
func (e *Engine) appendLog(ctx context.Context, entry *domain.EmailLogEntry) {
	if err := e.logs.Save(entry); err != nil {
		slog.ErrorContext(ctx, "Failed to append email log entry", "instance_id", entry.InstanceID.String, "error", err)
	}
}
