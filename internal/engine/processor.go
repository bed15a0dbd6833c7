package engine

import (
	"context"
	"log/slog"
)

// Processor drains due schedule entries. It holds no state and is driven
// entirely by an external periodic trigger (HTTP endpoint or in-process
// cron); overlapping invocations are safe because each entry is claimed with
// a compare-and-swap before the send attempt.
type Processor struct {
	engine    *Engine
	schedules ScheduleRepo
}

func NewProcessor(engine *Engine, schedules ScheduleRepo) *Processor {
	return &Processor{engine: engine, schedules: schedules}
}

// ProcessDue executes up to limit due schedule entries, oldest first, and
// returns how many were claimed and attempted. A failing entry does not stop
// the batch, and every claimed entry is marked sent whether or not the
// delivery succeeded: the entry's job is to trigger the attempt, delivery
// outcomes are recorded in the email log.
func (p *Processor) ProcessDue(ctx context.Context, limit int) (int, error) {
	entries, err := p.schedules.FindDue(limit)
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Processing scheduled emails", "due", len(*entries))

	processed := 0
	for _, entry := range *entries {
		if !p.schedules.Claim(entry.ID, entry.Modified) {
			// Another processor run won the row.
			slog.InfoContext(ctx, "Schedule entry claimed elsewhere, skipping", "schedule_id", entry.ID)
			continue
		}

		result, err := p.engine.ExecuteStep(ctx, entry.InstanceID, entry.StepIndex)
		if err != nil {
			slog.ErrorContext(ctx, "Scheduled step execution failed", "schedule_id", entry.ID, "instance_id", entry.InstanceID, "step_index", entry.StepIndex, "error", err)
		} else if result.Outcome == OutcomeFailed {
			slog.ErrorContext(ctx, "Scheduled step send failed", "schedule_id", entry.ID, "instance_id", entry.InstanceID, "step_index", entry.StepIndex, "error", result.Err)
		}

		if err := p.schedules.MarkSent(entry.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark schedule entry sent", "schedule_id", entry.ID, "error", err)
		}
		processed++
	}
	return processed, nil
}
