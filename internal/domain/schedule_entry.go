package domain

import (
	"database/sql"
	"time"
)

const (
	ScheduleStatusPending    = "pending"
	ScheduleStatusProcessing = "processing"
	ScheduleStatusSent       = "sent"
	ScheduleStatusCancelled  = "cancelled"
)

// ScheduleEntry defers one workflow step to an absolute point in time.
// A processor claims an entry (pending -> processing) before attempting the
// send so overlapping cron runs cannot both fire the same step.
type ScheduleEntry struct {
	ID           string
	InstanceID   string
	StepIndex    int
	ScheduledFor time.Time
	Status       string
	SentAt       sql.NullTime
	Created      time.Time
	Modified     time.Time
}
