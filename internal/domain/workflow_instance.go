package domain

import (
	"database/sql"
	"time"
)

const (
	InstanceStatusActive    = "active"
	InstanceStatusCompleted = "completed"
	InstanceStatusCancelled = "cancelled"
)

// WorkflowInstance is one run of a catalog workflow for one user. The engine
// is the only writer; current_step only moves forward and a terminal status
// (completed/cancelled) is never left again.
type WorkflowInstance struct {
	ID              string
	WorkflowID      string
	UserID          string
	UserEmail       string
	Status          string
	CurrentStep     int
	Metadata        sql.NullString // JSON object supplied at start
	StartedAt       time.Time
	LastEmailSentAt sql.NullTime
	CompletedAt     sql.NullTime
	Created         time.Time
	Modified        time.Time
}

func (w *WorkflowInstance) IsTerminal() bool {
	return w.Status == InstanceStatusCompleted || w.Status == InstanceStatusCancelled
}
