package domain

import (
	"database/sql"
	"time"
)

const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLogEntry is an append-only audit record of one send attempt. It is
// never read back for control flow, only for operator visibility.
type EmailLogEntry struct {
	ID                string
	UserID            string
	WorkflowID        sql.NullString
	InstanceID        sql.NullString
	StepID            sql.NullString
	Email             string
	Subject           string
	Status            string
	Provider          sql.NullString
	ProviderMessageID sql.NullString
	ErrorMessage      sql.NullString
	SentAt            time.Time
}
