package engine

import (
	"database/sql"
	"time"

	"github.com/landertag/mailflow/internal/domain"
)

// Repository contracts the engine depends on. The concrete implementations
// live in internal/repository; tests substitute function-field mocks.

type InstanceRepo interface {
	Save(inst *domain.WorkflowInstance) error
	FindByID(id string) (*domain.WorkflowInstance, error)
	AdvanceStep(id string, nextStep int, sentAt sql.NullTime) error
	MarkCompleted(id string) error
	MarkCancelled(id string) (bool, error)
	FindActiveByUser(userID string) (*[]domain.WorkflowInstance, error)
}

type ScheduleRepo interface {
	Save(e *domain.ScheduleEntry) error
	FindDue(limit int) (*[]domain.ScheduleEntry, error)
	Claim(id string, modified time.Time) bool
	MarkSent(id string) error
	CancelPendingByInstance(instanceID string) (int64, error)
	HasPendingForStep(instanceID string, stepIndex int) (bool, error)
	FindByInstance(instanceID string) (*[]domain.ScheduleEntry, error)
}

type EmailLogRepo interface {
	Save(e *domain.EmailLogEntry) error
	FindByInstance(instanceID string) (*[]domain.EmailLogEntry, error)
}

// Renderer resolves a template key into HTML and plain-text bodies.
type Renderer interface {
	Has(key string) bool
	Render(key string, data map[string]any) (html string, text string, err error)
}
