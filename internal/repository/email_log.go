package repository

import (
	"database/sql"

	"github.com/landertag/mailflow/internal/domain"
	"github.com/landertag/mailflow/pkg/mailflow/core"
)

const emailLogColumns = ` id, user_id, workflow_id, instance_id, step_id, email, subject,
		       status, provider, provider_message_id, error_message, sent_at `

type EmailLogRepository struct {
	db      *sql.DB
	dialect Dialect
	clock   core.Clock
}

func NewEmailLogRepository(db *sql.DB, dialect Dialect, clock core.Clock) *EmailLogRepository {
	return &EmailLogRepository{db: db, dialect: dialect, clock: clock}
}

func (r *EmailLogRepository) Save(e *domain.EmailLogEntry) error {
	query := `INSERT INTO email_logs (
		id, user_id, workflow_id, instance_id, step_id, email, subject,
		status, provider, provider_message_id, error_message, sent_at
	) VALUES (` +
		r.dialect.placeholder(1) + `, ` + r.dialect.placeholder(2) + `, ` + r.dialect.placeholder(3) + `, ` +
		r.dialect.placeholder(4) + `, ` + r.dialect.placeholder(5) + `, ` + r.dialect.placeholder(6) + `, ` +
		r.dialect.placeholder(7) + `, ` + r.dialect.placeholder(8) + `, ` + r.dialect.placeholder(9) + `, ` +
		r.dialect.placeholder(10) + `, ` + r.dialect.placeholder(11) + `, ` + r.dialect.nowFunc(r.clock) + `)`

	_, err := r.db.Exec(query,
		e.ID,
		e.UserID,
		e.WorkflowID,
		e.InstanceID,
		e.StepID,
		e.Email,
		e.Subject,
		e.Status,
		e.Provider,
		e.ProviderMessageID,
		e.ErrorMessage,
	)
	return err
}

func (r *EmailLogRepository) FindByInstance(instanceID string) (*[]domain.EmailLogEntry, error) {
	query := `
		SELECT ` + emailLogColumns + `
		FROM email_logs
		WHERE instance_id = ` + r.dialect.placeholder(1) + `
		ORDER BY sent_at ASC
	`
	rows, err := r.db.Query(query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.EmailLogEntry
	for rows.Next() {
		var e domain.EmailLogEntry
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.WorkflowID,
			&e.InstanceID,
			&e.StepID,
			&e.Email,
			&e.Subject,
			&e.Status,
			&e.Provider,
			&e.ProviderMessageID,
			&e.ErrorMessage,
			&e.SentAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return &entries, nil
}
