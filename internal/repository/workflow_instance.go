package repository

import (
	"database/sql"
	"log/slog"

	"github.com/landertag/mailflow/internal/domain"
	"github.com/landertag/mailflow/pkg/mailflow/core"
)

const instanceColumns = ` id, workflow_id, user_id, user_email, status, current_step,
		       metadata, started_at, last_email_sent_at, completed_at, created, modified `

type InstanceRepository struct {
	db      *sql.DB
	dialect Dialect
	clock   core.Clock
}

func NewInstanceRepository(db *sql.DB, dialect Dialect, clock core.Clock) *InstanceRepository {
	return &InstanceRepository{db: db, dialect: dialect, clock: clock}
}

func (r *InstanceRepository) scan(row interface{ Scan(...any) error }) (*domain.WorkflowInstance, error) {
	var inst domain.WorkflowInstance
	err := row.Scan(
		&inst.ID,
		&inst.WorkflowID,
		&inst.UserID,
		&inst.UserEmail,
		&inst.Status,
		&inst.CurrentStep,
		&inst.Metadata,
		&inst.StartedAt,
		&inst.LastEmailSentAt,
		&inst.CompletedAt,
		&inst.Created,
		&inst.Modified,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *InstanceRepository) Save(inst *domain.WorkflowInstance) error {
	query := `INSERT INTO workflow_instances (
		id, workflow_id, user_id, user_email, status, current_step,
		metadata, started_at, last_email_sent_at, completed_at, created, modified
	) VALUES (` +
		r.dialect.placeholder(1) + `, ` + r.dialect.placeholder(2) + `, ` + r.dialect.placeholder(3) + `, ` +
		r.dialect.placeholder(4) + `, ` + r.dialect.placeholder(5) + `, ` + r.dialect.placeholder(6) + `, ` +
		r.dialect.placeholder(7) + `, ` + r.dialect.placeholder(8) + `, ` + r.dialect.placeholder(9) + `, ` +
		r.dialect.placeholder(10) + `, ` + r.dialect.nowFunc(r.clock) + `, ` + r.dialect.nowFunc(r.clock) + `)`

	_, err := r.db.Exec(query,
		inst.ID,
		inst.WorkflowID,
		inst.UserID,
		inst.UserEmail,
		inst.Status,
		inst.CurrentStep,
		inst.Metadata,
		r.dialect.formatDate(inst.StartedAt),
		r.dialect.formatDateNull(inst.LastEmailSentAt),
		r.dialect.formatDateNull(inst.CompletedAt),
	)
	return err
}

func (r *InstanceRepository) FindByID(id string) (*domain.WorkflowInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances WHERE id = ` + r.dialect.placeholder(1) + `
	`
	return r.scan(r.db.QueryRow(query, id))
}

// AdvanceStep moves current_step forward, recording last_email_sent_at when
// the step actually sent (skipped steps advance without touching it).
func (r *InstanceRepository) AdvanceStep(id string, nextStep int, sentAt sql.NullTime) error {
	if sentAt.Valid {
		query := `
			UPDATE workflow_instances
			SET current_step = ` + r.dialect.placeholder(1) + `, last_email_sent_at = ` + r.dialect.placeholder(2) + `, modified = ` + r.dialect.nowFunc(r.clock) + `
			WHERE id = ` + r.dialect.placeholder(3) + `
		`
		_, err := r.db.Exec(query, nextStep, r.dialect.formatDateNull(sentAt), id)
		return err
	}
	query := `
		UPDATE workflow_instances
		SET current_step = ` + r.dialect.placeholder(1) + `, modified = ` + r.dialect.nowFunc(r.clock) + `
		WHERE id = ` + r.dialect.placeholder(2) + `
	`
	_, err := r.db.Exec(query, nextStep, id)
	return err
}

func (r *InstanceRepository) MarkCompleted(id string) error {
	query := `
		UPDATE workflow_instances
		SET status = '` + domain.InstanceStatusCompleted + `', completed_at = ` + r.dialect.nowFunc(r.clock) + `, modified = ` + r.dialect.nowFunc(r.clock) + `
		WHERE id = ` + r.dialect.placeholder(1) + ` AND status = '` + domain.InstanceStatusActive + `'
	`
	_, err := r.db.Exec(query, id)
	return err
}

// MarkCancelled flips an active instance to cancelled. Returns false when the
// instance was already terminal, which makes stop idempotent.
func (r *InstanceRepository) MarkCancelled(id string) (bool, error) {
	query := `
		UPDATE workflow_instances
		SET status = '` + domain.InstanceStatusCancelled + `', completed_at = ` + r.dialect.nowFunc(r.clock) + `, modified = ` + r.dialect.nowFunc(r.clock) + `
		WHERE id = ` + r.dialect.placeholder(1) + ` AND status = '` + domain.InstanceStatusActive + `'
	`
	result, err := r.db.Exec(query, id)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		slog.Error("Failed to read rows affected after cancel", "error", err, "id", id)
		return false, err
	}
	return rowsAffected == 1, nil
}

func (r *InstanceRepository) FindActiveByUser(userID string) (*[]domain.WorkflowInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM workflow_instances
		WHERE user_id = ` + r.dialect.placeholder(1) + ` AND status = '` + domain.InstanceStatusActive + `'
		ORDER BY started_at ASC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []domain.WorkflowInstance
	for rows.Next() {
		inst, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	return &instances, nil
}
