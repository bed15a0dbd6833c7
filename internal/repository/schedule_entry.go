package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/landertag/mailflow/internal/domain"
	"github.com/landertag/mailflow/pkg/mailflow/core"
)

const scheduleColumns = ` id, instance_id, step_index, scheduled_for, status, sent_at, created, modified `

type ScheduleRepository struct {
	db      *sql.DB
	dialect Dialect
	clock   core.Clock
}

func NewScheduleRepository(db *sql.DB, dialect Dialect, clock core.Clock) *ScheduleRepository {
	return &ScheduleRepository{db: db, dialect: dialect, clock: clock}
}

func (r *ScheduleRepository) scan(row interface{ Scan(...any) error }) (*domain.ScheduleEntry, error) {
	var e domain.ScheduleEntry
	err := row.Scan(
		&e.ID,
		&e.InstanceID,
		&e.StepIndex,
		&e.ScheduledFor,
		&e.Status,
		&e.SentAt,
		&e.Created,
		&e.Modified,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ScheduleRepository) Save(e *domain.ScheduleEntry) error {
	query := `INSERT INTO email_schedules (
		id, instance_id, step_index, scheduled_for, status, sent_at, created, modified
	) VALUES (` +
		r.dialect.placeholder(1) + `, ` + r.dialect.placeholder(2) + `, ` + r.dialect.placeholder(3) + `, ` +
		r.dialect.placeholder(4) + `, ` + r.dialect.placeholder(5) + `, ` + r.dialect.placeholder(6) + `, ` +
		r.dialect.nowFunc(r.clock) + `, ` + r.dialect.nowFunc(r.clock) + `)`

	_, err := r.db.Exec(query,
		e.ID,
		e.InstanceID,
		e.StepIndex,
		r.dialect.formatDate(e.ScheduledFor),
		e.Status,
		r.dialect.formatDateNull(e.SentAt),
	)
	return err
}

// FindDue returns pending entries whose scheduled_for has passed, oldest
// first, bounded so one processor invocation does bounded work.
func (r *ScheduleRepository) FindDue(limit int) (*[]domain.ScheduleEntry, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM email_schedules
		WHERE status = '` + domain.ScheduleStatusPending + `'
		  AND ` + r.dialect.dateDue("scheduled_for", r.clock) + `
		ORDER BY scheduled_for ASC
		LIMIT ` + r.dialect.placeholder(1) + `
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ScheduleEntry
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return &entries, nil
}

// Claim flips pending -> processing conditioned on the modified timestamp the
// caller read. Exactly one of two overlapping processor runs wins the row.
func (r *ScheduleRepository) Claim(id string, modified time.Time) bool {
	query := `
		UPDATE email_schedules
		SET status = '` + domain.ScheduleStatusProcessing + `', modified = ` + r.dialect.nowFunc(r.clock) + `
		WHERE id = ` + r.dialect.placeholder(1) + ` AND status = '` + domain.ScheduleStatusPending + `' AND modified = ` + r.dialect.placeholder(2) + `
	`
	result, err := r.db.Exec(query, id, r.dialect.formatDate(modified))
	if err != nil {
		slog.Error("Failed to claim schedule entry", "error", err, "id", id)
		return false
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return rowsAffected == 1
}

// MarkSent finalizes a claimed entry. The entry's job was to trigger the
// attempt; delivery failures live in email_logs, not here.
func (r *ScheduleRepository) MarkSent(id string) error {
	query := `
		UPDATE email_schedules
		SET status = '` + domain.ScheduleStatusSent + `', sent_at = ` + r.dialect.nowFunc(r.clock) + `, modified = ` + r.dialect.nowFunc(r.clock) + `
		WHERE id = ` + r.dialect.placeholder(1) + `
	`
	_, err := r.db.Exec(query, id)
	return err
}

func (r *ScheduleRepository) CancelPendingByInstance(instanceID string) (int64, error) {
	query := `
		UPDATE email_schedules
		SET status = '` + domain.ScheduleStatusCancelled + `', modified = ` + r.dialect.nowFunc(r.clock) + `
		WHERE instance_id = ` + r.dialect.placeholder(1) + ` AND status = '` + domain.ScheduleStatusPending + `'
	`
	result, err := r.db.Exec(query, instanceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// HasPendingForStep guards the at-most-one-pending-entry-per-step invariant
// before an insert.
func (r *ScheduleRepository) HasPendingForStep(instanceID string, stepIndex int) (bool, error) {
	query := `
		SELECT COUNT(1) FROM email_schedules
		WHERE instance_id = ` + r.dialect.placeholder(1) + ` AND step_index = ` + r.dialect.placeholder(2) + ` AND status = '` + domain.ScheduleStatusPending + `'
	`
	var count int
	if err := r.db.QueryRow(query, instanceID, stepIndex).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ScheduleRepository) FindByInstance(instanceID string) (*[]domain.ScheduleEntry, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM email_schedules
		WHERE instance_id = ` + r.dialect.placeholder(1) + `
		ORDER BY step_index ASC
	`
	rows, err := r.db.Query(query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ScheduleEntry
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return &entries, nil
}
