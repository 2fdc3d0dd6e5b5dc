package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bimbel-api/internal/models"
)

// WaitlistRepository handles persistence of waiting-list entries.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

const waitlistColumns = `id, student_id, program_id, status, created_at, updated_at`

// FindByID returns a waiting-list entry by its ID.
func (r *WaitlistRepository) FindByID(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM waitlist_entries WHERE id = $1", waitlistColumns)
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByStudentAndProgram returns the entry for the unique (student,
// program) pair, or nil when none exists.
func (r *WaitlistRepository) FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.WaitlistEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM waitlist_entries WHERE student_id = $1 AND program_id = $2", waitlistColumns)
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, studentID, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find waitlist entry: %w", err)
	}
	return &entry, nil
}

// Create persists a new waiting-list entry. The unique (student, program)
// constraint rejects duplicates at the database level.
func (r *WaitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	const query = `INSERT INTO waitlist_entries (id, student_id, program_id, status, created_at, updated_at)
        VALUES (:id, :student_id, :program_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

// UpdateStatusTx updates the entry status inside a transaction.
func (r *WaitlistRepository) UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.WaitlistStatus) error {
	const query = `UPDATE waitlist_entries SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update waitlist status: %w", err)
	}
	return nil
}

// ExpireApprovedTx marks the APPROVED entry for the student in the program
// as EXPIRED, if one exists.
func (r *WaitlistRepository) ExpireApprovedTx(ctx context.Context, q sqlx.ExtContext, studentID, programID string) error {
	const query = `UPDATE waitlist_entries SET status = $3, updated_at = $4
        WHERE student_id = $1 AND program_id = $2 AND status = $5`
	if _, err := q.ExecContext(ctx, query, studentID, programID,
		models.WaitlistStatusExpired, time.Now().UTC(), models.WaitlistStatusApproved); err != nil {
		return fmt.Errorf("expire approved waitlist entry: %w", err)
	}
	return nil
}

// MarkEnrolledTx promotes the APPROVED entry for the student in the
// program to ENROLLED, if one exists.
func (r *WaitlistRepository) MarkEnrolledTx(ctx context.Context, q sqlx.ExtContext, studentID, programID string) error {
	const query = `UPDATE waitlist_entries SET status = $3, updated_at = $4
        WHERE student_id = $1 AND program_id = $2 AND status = $5`
	if _, err := q.ExecContext(ctx, query, studentID, programID,
		models.WaitlistStatusEnrolled, time.Now().UTC(), models.WaitlistStatusApproved); err != nil {
		return fmt.Errorf("mark waitlist entry enrolled: %w", err)
	}
	return nil
}

// ListByProgram returns entries for a program in arrival order.
func (r *WaitlistRepository) ListByProgram(ctx context.Context, programID string) ([]models.WaitlistEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM waitlist_entries WHERE program_id = $1 ORDER BY created_at ASC", waitlistColumns)
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, programID); err != nil {
		return nil, fmt.Errorf("list waitlist entries: %w", err)
	}
	return entries, nil
}
