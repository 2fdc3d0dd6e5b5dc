package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bimbel-api/internal/models"
)

// SectionRepository handles persistence of sections and their maintained
// enrollment counters.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionDetailQuery = `SELECT s.id, s.program_id, s.tutor_id, s.label, s.status, s.current_enrollments,
        s.created_at, s.updated_at, p.name AS program_name, t.full_name AS tutor_name,
        p.max_students_per_section AS max_students
        FROM sections s
        JOIN programs p ON p.id = s.program_id
        JOIN tutors t ON t.id = s.tutor_id`

// FindByID returns a section with program and tutor context.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := sectionDetailQuery + " WHERE s.id = $1"
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns sections filtered by the provided criteria.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("s.program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("s.tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY s.label ASC LIMIT %d OFFSET %d", sectionDetailQuery, clause, size, offset)
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM sections s" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// AdjustEnrollmentsTx shifts the maintained counter by delta inside a
// transaction, clamped at zero.
func (r *SectionRepository) AdjustEnrollmentsTx(ctx context.Context, q sqlx.ExtContext, id string, delta int) error {
	const query = `UPDATE sections
        SET current_enrollments = GREATEST(current_enrollments + $2, 0), updated_at = $3
        WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("adjust section enrollments: %w", err)
	}
	return nil
}

// UpdateStatusTx flips the section status inside a transaction.
func (r *SectionRepository) UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.SectionStatus) error {
	const query = `UPDATE sections SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update section status: %w", err)
	}
	return nil
}

// SectionDrift describes a section whose maintained counter disagrees with
// the true count of open enrollments.
type SectionDrift struct {
	SectionID   string               `db:"section_id"`
	ProgramID   string               `db:"program_id"`
	Counter     int                  `db:"counter"`
	Actual      int                  `db:"actual"`
	Status      models.SectionStatus `db:"status"`
	MaxStudents int                  `db:"max_students"`
}

// ListDrift returns sections whose counter has drifted from the true count.
func (r *SectionRepository) ListDrift(ctx context.Context) ([]SectionDrift, error) {
	const query = `SELECT s.id AS section_id, s.program_id, s.current_enrollments AS counter, s.status,
        p.max_students_per_section AS max_students,
        COUNT(e.id) FILTER (WHERE e.status NOT IN ('SLOT_RELEASED', 'CANCELLED')) AS actual
        FROM sections s
        JOIN programs p ON p.id = s.program_id
        LEFT JOIN enrollments e ON e.section_id = s.id
        GROUP BY s.id, s.program_id, s.current_enrollments, s.status, p.max_students_per_section
        HAVING s.current_enrollments <> COUNT(e.id) FILTER (WHERE e.status NOT IN ('SLOT_RELEASED', 'CANCELLED'))`
	var drift []SectionDrift
	if err := r.db.SelectContext(ctx, &drift, query); err != nil {
		return nil, fmt.Errorf("list section drift: %w", err)
	}
	return drift, nil
}

// ReconcileTx rewrites the counter and status to match the true count.
func (r *SectionRepository) ReconcileTx(ctx context.Context, q sqlx.ExtContext, id string, actual int, status models.SectionStatus) error {
	const query = `UPDATE sections SET current_enrollments = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, actual, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("reconcile section: %w", err)
	}
	return nil
}
