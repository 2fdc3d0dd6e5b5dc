package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bimbel-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, section_id, status, start_date, expiry_date, grace_expiry_date,
        meetings_total, meetings_attended, meetings_remaining, created_at, updated_at`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students st ON st.id = e.student_id
LEFT JOIN sections sec ON sec.id = e.section_id
LEFT JOIN programs p ON p.id = sec.program_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "e.created_at",
		"expiry_date":  "e.expiry_date",
		"student_name": "st.full_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.section_id, e.status, e.start_date, e.expiry_date,
        e.grace_expiry_date, e.meetings_total, e.meetings_attended, e.meetings_remaining, e.created_at, e.updated_at,
        st.full_name AS student_name, st.email AS student_email, sec.label AS section_label, p.name AS program_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student and section context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.status, e.start_date, e.expiry_date,
        e.grace_expiry_date, e.meetings_total, e.meetings_attended, e.meetings_remaining, e.created_at, e.updated_at,
        st.full_name AS student_name, st.email AS student_email, sec.label AS section_label, p.name AS program_name
        FROM enrollments e
        LEFT JOIN students st ON st.id = e.student_id
        LEFT JOIN sections sec ON sec.id = e.section_id
        LEFT JOIN programs p ON p.id = sec.program_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsOpen checks whether a non-terminal enrollment already exists for
// the student in the section.
func (r *EnrollmentRepository) ExistsOpen(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments
        WHERE student_id = $1 AND section_id = $2 AND status NOT IN ($3, $4) LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, query, studentID, sectionID,
		models.EnrollmentStatusSlotReleased, models.EnrollmentStatusCancelled)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open enrollment: %w", err)
	}
	return true, nil
}

// CreateTx persists a new enrollment inside a transaction.
func (r *EnrollmentRepository) CreateTx(ctx context.Context, q sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, section_id, status, start_date, expiry_date,
        grace_expiry_date, meetings_total, meetings_attended, meetings_remaining, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := q.ExecContext(ctx, query, enrollment.ID, enrollment.StudentID, enrollment.SectionID,
		enrollment.Status, enrollment.StartDate, enrollment.ExpiryDate, enrollment.GraceExpiryDate,
		enrollment.MeetingsTotal, enrollment.MeetingsAttended, enrollment.MeetingsRemain,
		enrollment.CreatedAt, enrollment.UpdatedAt); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatusTx updates the enrollment status inside a transaction.
func (r *EnrollmentRepository) UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// ActivateTx transitions a PAID enrollment to ACTIVE with its subscription
// window and meeting quota.
func (r *EnrollmentRepository) ActivateTx(ctx context.Context, q sqlx.ExtContext, id string, start, expiry, grace time.Time, meetings int) error {
	const query = `UPDATE enrollments
        SET status = $2, start_date = $3, expiry_date = $4, grace_expiry_date = $5,
            meetings_total = $6, meetings_remaining = $6, updated_at = $7
        WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, models.EnrollmentStatusActive, start, expiry, grace, meetings, time.Now().UTC()); err != nil {
		return fmt.Errorf("activate enrollment: %w", err)
	}
	return nil
}

// ListExpiredActive returns ACTIVE enrollments whose expiry date has passed.
func (r *EnrollmentRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE status = $1 AND expiry_date < $2`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, models.EnrollmentStatusActive, now); err != nil {
		return nil, fmt.Errorf("list expired enrollments: %w", err)
	}
	return enrollments, nil
}

// ListGraceExpired returns EXPIRED enrollments whose grace window has passed.
func (r *EnrollmentRepository) ListGraceExpired(ctx context.Context, now time.Time) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE status = $1 AND grace_expiry_date < $2`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, models.EnrollmentStatusExpired, now); err != nil {
		return nil, fmt.Errorf("list grace-expired enrollments: %w", err)
	}
	return enrollments, nil
}

// ListExpiringActive returns ACTIVE enrollments expiring inside [from, to),
// with the context needed to build a renewal invoice.
func (r *EnrollmentRepository) ListExpiringActive(ctx context.Context, from, to time.Time) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.status, e.start_date, e.expiry_date,
        e.grace_expiry_date, e.meetings_total, e.meetings_attended, e.meetings_remaining, e.created_at, e.updated_at,
        st.full_name AS student_name, st.email AS student_email, sec.label AS section_label, p.name AS program_name
        FROM enrollments e
        JOIN students st ON st.id = e.student_id
        JOIN sections sec ON sec.id = e.section_id
        JOIN programs p ON p.id = sec.program_id
        WHERE e.status = $1 AND e.expiry_date >= $2 AND e.expiry_date < $3`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, models.EnrollmentStatusActive, from, to); err != nil {
		return nil, fmt.Errorf("list expiring enrollments: %w", err)
	}
	return enrollments, nil
}

// ListActiveBySection returns ACTIVE enrollments for a section.
func (r *EnrollmentRepository) ListActiveBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE section_id = $1 AND status = $2`, enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, sectionID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list section enrollments: %w", err)
	}
	return enrollments, nil
}
