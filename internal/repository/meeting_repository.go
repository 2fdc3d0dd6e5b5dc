package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bimbel-api/internal/models"
)

// MeetingRepository handles persistence of scheduled meetings and their
// attendance placeholders.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository constructs the repository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

const meetingColumns = `id, section_id, tutor_id, topic, scheduled_at, duration_min, status, created_at, updated_at`

// FindByID returns a meeting by its ID.
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	query := fmt.Sprintf("SELECT %s FROM meetings WHERE id = $1", meetingColumns)
	var meeting models.Meeting
	if err := r.db.GetContext(ctx, &meeting, query, id); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// ListByTutorAndDay returns the tutor's non-cancelled meetings scheduled
// inside [dayStart, dayEnd).
func (r *MeetingRepository) ListByTutorAndDay(ctx context.Context, tutorID string, dayStart, dayEnd time.Time) ([]models.Meeting, error) {
	query := fmt.Sprintf(`SELECT %s FROM meetings
        WHERE tutor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 AND status <> $4
        ORDER BY scheduled_at ASC`, meetingColumns)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, tutorID, dayStart, dayEnd, models.MeetingStatusCancelled); err != nil {
		return nil, fmt.Errorf("list tutor meetings: %w", err)
	}
	return meetings, nil
}

// ListStartingBetween returns SCHEDULED meetings starting inside [from, to).
func (r *MeetingRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.Meeting, error) {
	query := fmt.Sprintf(`SELECT %s FROM meetings
        WHERE status = $1 AND scheduled_at >= $2 AND scheduled_at < $3
        ORDER BY scheduled_at ASC`, meetingColumns)
	var meetings []models.Meeting
	if err := r.db.SelectContext(ctx, &meetings, query, models.MeetingStatusScheduled, from, to); err != nil {
		return nil, fmt.Errorf("list upcoming meetings: %w", err)
	}
	return meetings, nil
}

// CreateTx persists a new meeting inside a transaction.
func (r *MeetingRepository) CreateTx(ctx context.Context, q sqlx.ExtContext, meeting *models.Meeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now
	const query = `INSERT INTO meetings (id, section_id, tutor_id, topic, scheduled_at, duration_min, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := q.ExecContext(ctx, query, meeting.ID, meeting.SectionID, meeting.TutorID, meeting.Topic,
		meeting.ScheduledAt, meeting.DurationMin, meeting.Status, meeting.CreatedAt, meeting.UpdatedAt); err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}

// UpdateStatus updates the meeting status.
func (r *MeetingRepository) UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) error {
	const query = `UPDATE meetings SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update meeting status: %w", err)
	}
	return nil
}

// CreateAttendanceTx inserts PENDING attendance placeholders for the given
// enrollments inside the meeting-creation transaction.
func (r *MeetingRepository) CreateAttendanceTx(ctx context.Context, q sqlx.ExtContext, meetingID string, enrollmentIDs []string) error {
	now := time.Now().UTC()
	const query = `INSERT INTO attendances (id, meeting_id, enrollment_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	for _, enrollmentID := range enrollmentIDs {
		if _, err := q.ExecContext(ctx, query, uuid.NewString(), meetingID, enrollmentID,
			models.AttendanceStatusPending, now, now); err != nil {
			return fmt.Errorf("create attendance placeholder: %w", err)
		}
	}
	return nil
}
