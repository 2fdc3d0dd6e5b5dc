package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bimbel-api/internal/models"
)

// TutorRepository handles persistence of tutors and their weekly
// availability windows.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository constructs the repository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// ListAvailability returns the tutor's weekly teaching windows.
func (r *TutorRepository) ListAvailability(ctx context.Context, tutorID string) ([]models.TutorAvailability, error) {
	const query = `SELECT id, tutor_id, day_of_week, start_min, end_min
        FROM tutor_availabilities WHERE tutor_id = $1 ORDER BY day_of_week, start_min`
	var windows []models.TutorAvailability
	if err := r.db.SelectContext(ctx, &windows, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor availability: %w", err)
	}
	return windows, nil
}
