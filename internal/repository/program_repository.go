package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bimbel-api/internal/models"
)

// ProgramRepository handles persistence of program templates.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs the repository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

const programColumns = `id, name, description, price, duration_days, grace_days, meetings_per_period,
        max_students_per_section, active, created_at, updated_at`

// FindByID returns a program by its ID.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.Program, error) {
	query := fmt.Sprintf("SELECT %s FROM programs WHERE id = $1", programColumns)
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// FindBySection returns the program owning the given section.
func (r *ProgramRepository) FindBySection(ctx context.Context, sectionID string) (*models.Program, error) {
	const query = `SELECT p.id, p.name, p.description, p.price, p.duration_days, p.grace_days,
        p.meetings_per_period, p.max_students_per_section, p.active, p.created_at, p.updated_at
        FROM programs p JOIN sections s ON s.program_id = p.id WHERE s.id = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, sectionID); err != nil {
		return nil, err
	}
	return &program, nil
}
