package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bimbel-api/internal/models"
)

func TestSectionRepositoryAdjustEnrollmentsTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET current_enrollments = GREATEST(current_enrollments + $2, 0)")).
		WithArgs("sec-1", -1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AdjustEnrollmentsTx(context.Background(), db, "sec-1", -1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListDrift(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"section_id", "program_id", "counter", "status", "max_students", "actual"}).
		AddRow("sec-1", "prg-1", 9, models.SectionStatusFull, 10, 7)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY s.id, s.program_id, s.current_enrollments, s.status, p.max_students_per_section")).
		WillReturnRows(rows)

	drift, err := repo.ListDrift(context.Background())
	require.NoError(t, err)
	require.Len(t, drift, 1)
	require.Equal(t, 9, drift[0].Counter)
	require.Equal(t, 7, drift[0].Actual)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryReconcileTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET current_enrollments = $2, status = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("sec-1", 7, models.SectionStatusActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ReconcileTx(context.Background(), db, "sec-1", 7, models.SectionStatusActive)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
