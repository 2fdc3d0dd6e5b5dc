package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bimbel-api/internal/models"
)

func TestWaitlistRepositoryFindByStudentAndProgramMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM waitlist_entries WHERE student_id = $1 AND program_id = $2")).
		WithArgs("std-1", "prg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	entry, err := repo.FindByStudentAndProgram(context.Background(), "std-1", "prg-1")
	require.NoError(t, err)
	require.Nil(t, entry)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryListByProgram(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "student_id", "program_id", "status", "created_at", "updated_at"}).
		AddRow("wl-1", "std-1", "prg-1", "WAITING", now, now).
		AddRow("wl-2", "std-2", "prg-1", "APPROVED", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM waitlist_entries WHERE program_id = $1 ORDER BY created_at ASC")).
		WithArgs("prg-1").
		WillReturnRows(rows)

	entries, err := repo.ListByProgram(context.Background(), "prg-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, models.WaitlistStatusWaiting, entries[0].Status)
	require.Equal(t, "std-2", entries[1].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryExpireApprovedTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE waitlist_entries SET status = $3")).
		WithArgs("std-1", "prg-1", models.WaitlistStatusExpired, sqlmock.AnyArg(), models.WaitlistStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ExpireApprovedTx(context.Background(), db, "std-1", "prg-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
