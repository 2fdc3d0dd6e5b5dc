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

func TestMeetingRepositoryListByTutorAndDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows := sqlmock.NewRows([]string{
		"id", "section_id", "tutor_id", "topic", "scheduled_at", "duration_min", "status", "created_at", "updated_at",
	}).AddRow("mtg-1", "sec-1", "tut-1", "Aljabar", dayStart.Add(10*time.Hour), 60, models.MeetingStatusScheduled, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tutor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 AND status <> $4")).
		WithArgs("tut-1", dayStart, dayEnd, models.MeetingStatusCancelled).
		WillReturnRows(rows)

	meetings, err := repo.ListByTutorAndDay(context.Background(), "tut-1", dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	require.Equal(t, "mtg-1", meetings[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeetingRepositoryCreateWithAttendanceTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMeetingRepository(db)

	meeting := &models.Meeting{
		SectionID:   "sec-1",
		TutorID:     "tut-1",
		Topic:       "Trigonometri",
		ScheduledAt: time.Now().Add(48 * time.Hour),
		DurationMin: 90,
		Status:      models.MeetingStatusScheduled,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO meetings")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendances")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateTx(context.Background(), db, meeting))
	require.NotEmpty(t, meeting.ID)
	require.NoError(t, repo.CreateAttendanceTx(context.Background(), db, meeting.ID, []string{"enr-1", "enr-2"}))
	require.NoError(t, mock.ExpectationsWereMet())
}
