package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
)

type fakeMeetingStore struct {
	sameDay     []models.Meeting
	created     *models.Meeting
	attendance  []string
	statusCalls map[string]models.MeetingStatus
}

func (f *fakeMeetingStore) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	if f.created != nil && f.created.ID == id {
		return f.created, nil
	}
	for i := range f.sameDay {
		if f.sameDay[i].ID == id {
			return &f.sameDay[i], nil
		}
	}
	return nil, context.Canceled
}

func (f *fakeMeetingStore) ListByTutorAndDay(ctx context.Context, tutorID string, dayStart, dayEnd time.Time) ([]models.Meeting, error) {
	return f.sameDay, nil
}

func (f *fakeMeetingStore) CreateTx(ctx context.Context, q sqlx.ExtContext, meeting *models.Meeting) error {
	meeting.ID = "mtg-new"
	f.created = meeting
	return nil
}

func (f *fakeMeetingStore) UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) error {
	if f.statusCalls == nil {
		f.statusCalls = map[string]models.MeetingStatus{}
	}
	f.statusCalls[id] = status
	return nil
}

func (f *fakeMeetingStore) CreateAttendanceTx(ctx context.Context, q sqlx.ExtContext, meetingID string, enrollmentIDs []string) error {
	f.attendance = append(f.attendance, enrollmentIDs...)
	return nil
}

type fakeMeetingSections struct {
	section *models.SectionDetail
}

func (f *fakeMeetingSections) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	return f.section, nil
}

type fakeMeetingTutors struct {
	windows []models.TutorAvailability
}

func (f *fakeMeetingTutors) ListAvailability(ctx context.Context, tutorID string) ([]models.TutorAvailability, error) {
	return f.windows, nil
}

type fakeMeetingEnrollments struct {
	active []models.Enrollment
}

func (f *fakeMeetingEnrollments) ListActiveBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	return f.active, nil
}

// nextWeekday returns the upcoming occurrence of the weekday at the given
// local hour.
func nextWeekday(day time.Weekday, hour int) time.Time {
	t := time.Now().AddDate(0, 0, 1)
	for t.Weekday() != day {
		t = t.AddDate(0, 0, 1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC)
}

func newMeetingFixture() (*MeetingService, *fakeMeetingStore, *fakeMeetingTutors, *fakeMeetingEnrollments) {
	meetings := &fakeMeetingStore{}
	sections := &fakeMeetingSections{section: &models.SectionDetail{
		Section: models.Section{
			ID:        "sec-1",
			ProgramID: "prg-1",
			TutorID:   "tut-1",
			Status:    models.SectionStatusActive,
		},
		MaxStudents: 10,
	}}
	// Monday 08:00 through 17:00.
	tutors := &fakeMeetingTutors{windows: []models.TutorAvailability{
		{TutorID: "tut-1", DayOfWeek: int(time.Monday), StartMin: 8 * 60, EndMin: 17 * 60},
	}}
	enrollments := &fakeMeetingEnrollments{active: []models.Enrollment{
		{ID: "enr-1", StudentID: "std-1", Status: models.EnrollmentStatusActive},
		{ID: "enr-2", StudentID: "std-2", Status: models.EnrollmentStatusActive},
	}}
	tx := &fakeTx{}
	svc := NewMeetingService(meetings, sections, tutors, enrollments, tx, validator.New(), zap.NewNop())
	return svc, meetings, tutors, enrollments
}

func TestMeetingServiceSchedulesWithAttendance(t *testing.T) {
	svc, meetings, _, _ := newMeetingFixture()

	start := nextWeekday(time.Monday, 10)
	meeting, err := svc.Schedule(context.Background(), dto.ScheduleMeetingRequest{
		SectionID:   "sec-1",
		Topic:       "Persamaan kuadrat",
		ScheduledAt: start,
		DurationMin: 90,
	})
	require.NoError(t, err)
	require.Equal(t, "mtg-new", meeting.ID)
	require.Equal(t, "tut-1", meeting.TutorID)
	require.Equal(t, models.MeetingStatusScheduled, meeting.Status)
	require.Equal(t, []string{"enr-1", "enr-2"}, meetings.attendance)
}

func TestMeetingServiceRejectsOutsideAvailability(t *testing.T) {
	svc, meetings, _, _ := newMeetingFixture()

	// 16:30 + 90min runs past the 17:00 window end.
	start := nextWeekday(time.Monday, 16).Add(30 * time.Minute)
	_, err := svc.Schedule(context.Background(), dto.ScheduleMeetingRequest{
		SectionID:   "sec-1",
		Topic:       "Trigonometri",
		ScheduledAt: start,
		DurationMin: 90,
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrOutsideAvailability.Code, appErrors.FromError(err).Code)
	require.Nil(t, meetings.created)
}

func TestMeetingServiceRejectsWrongDay(t *testing.T) {
	svc, _, _, _ := newMeetingFixture()

	start := nextWeekday(time.Tuesday, 10)
	_, err := svc.Schedule(context.Background(), dto.ScheduleMeetingRequest{
		SectionID:   "sec-1",
		Topic:       "Trigonometri",
		ScheduledAt: start,
		DurationMin: 60,
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrOutsideAvailability.Code, appErrors.FromError(err).Code)
}

func TestMeetingServiceRejectsOverlap(t *testing.T) {
	svc, meetings, _, _ := newMeetingFixture()

	existingStart := nextWeekday(time.Monday, 10)
	meetings.sameDay = []models.Meeting{{
		ID:          "mtg-existing",
		SectionID:   "sec-2",
		TutorID:     "tut-1",
		ScheduledAt: existingStart,
		DurationMin: 60,
		Status:      models.MeetingStatusScheduled,
	}}

	cases := []struct {
		name  string
		start time.Time
		min   int
	}{
		{"new starts inside existing", existingStart.Add(30 * time.Minute), 60},
		{"existing starts inside new", existingStart.Add(-30 * time.Minute), 60},
		{"new contains existing", existingStart.Add(-30 * time.Minute), 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Schedule(context.Background(), dto.ScheduleMeetingRequest{
				SectionID:   "sec-1",
				Topic:       "Bentrok",
				ScheduledAt: tc.start,
				DurationMin: tc.min,
			})
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			require.Equal(t, appErrors.ErrMeetingConflict.Code, appErr.Code)
			require.Contains(t, appErr.Message, existingStart.Format("15:04"))
		})
	}
}

func TestMeetingServiceAllowsAdjacentMeetings(t *testing.T) {
	svc, meetings, _, _ := newMeetingFixture()

	existingStart := nextWeekday(time.Monday, 10)
	meetings.sameDay = []models.Meeting{{
		ID:          "mtg-existing",
		TutorID:     "tut-1",
		ScheduledAt: existingStart,
		DurationMin: 60,
		Status:      models.MeetingStatusScheduled,
	}}

	// Back to back is not a conflict: intervals are half-open.
	_, err := svc.Schedule(context.Background(), dto.ScheduleMeetingRequest{
		SectionID:   "sec-1",
		Topic:       "Sesi lanjutan",
		ScheduledAt: existingStart.Add(time.Hour),
		DurationMin: 60,
	})
	require.NoError(t, err)
}
