package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/config"
)

type fakeReminderMeetings struct {
	upcoming []models.Meeting
	from, to time.Time
}

func (f *fakeReminderMeetings) ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.Meeting, error) {
	f.from, f.to = from, to
	return f.upcoming, nil
}

type fakeSectionEnrollments struct {
	bySection map[string][]models.Enrollment
	err       error
}

func (f *fakeSectionEnrollments) ListActiveBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bySection[sectionID], nil
}

func TestMeetingReminderServiceNotifiesSectionStudents(t *testing.T) {
	start := time.Now().UTC().Add(45 * time.Minute)
	meetings := &fakeReminderMeetings{upcoming: []models.Meeting{
		{ID: "mtg-1", SectionID: "sec-1", Topic: "Integral tentu", ScheduledAt: start, DurationMin: 90},
	}}
	enrollments := &fakeSectionEnrollments{bySection: map[string][]models.Enrollment{
		"sec-1": {
			{ID: "enr-1", StudentID: "std-1", Status: models.EnrollmentStatusActive},
			{ID: "enr-2", StudentID: "std-2", Status: models.EnrollmentStatusActive},
		},
	}}
	notifier := &fakeNotifier{}

	billing := config.BillingConfig{
		MeetingReminderLo: 30 * time.Minute,
		MeetingReminderHi: 60 * time.Minute,
	}
	svc := NewMeetingReminderService(meetings, enrollments, notifier, billing, zap.NewNop())

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "meeting-reminder", summary.Job)
	require.Equal(t, 1, summary.Total)
	require.Equal(t, 1, summary.Processed)
	require.Empty(t, summary.Errors)

	// The sweep window is anchored on now, not on the meeting itself.
	require.WithinDuration(t, time.Now().UTC().Add(billing.MeetingReminderLo), meetings.from, 2*time.Second)
	require.WithinDuration(t, time.Now().UTC().Add(billing.MeetingReminderHi), meetings.to, 2*time.Second)

	require.Len(t, notifier.calls, 2)
	require.Equal(t, "std-1", notifier.calls[0].StudentID)
	require.Equal(t, models.NotificationMeetingReminder, notifier.calls[0].Type)
	require.Contains(t, notifier.calls[0].Body, "Integral tentu")
	require.False(t, notifier.calls[0].Email)
}

func TestMeetingReminderServiceRecordsPerMeetingFailures(t *testing.T) {
	start := time.Now().UTC().Add(40 * time.Minute)
	meetings := &fakeReminderMeetings{upcoming: []models.Meeting{
		{ID: "mtg-1", SectionID: "sec-1", Topic: "Stoikiometri", ScheduledAt: start, DurationMin: 60},
	}}
	enrollments := &fakeSectionEnrollments{err: errors.New("db down")}
	notifier := &fakeNotifier{}

	billing := config.BillingConfig{
		MeetingReminderLo: 30 * time.Minute,
		MeetingReminderHi: 60 * time.Minute,
	}
	svc := NewMeetingReminderService(meetings, enrollments, notifier, billing, zap.NewNop())

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Total)
	require.Equal(t, 0, summary.Processed)
	require.Len(t, summary.Errors, 1)
	require.Contains(t, summary.Errors[0], "mtg-1")
	require.Empty(t, notifier.calls)
}
