package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/config"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
)

type reminderMeetings interface {
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.Meeting, error)
}

type reminderSectionEnrollments interface {
	ListActiveBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error)
}

// MeetingReminderService notifies active students of meetings starting
// inside the reminder window. Run every half hour with a [30m, 60m)
// window, each meeting is caught exactly once.
type MeetingReminderService struct {
	meetings    reminderMeetings
	enrollments reminderSectionEnrollments
	notifier    studentNotifier
	billing     config.BillingConfig
	logger      *zap.Logger
}

// NewMeetingReminderService constructs the service.
func NewMeetingReminderService(
	meetings reminderMeetings,
	enrollments reminderSectionEnrollments,
	notifier studentNotifier,
	billing config.BillingConfig,
	logger *zap.Logger,
) *MeetingReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingReminderService{
		meetings:    meetings,
		enrollments: enrollments,
		notifier:    notifier,
		billing:     billing,
		logger:      logger,
	}
}

// Run executes one sweep and reports per-meeting outcomes.
func (s *MeetingReminderService) Run(ctx context.Context) (*dto.CronSummary, error) {
	now := time.Now().UTC()
	summary := &dto.CronSummary{Job: "meeting-reminder"}

	upcoming, err := s.meetings.ListStartingBetween(ctx,
		now.Add(s.billing.MeetingReminderLo), now.Add(s.billing.MeetingReminderHi))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming meetings")
	}

	for _, meeting := range upcoming {
		summary.Total++
		if err := s.remind(ctx, meeting, now); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("meeting %s: %v", meeting.ID, err))
			continue
		}
		summary.Processed++
	}

	s.logger.Info("meeting reminder sweep finished",
		zap.Int("total", summary.Total),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed()))
	return summary, nil
}

func (s *MeetingReminderService) remind(ctx context.Context, meeting models.Meeting, now time.Time) error {
	enrollments, err := s.enrollments.ListActiveBySection(ctx, meeting.SectionID)
	if err != nil {
		return fmt.Errorf("list section students: %w", err)
	}

	minutes := int(meeting.ScheduledAt.Sub(now).Minutes())
	title := "Pertemuan segera dimulai"
	body := fmt.Sprintf("Pertemuan %q dimulai dalam %d menit.", meeting.Topic, minutes)

	for _, e := range enrollments {
		if err := s.notifier.NotifyStudent(ctx, e.StudentID, models.NotificationMeetingReminder, title, body, false); err != nil {
			s.logger.Warn("failed to notify student of meeting",
				zap.String("meeting_id", meeting.ID),
				zap.String("enrollment_id", e.ID), zap.Error(err))
		}
	}
	return nil
}
