package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/database"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
)

type meetingStore interface {
	FindByID(ctx context.Context, id string) (*models.Meeting, error)
	ListByTutorAndDay(ctx context.Context, tutorID string, dayStart, dayEnd time.Time) ([]models.Meeting, error)
	CreateTx(ctx context.Context, q sqlx.ExtContext, meeting *models.Meeting) error
	UpdateStatus(ctx context.Context, id string, status models.MeetingStatus) error
	CreateAttendanceTx(ctx context.Context, q sqlx.ExtContext, meetingID string, enrollmentIDs []string) error
}

type meetingSections interface {
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type meetingTutors interface {
	ListAvailability(ctx context.Context, tutorID string) ([]models.TutorAvailability, error)
}

type meetingEnrollments interface {
	ListActiveBySection(ctx context.Context, sectionID string) ([]models.Enrollment, error)
}

// MeetingService schedules section meetings. A new meeting must sit inside
// one of the tutor's weekly availability windows and must not overlap any
// of the tutor's other meetings that day.
type MeetingService struct {
	meetings    meetingStore
	sections    meetingSections
	tutors      meetingTutors
	enrollments meetingEnrollments
	tx          database.TxRunner
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewMeetingService constructs the service.
func NewMeetingService(
	meetings meetingStore,
	sections meetingSections,
	tutors meetingTutors,
	enrollments meetingEnrollments,
	tx database.TxRunner,
	validate *validator.Validate,
	logger *zap.Logger,
) *MeetingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingService{
		meetings:    meetings,
		sections:    sections,
		tutors:      tutors,
		enrollments: enrollments,
		tx:          tx,
		validate:    validate,
		logger:      logger,
	}
}

// Schedule creates a meeting with PENDING attendance placeholders for
// every active student of the section.
func (s *MeetingService) Schedule(ctx context.Context, req dto.ScheduleMeetingRequest) (*models.Meeting, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	start := req.ScheduledAt
	end := start.Add(time.Duration(req.DurationMin) * time.Minute)

	if err := s.checkAvailability(ctx, section.TutorID, start, end); err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, section.TutorID, start, end); err != nil {
		return nil, err
	}

	active, err := s.enrollments.ListActiveBySection(ctx, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list section students")
	}
	enrollmentIDs := make([]string, len(active))
	for i, e := range active {
		enrollmentIDs[i] = e.ID
	}

	meeting := &models.Meeting{
		SectionID:   req.SectionID,
		TutorID:     section.TutorID,
		Topic:       req.Topic,
		ScheduledAt: start,
		DurationMin: req.DurationMin,
		Status:      models.MeetingStatusScheduled,
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.meetings.CreateTx(ctx, q, meeting); err != nil {
			return err
		}
		return s.meetings.CreateAttendanceTx(ctx, q, meeting.ID, enrollmentIDs)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create meeting")
	}

	s.logger.Info("meeting scheduled",
		zap.String("meeting_id", meeting.ID),
		zap.String("section_id", req.SectionID),
		zap.Time("scheduled_at", start),
		zap.Int("attendees", len(enrollmentIDs)))
	return meeting, nil
}

// Get returns one meeting.
func (s *MeetingService) Get(ctx context.Context, id string) (*models.Meeting, error) {
	meeting, err := s.meetings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "meeting not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load meeting")
	}
	return meeting, nil
}

// Cancel marks a scheduled meeting as cancelled.
func (s *MeetingService) Cancel(ctx context.Context, id string) error {
	meeting, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if meeting.Status != models.MeetingStatusScheduled {
		return appErrors.Clone(appErrors.ErrValidation, "only scheduled meetings can be cancelled")
	}
	if err := s.meetings.UpdateStatus(ctx, id, models.MeetingStatusCancelled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel meeting")
	}
	return nil
}

func (s *MeetingService) checkAvailability(ctx context.Context, tutorID string, start, end time.Time) error {
	windows, err := s.tutors.ListAvailability(ctx, tutorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor availability")
	}

	day := int(start.Weekday())
	startMin := start.Hour()*60 + start.Minute()
	endMin := startMin + int(end.Sub(start).Minutes())

	for _, w := range windows {
		if w.DayOfWeek == day && w.Covers(startMin, endMin) {
			return nil
		}
	}
	return appErrors.ErrOutsideAvailability
}

func (s *MeetingService) checkConflicts(ctx context.Context, tutorID string, start, end time.Time) error {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	sameDay, err := s.meetings.ListByTutorAndDay(ctx, tutorID, dayStart, dayEnd)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutor meetings")
	}

	for _, existing := range sameDay {
		if intervalsOverlap(start, end, existing.ScheduledAt, existing.EndsAt()) {
			return appErrors.Clone(appErrors.ErrMeetingConflict,
				fmt.Sprintf("jadwal bentrok dengan pertemuan pukul %s", existing.ScheduledAt.Format("15:04")))
		}
	}
	return nil
}

// intervalsOverlap reports whether [aStart, aEnd) and [bStart, bEnd)
// intersect: either interval starts inside the other, which also covers
// full containment.
func intervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	aStartsInside := !aStart.Before(bStart) && aStart.Before(bEnd)
	bStartsInside := !bStart.Before(aStart) && bStart.Before(aEnd)
	return aStartsInside || bStartsInside
}
