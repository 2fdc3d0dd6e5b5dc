package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/database"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
)

type enrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsOpen(ctx context.Context, studentID, sectionID string) (bool, error)
	CreateTx(ctx context.Context, q sqlx.ExtContext, enrollment *models.Enrollment) error
	ActivateTx(ctx context.Context, q sqlx.ExtContext, id string, start, expiry, grace time.Time, meetings int) error
}

type enrollSections interface {
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	AdjustEnrollmentsTx(ctx context.Context, q sqlx.ExtContext, id string, delta int) error
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.SectionStatus) error
}

type enrollWaitlist interface {
	FindByID(ctx context.Context, id string) (*models.WaitlistEntry, error)
	FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.WaitlistEntry, error)
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.WaitlistStatus) error
	MarkEnrolledTx(ctx context.Context, q sqlx.ExtContext, studentID, programID string) error
	ListByProgram(ctx context.Context, programID string) ([]models.WaitlistEntry, error)
}

type enrollPrograms interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
	FindBySection(ctx context.Context, sectionID string) (*models.Program, error)
}

// EnrollmentService manages the enrollment lifecycle up to activation.
// Seat-count changes always ride in the same transaction as the
// enrollment row they belong to.
type EnrollmentService struct {
	enrollments enrollmentStore
	sections    enrollSections
	waitlist    enrollWaitlist
	programs    enrollPrograms
	cache       availabilityCache
	tx          database.TxRunner
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(
	enrollments enrollmentStore,
	sections enrollSections,
	waitlist enrollWaitlist,
	programs enrollPrograms,
	cache availabilityCache,
	tx database.TxRunner,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		sections:    sections,
		waitlist:    waitlist,
		programs:    programs,
		cache:       cache,
		tx:          tx,
		validate:    validate,
		logger:      logger,
	}
}

// List returns enrollments matching the filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one enrollment with its student and section context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.enrollments.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Enroll creates a PENDING enrollment for a student directly into a
// section, claiming one seat.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return s.createEnrollment(ctx, req.StudentID, req.SectionID, nil)
}

// ApproveWaitlist converts a WAITING entry into a PENDING enrollment in
// the chosen section of the entry's program. The entry moves to APPROVED
// and is promoted to ENROLLED once the enrollment activates.
func (s *EnrollmentService) ApproveWaitlist(ctx context.Context, req dto.ApproveWaitlistRequest) (*models.Enrollment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	entry, err := s.waitlist.FindByID(ctx, req.WaitlistID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "waiting-list entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waiting-list entry")
	}
	if entry.Status != models.WaitlistStatusWaiting {
		return nil, appErrors.Clone(appErrors.ErrValidation, "waiting-list entry already processed")
	}

	return s.createEnrollment(ctx, entry.StudentID, req.SectionID, entry)
}

func (s *EnrollmentService) createEnrollment(ctx context.Context, studentID, sectionID string, entry *models.WaitlistEntry) (*models.Enrollment, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	if entry != nil && entry.ProgramID != section.ProgramID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section does not belong to the entry's program")
	}
	if section.Status == models.SectionStatusClosed {
		return nil, appErrors.Clone(appErrors.ErrSectionFull, "kelas sudah ditutup")
	}
	if section.Status == models.SectionStatusFull || section.CurrentEnrollments >= section.MaxStudents {
		return nil, appErrors.ErrSectionFull
	}

	exists, err := s.enrollments.ExistsOpen(ctx, studentID, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return nil, appErrors.ErrAlreadyEnrolled
	}

	enrollment := &models.Enrollment{
		StudentID: studentID,
		SectionID: &sectionID,
		Status:    models.EnrollmentStatusPending,
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.enrollments.CreateTx(ctx, q, enrollment); err != nil {
			return err
		}
		if err := s.sections.AdjustEnrollmentsTx(ctx, q, sectionID, 1); err != nil {
			return err
		}
		if section.CurrentEnrollments+1 >= section.MaxStudents {
			if err := s.sections.UpdateStatusTx(ctx, q, sectionID, models.SectionStatusFull); err != nil {
				return err
			}
		}
		if entry != nil {
			return s.waitlist.UpdateStatusTx(ctx, q, entry.ID, models.WaitlistStatusApproved)
		}
		return nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if err := s.cache.Delete(ctx, availabilityCacheKey(section.ProgramID)); err != nil {
		s.logger.Warn("failed to invalidate availability cache",
			zap.String("program_id", section.ProgramID), zap.Error(err))
	}

	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", studentID),
		zap.String("section_id", sectionID))
	return enrollment, nil
}

// JoinWaitlist places a student on a program's waiting list.
func (s *EnrollmentService) JoinWaitlist(ctx context.Context, req dto.JoinWaitlistRequest) (*models.WaitlistEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	if _, err := s.programs.FindByID(ctx, req.ProgramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	existing, err := s.waitlist.FindByStudentAndProgram(ctx, req.StudentID, req.ProgramID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check waiting list")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "siswa sudah ada di daftar tunggu program ini")
	}

	entry := &models.WaitlistEntry{
		StudentID: req.StudentID,
		ProgramID: req.ProgramID,
		Status:    models.WaitlistStatusWaiting,
	}
	if err := s.waitlist.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create waiting-list entry")
	}
	return entry, nil
}

// ListWaitlist returns a program's waiting list in arrival order.
func (s *EnrollmentService) ListWaitlist(ctx context.Context, programID string) ([]models.WaitlistEntry, error) {
	if programID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program_id is required")
	}
	entries, err := s.waitlist.ListByProgram(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waiting-list entries")
	}
	return entries, nil
}

// Activate transitions a PAID enrollment to ACTIVE, stamping its
// subscription window and meeting quota from the program template.
func (s *EnrollmentService) Activate(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hanya enrollment berstatus PAID yang bisa diaktifkan")
	}
	if enrollment.SectionID == nil {
		return nil, appErrors.ErrEnrollmentNoSection
	}

	program, err := s.programs.FindBySection(ctx, *enrollment.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	start := time.Now().UTC()
	expiry := start.AddDate(0, 0, program.DurationDays)
	grace := expiry.AddDate(0, 0, program.GraceDays)

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.enrollments.ActivateTx(ctx, q, id, start, expiry, grace, program.MeetingsPerPeriod); err != nil {
			return err
		}
		return s.waitlist.MarkEnrolledTx(ctx, q, enrollment.StudentID, program.ID)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate enrollment")
	}

	s.logger.Info("enrollment activated",
		zap.String("enrollment_id", id),
		zap.Time("expiry_date", expiry))
	return s.Get(ctx, id)
}
