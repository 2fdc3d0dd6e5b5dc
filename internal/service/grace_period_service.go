package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/database"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
)

type graceEnrollments interface {
	ListExpiredActive(ctx context.Context, now time.Time) ([]models.Enrollment, error)
	ListGraceExpired(ctx context.Context, now time.Time) ([]models.Enrollment, error)
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.EnrollmentStatus) error
}

type graceSections interface {
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	AdjustEnrollmentsTx(ctx context.Context, q sqlx.ExtContext, id string, delta int) error
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.SectionStatus) error
}

type graceWaitlist interface {
	ExpireApprovedTx(ctx context.Context, q sqlx.ExtContext, studentID, programID string) error
}

// GracePeriodService runs the daily subscription sweep. Phase one moves
// ACTIVE enrollments past their expiry date to EXPIRED; phase two releases
// the seats of EXPIRED enrollments whose grace window has also passed.
// Each record transitions in its own transaction so one bad row cannot
// poison the batch.
type GracePeriodService struct {
	enrollments graceEnrollments
	sections    graceSections
	waitlist    graceWaitlist
	notifier    studentNotifier
	cache       availabilityCache
	tx          database.TxRunner
	logger      *zap.Logger
}

// NewGracePeriodService constructs the service.
func NewGracePeriodService(
	enrollments graceEnrollments,
	sections graceSections,
	waitlist graceWaitlist,
	notifier studentNotifier,
	cache availabilityCache,
	tx database.TxRunner,
	logger *zap.Logger,
) *GracePeriodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GracePeriodService{
		enrollments: enrollments,
		sections:    sections,
		waitlist:    waitlist,
		notifier:    notifier,
		cache:       cache,
		tx:          tx,
		logger:      logger,
	}
}

// Run executes one sweep and reports per-record outcomes.
func (s *GracePeriodService) Run(ctx context.Context) (*dto.CronSummary, error) {
	now := time.Now().UTC()
	summary := &dto.CronSummary{Job: "grace-period"}

	expired, err := s.enrollments.ListExpiredActive(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired enrollments")
	}
	for _, e := range expired {
		summary.Total++
		err := s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
			return s.enrollments.UpdateStatusTx(ctx, q, e.ID, models.EnrollmentStatusExpired)
		})
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("expire %s: %v", e.ID, err))
			continue
		}
		summary.Processed++
	}

	released, err := s.enrollments.ListGraceExpired(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grace-expired enrollments")
	}
	for _, e := range released {
		summary.Total++
		if err := s.releaseSlot(ctx, e); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("release %s: %v", e.ID, err))
			continue
		}
		summary.Processed++
	}

	s.logger.Info("grace period sweep finished",
		zap.Int("total", summary.Total),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed()))
	return summary, nil
}

func (s *GracePeriodService) releaseSlot(ctx context.Context, e models.Enrollment) error {
	var section *models.SectionDetail
	if e.SectionID != nil {
		found, err := s.sections.FindByID(ctx, *e.SectionID)
		if err != nil {
			return fmt.Errorf("load section: %w", err)
		}
		section = found
	}

	err := s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.enrollments.UpdateStatusTx(ctx, q, e.ID, models.EnrollmentStatusSlotReleased); err != nil {
			return err
		}
		if section == nil {
			return nil
		}
		if err := s.sections.AdjustEnrollmentsTx(ctx, q, section.ID, -1); err != nil {
			return err
		}
		if section.Status == models.SectionStatusFull {
			if err := s.sections.UpdateStatusTx(ctx, q, section.ID, models.SectionStatusActive); err != nil {
				return err
			}
		}
		return s.waitlist.ExpireApprovedTx(ctx, q, e.StudentID, section.ProgramID)
	})
	if err != nil {
		return err
	}

	if section != nil {
		if err := s.cache.Delete(ctx, availabilityCacheKey(section.ProgramID)); err != nil {
			s.logger.Warn("failed to invalidate availability cache",
				zap.String("program_id", section.ProgramID), zap.Error(err))
		}
	}

	title := "Slot kelas dilepas"
	body := "Masa tenggang langganan Anda telah berakhir dan slot kelas Anda dilepas. Silakan daftar ulang jika ingin melanjutkan."
	if err := s.notifier.NotifyStudent(ctx, e.StudentID, models.NotificationSlotReleased, title, body, true); err != nil {
		s.logger.Warn("failed to notify student of released slot",
			zap.String("enrollment_id", e.ID), zap.Error(err))
	}
	return nil
}
