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

type expiryPayments interface {
	ListExpiredPending(ctx context.Context, now time.Time) ([]models.Payment, error)
	MarkExpiredTx(ctx context.Context, q sqlx.ExtContext, id string) error
}

type expiryInvoices interface {
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.InvoiceStatus) error
}

type expiryEnrollments interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.EnrollmentStatus) error
}

type expirySections interface {
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	AdjustEnrollmentsTx(ctx context.Context, q sqlx.ExtContext, id string, delta int) error
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.SectionStatus) error
}

type expiryWaitlist interface {
	ExpireApprovedTx(ctx context.Context, q sqlx.ExtContext, studentID, programID string) error
}

// PaymentExpiryService voids checkout sessions whose window lapsed. The
// payment goes to EXPIRED, its invoice to OVERDUE, and an enrollment still
// waiting on that first payment is cancelled with its seat returned.
type PaymentExpiryService struct {
	payments    expiryPayments
	invoices    expiryInvoices
	enrollments expiryEnrollments
	sections    expirySections
	waitlist    expiryWaitlist
	notifier    studentNotifier
	cache       availabilityCache
	tx          database.TxRunner
	logger      *zap.Logger
}

// NewPaymentExpiryService constructs the service.
func NewPaymentExpiryService(
	payments expiryPayments,
	invoices expiryInvoices,
	enrollments expiryEnrollments,
	sections expirySections,
	waitlist expiryWaitlist,
	notifier studentNotifier,
	cache availabilityCache,
	tx database.TxRunner,
	logger *zap.Logger,
) *PaymentExpiryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentExpiryService{
		payments:    payments,
		invoices:    invoices,
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
func (s *PaymentExpiryService) Run(ctx context.Context) (*dto.CronSummary, error) {
	now := time.Now().UTC()
	summary := &dto.CronSummary{Job: "payment-expiry"}

	expired, err := s.payments.ListExpiredPending(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired payments")
	}

	for _, p := range expired {
		summary.Total++
		if err := s.expire(ctx, p); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("payment %s: %v", p.ID, err))
			continue
		}
		summary.Processed++
	}

	s.logger.Info("payment expiry sweep finished",
		zap.Int("total", summary.Total),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed()))
	return summary, nil
}

func (s *PaymentExpiryService) expire(ctx context.Context, p models.Payment) error {
	enrollment, err := s.enrollments.FindByID(ctx, p.EnrollmentID)
	if err != nil {
		return fmt.Errorf("load enrollment: %w", err)
	}

	cancelEnrollment := enrollment.Status == models.EnrollmentStatusPending

	var section *models.SectionDetail
	if cancelEnrollment && enrollment.SectionID != nil {
		found, err := s.sections.FindByID(ctx, *enrollment.SectionID)
		if err != nil {
			return fmt.Errorf("load section: %w", err)
		}
		section = found
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.payments.MarkExpiredTx(ctx, q, p.ID); err != nil {
			return err
		}
		if p.InvoiceID != nil {
			if err := s.invoices.UpdateStatusTx(ctx, q, *p.InvoiceID, models.InvoiceStatusOverdue); err != nil {
				return err
			}
		}
		if !cancelEnrollment {
			return nil
		}
		if err := s.enrollments.UpdateStatusTx(ctx, q, enrollment.ID, models.EnrollmentStatusCancelled); err != nil {
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
		return s.waitlist.ExpireApprovedTx(ctx, q, enrollment.StudentID, section.ProgramID)
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

	title := "Pembayaran kedaluwarsa"
	body := fmt.Sprintf("Sesi pembayaran untuk tagihan %s telah kedaluwarsa. Silakan ulangi checkout untuk melanjutkan pendaftaran.", p.OrderID)
	if err := s.notifier.NotifyStudent(ctx, enrollment.StudentID, models.NotificationPaymentExpired, title, body, true); err != nil {
		s.logger.Warn("failed to notify student of expired payment",
			zap.String("enrollment_id", enrollment.ID), zap.Error(err))
	}
	return nil
}
