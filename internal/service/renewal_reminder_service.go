package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/config"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
)

type reminderEnrollments interface {
	ListExpiringActive(ctx context.Context, from, to time.Time) ([]models.EnrollmentDetail, error)
}

type reminderInvoices interface {
	ExistsRecentUnpaid(ctx context.Context, enrollmentID string, since time.Time) (bool, error)
}

type renewalCheckout interface {
	CreateRenewalSession(ctx context.Context, detail *models.EnrollmentDetail) (*dto.CheckoutResponse, error)
}

// RenewalReminderService finds ACTIVE enrollments whose period ends inside
// the lead window, opens a renewal checkout for each and reminds the
// student. A recent unpaid renewal invoice suppresses a repeat reminder.
type RenewalReminderService struct {
	enrollments reminderEnrollments
	invoices    reminderInvoices
	checkout    renewalCheckout
	notifier    studentNotifier
	billing     config.BillingConfig
	logger      *zap.Logger
}

// NewRenewalReminderService constructs the service.
func NewRenewalReminderService(
	enrollments reminderEnrollments,
	invoices reminderInvoices,
	checkout renewalCheckout,
	notifier studentNotifier,
	billing config.BillingConfig,
	logger *zap.Logger,
) *RenewalReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenewalReminderService{
		enrollments: enrollments,
		invoices:    invoices,
		checkout:    checkout,
		notifier:    notifier,
		billing:     billing,
		logger:      logger,
	}
}

// Run executes one sweep and reports per-record outcomes.
func (s *RenewalReminderService) Run(ctx context.Context) (*dto.CronSummary, error) {
	now := time.Now().UTC()
	summary := &dto.CronSummary{Job: "renewal-reminder"}

	expiring, err := s.enrollments.ListExpiringActive(ctx, now, now.Add(s.billing.RenewalLead))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expiring enrollments")
	}

	for i := range expiring {
		detail := expiring[i]
		summary.Total++

		reminded, err := s.invoices.ExistsRecentUnpaid(ctx, detail.ID, now.Add(-s.billing.ReminderDedup))
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("enrollment %s: %v", detail.ID, err))
			continue
		}
		if reminded {
			summary.Processed++
			continue
		}

		session, err := s.checkout.CreateRenewalSession(ctx, &detail)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("enrollment %s: %v", detail.ID, err))
			continue
		}

		daysLeft := 0
		if detail.ExpiryDate != nil {
			daysLeft = int(math.Ceil(detail.ExpiryDate.Sub(now).Hours() / 24))
		}
		title := "Langganan segera berakhir"
		body := fmt.Sprintf("Langganan Anda berakhir dalam %d hari. Perpanjang sekarang melalui %s", daysLeft, session.RedirectURL)
		if err := s.notifier.NotifyStudent(ctx, detail.StudentID, models.NotificationRenewalReminder, title, body, true); err != nil {
			s.logger.Warn("failed to notify student of renewal",
				zap.String("enrollment_id", detail.ID), zap.Error(err))
		}
		summary.Processed++
	}

	s.logger.Info("renewal reminder sweep finished",
		zap.Int("total", summary.Total),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed()))
	return summary, nil
}
