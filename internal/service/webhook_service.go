package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/database"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/gateway"
)

type webhookPayments interface {
	FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	MarkPaidTx(ctx context.Context, q sqlx.ExtContext, id, method string, paidAt time.Time) error
}

type webhookInvoices interface {
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.InvoiceStatus) error
}

type webhookEnrollments interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.EnrollmentStatus) error
}

type webhookEvents interface {
	Exists(ctx context.Context, orderID, status string) (bool, error)
	RecordTx(ctx context.Context, q sqlx.ExtContext, orderID, status string) error
}

type studentNotifier interface {
	NotifyStudent(ctx context.Context, studentID string, typ models.NotificationType, title, body string, email bool) error
}

// WebhookService settles payments from gateway callbacks. Every delivery
// is verified against the merchant key, checked against the idempotency
// ledger, and applied inside one transaction so the payment, invoice and
// enrollment can never disagree.
type WebhookService struct {
	payments    webhookPayments
	invoices    webhookInvoices
	enrollments webhookEnrollments
	events      webhookEvents
	notifier    studentNotifier
	tx          database.TxRunner
	serverKey   string
	validate    *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewWebhookService constructs the service.
func NewWebhookService(
	payments webhookPayments,
	invoices webhookInvoices,
	enrollments webhookEnrollments,
	events webhookEvents,
	notifier studentNotifier,
	tx database.TxRunner,
	serverKey string,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
) *WebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		payments:    payments,
		invoices:    invoices,
		enrollments: enrollments,
		events:      events,
		notifier:    notifier,
		tx:          tx,
		serverKey:   serverKey,
		validate:    validate,
		metrics:     metrics,
		logger:      logger,
	}
}

// Process handles one gateway delivery.
func (s *WebhookService) Process(ctx context.Context, payload gateway.WebhookPayload) (*dto.WebhookResult, error) {
	if err := s.validate.Struct(payload); err != nil {
		s.observe("rejected")
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	if !gateway.VerifySignature(s.serverKey, payload) {
		s.observe("rejected")
		return nil, appErrors.ErrInvalidSignature
	}

	processed, err := s.events.Exists(ctx, payload.OrderID, payload.Status)
	if err != nil {
		s.observe("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check webhook ledger")
	}
	if processed {
		s.logger.Info("duplicate webhook delivery ignored",
			zap.String("order_id", payload.OrderID), zap.String("status", payload.Status))
		s.observe("duplicate")
		return &dto.WebhookResult{OrderID: payload.OrderID, Status: payload.Status, Duplicate: true}, nil
	}

	payment, err := s.payments.FindByOrderID(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.observe("rejected")
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		s.observe("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up payment")
	}

	if payload.Amount != payment.Amount {
		s.observe("rejected")
		return nil, appErrors.Clone(appErrors.ErrAmountMismatch,
			fmt.Sprintf("reported amount %d does not match payment amount %d", payload.Amount, payment.Amount))
	}

	var target models.PaymentStatus
	switch strings.ToLower(payload.Status) {
	case "pending":
		target = models.PaymentStatusPending
	case "completed", "settlement":
		target = models.PaymentStatusPaid
	default:
		s.observe("rejected")
		return nil, appErrors.Clone(appErrors.ErrUnmappedGatewayStatus,
			fmt.Sprintf("status gateway %q tidak dikenali", payload.Status))
	}

	result := &dto.WebhookResult{OrderID: payload.OrderID, Status: payload.Status}

	if target == models.PaymentStatusPending || payment.Status == models.PaymentStatusPaid {
		// Nothing to transition, only the ledger marker is written.
		if err := s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
			return s.events.RecordTx(ctx, q, payload.OrderID, payload.Status)
		}); err != nil {
			s.observe("error")
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record webhook event")
		}
		s.observe("processed")
		return result, nil
	}

	enrollment, err := s.enrollments.FindByID(ctx, payment.EnrollmentID)
	if err != nil {
		s.observe("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	paidAt := time.Now().UTC()
	if payload.CompletedAt != "" {
		if ts, parseErr := time.Parse(time.RFC3339, payload.CompletedAt); parseErr == nil {
			paidAt = ts.UTC()
		}
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.payments.MarkPaidTx(ctx, q, payment.ID, payload.PaymentMethod, paidAt); err != nil {
			return err
		}
		if payment.InvoiceID != nil {
			if err := s.invoices.UpdateStatusTx(ctx, q, *payment.InvoiceID, models.InvoiceStatusPaid); err != nil {
				return err
			}
		}
		if enrollment.Status == models.EnrollmentStatusPending {
			if err := s.enrollments.UpdateStatusTx(ctx, q, enrollment.ID, models.EnrollmentStatusPaid); err != nil {
				return err
			}
		} else if enrollment.Status.Terminal() {
			s.logger.Warn("payment settled for terminal enrollment",
				zap.String("enrollment_id", enrollment.ID),
				zap.String("enrollment_status", string(enrollment.Status)),
				zap.String("order_id", payload.OrderID))
		}
		return s.events.RecordTx(ctx, q, payload.OrderID, payload.Status)
	})
	if err != nil {
		s.observe("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle payment")
	}

	s.logger.Info("payment settled",
		zap.String("order_id", payload.OrderID),
		zap.String("payment_id", payment.ID),
		zap.String("enrollment_id", enrollment.ID))

	title := "Pembayaran diterima"
	body := fmt.Sprintf("Pembayaran untuk tagihan %s telah kami terima. Terima kasih!", payload.OrderID)
	if err := s.notifier.NotifyStudent(ctx, enrollment.StudentID, models.NotificationPaymentConfirmed, title, body, true); err != nil {
		s.logger.Warn("failed to notify student of settled payment",
			zap.String("enrollment_id", enrollment.ID), zap.Error(err))
	}

	s.observe("processed")
	return result, nil
}

func (s *WebhookService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveWebhook(outcome)
	}
}
