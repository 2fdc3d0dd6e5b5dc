package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/config"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/gateway"
)

type checkoutEnrollments interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type checkoutInvoices interface {
	FindUnpaidByEnrollment(ctx context.Context, enrollmentID string) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
}

type checkoutPayments interface {
	FindPendingByEnrollment(ctx context.Context, enrollmentID string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	RefreshSession(ctx context.Context, id, orderID string, amount int64, token, redirectURL string, expiredAt time.Time) error
	LinkInvoice(ctx context.Context, id, invoiceID string) error
}

type checkoutPrograms interface {
	FindBySection(ctx context.Context, sectionID string) (*models.Program, error)
}

type checkoutStudents interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type checkoutGateway interface {
	CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error)
}

// CheckoutService initiates hosted-checkout sessions. Re-initiating
// checkout for the same enrollment reuses the open invoice and pending
// payment instead of stacking new ones.
type CheckoutService struct {
	enrollments checkoutEnrollments
	invoices    checkoutInvoices
	payments    checkoutPayments
	programs    checkoutPrograms
	students    checkoutStudents
	gw          checkoutGateway
	billing     config.BillingConfig
	logger      *zap.Logger
}

// NewCheckoutService constructs the service.
func NewCheckoutService(
	enrollments checkoutEnrollments,
	invoices checkoutInvoices,
	payments checkoutPayments,
	programs checkoutPrograms,
	students checkoutStudents,
	gw checkoutGateway,
	billing config.BillingConfig,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		enrollments: enrollments,
		invoices:    invoices,
		payments:    payments,
		programs:    programs,
		students:    students,
		gw:          gw,
		billing:     billing,
		logger:      logger,
	}
}

// CreateSession opens (or reuses) a checkout session for a PENDING
// enrollment's first payment.
func (s *CheckoutService) CreateSession(ctx context.Context, enrollmentID string) (*dto.CheckoutResponse, error) {
	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if detail.Status != models.EnrollmentStatusPending {
		return nil, appErrors.ErrEnrollmentNotPending
	}

	return s.buildSession(ctx, detail, time.Now().UTC())
}

// CreateRenewalSession opens a checkout session for the next subscription
// period of an ACTIVE enrollment. The new period starts where the current
// one ends.
func (s *CheckoutService) CreateRenewalSession(ctx context.Context, detail *models.EnrollmentDetail) (*dto.CheckoutResponse, error) {
	periodStart := time.Now().UTC()
	if detail.ExpiryDate != nil {
		periodStart = *detail.ExpiryDate
	}
	return s.buildSession(ctx, detail, periodStart)
}

func (s *CheckoutService) buildSession(ctx context.Context, detail *models.EnrollmentDetail, periodStart time.Time) (*dto.CheckoutResponse, error) {
	if detail.SectionID == nil {
		return nil, appErrors.ErrEnrollmentNoSection
	}

	program, err := s.programs.FindBySection(ctx, *detail.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.billing.CheckoutTTL)

	invoice, err := s.invoices.FindUnpaidByEnrollment(ctx, detail.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up invoice")
	}
	if invoice == nil {
		student, err := s.students.FindByID(ctx, detail.StudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}

		sectionLabel := ""
		if detail.SectionLabel != nil {
			sectionLabel = *detail.SectionLabel
		}
		invoice = &models.Invoice{
			Number:       newInvoiceNumber(now),
			EnrollmentID: detail.ID,
			StudentName:  student.FullName,
			StudentEmail: student.Email,
			StudentPhone: student.Phone,
			ProgramName:  program.Name,
			SectionLabel: sectionLabel,
			PeriodStart:  periodStart,
			PeriodEnd:    periodStart.AddDate(0, 0, program.DurationDays),
			Amount:       program.Price,
			DueDate:      expiresAt,
			Status:       models.InvoiceStatusUnpaid,
		}
		invoice.RecomputeTotal()
		if err := s.invoices.Create(ctx, invoice); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invoice")
		}
	}

	payment, err := s.payments.FindPendingByEnrollment(ctx, detail.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up payment")
	}

	session, err := s.gw.CreateCheckout(ctx, gateway.CheckoutRequest{
		OrderID:       invoice.Number,
		GrossAmount:   invoice.Total,
		CustomerName:  detail.StudentName,
		CustomerEmail: detail.StudentEmail,
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payment gateway unavailable")
	}

	if payment == nil {
		payment = &models.Payment{
			EnrollmentID: detail.ID,
			InvoiceID:    &invoice.ID,
			OrderID:      invoice.Number,
			Amount:       invoice.Total,
			SessionToken: &session.Token,
			RedirectURL:  &session.RedirectURL,
			Status:       models.PaymentStatusPending,
			ExpiredAt:    &expiresAt,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
		}
	} else {
		if err := s.payments.RefreshSession(ctx, payment.ID, invoice.Number, invoice.Total, session.Token, session.RedirectURL, expiresAt); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh payment session")
		}
		if payment.InvoiceID == nil || *payment.InvoiceID != invoice.ID {
			if err := s.payments.LinkInvoice(ctx, payment.ID, invoice.ID); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link invoice")
			}
		}
	}

	s.logger.Info("checkout session created",
		zap.String("enrollment_id", detail.ID),
		zap.String("order_id", invoice.Number),
		zap.Int64("amount", invoice.Total))

	return &dto.CheckoutResponse{
		EnrollmentID:  detail.ID,
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.Number,
		PaymentID:     payment.ID,
		OrderID:       invoice.Number,
		Amount:        invoice.Total,
		SessionToken:  session.Token,
		RedirectURL:   session.RedirectURL,
		ExpiresAt:     expiresAt,
	}, nil
}

// newInvoiceNumber builds a date-prefixed invoice number with a random
// suffix, e.g. BIM20260901-3FA2C1. The number doubles as the gateway
// order id.
func newInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("BIM%s-%s", now.Format("20060102"), suffix)
}
