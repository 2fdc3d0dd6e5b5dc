package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/config"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/gateway"
)

type fakeCheckoutEnrollments struct {
	detail *models.EnrollmentDetail
}

func (f *fakeCheckoutEnrollments) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return f.detail, nil
}

type fakeCheckoutInvoices struct {
	unpaid  *models.Invoice
	created *models.Invoice
}

func (f *fakeCheckoutInvoices) FindUnpaidByEnrollment(ctx context.Context, enrollmentID string) (*models.Invoice, error) {
	return f.unpaid, nil
}

func (f *fakeCheckoutInvoices) Create(ctx context.Context, invoice *models.Invoice) error {
	invoice.ID = "inv-new"
	f.created = invoice
	return nil
}

type fakeCheckoutPayments struct {
	pending   *models.Payment
	created   *models.Payment
	refreshed bool
	linked    bool
}

func (f *fakeCheckoutPayments) FindPendingByEnrollment(ctx context.Context, enrollmentID string) (*models.Payment, error) {
	return f.pending, nil
}

func (f *fakeCheckoutPayments) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = "pay-new"
	f.created = payment
	return nil
}

func (f *fakeCheckoutPayments) RefreshSession(ctx context.Context, id, orderID string, amount int64, token, redirectURL string, expiredAt time.Time) error {
	f.refreshed = true
	return nil
}

func (f *fakeCheckoutPayments) LinkInvoice(ctx context.Context, id, invoiceID string) error {
	f.linked = true
	return nil
}

type fakeCheckoutPrograms struct {
	program *models.Program
}

func (f *fakeCheckoutPrograms) FindBySection(ctx context.Context, sectionID string) (*models.Program, error) {
	return f.program, nil
}

type fakeCheckoutStudents struct {
	student *models.Student
}

func (f *fakeCheckoutStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return f.student, nil
}

type fakeCheckoutGateway struct {
	session  *gateway.CheckoutSession
	err      error
	requests []gateway.CheckoutRequest
}

func (f *fakeCheckoutGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func newCheckoutFixture() (*CheckoutService, *fakeCheckoutEnrollments, *fakeCheckoutInvoices, *fakeCheckoutPayments, *fakeCheckoutGateway) {
	enrollments := &fakeCheckoutEnrollments{detail: &models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:        "enr-1",
			StudentID: "std-1",
			SectionID: strPtr("sec-1"),
			Status:    models.EnrollmentStatusPending,
		},
		StudentName:  "Budi Santoso",
		StudentEmail: "budi@example.com",
		SectionLabel: strPtr("Matematika A"),
	}}
	invoices := &fakeCheckoutInvoices{}
	payments := &fakeCheckoutPayments{}
	programs := &fakeCheckoutPrograms{program: &models.Program{
		ID:           "prg-1",
		Name:         "Matematika SMA",
		Price:        500000,
		DurationDays: 30,
		GraceDays:    7,
	}}
	students := &fakeCheckoutStudents{student: &models.Student{
		ID:       "std-1",
		FullName: "Budi Santoso",
		Email:    "budi@example.com",
		Phone:    "0812000111",
	}}
	gw := &fakeCheckoutGateway{session: &gateway.CheckoutSession{
		Token:       "tok-123",
		RedirectURL: "https://pay.example.com/tok-123",
	}}

	billing := config.BillingConfig{CheckoutTTL: 24 * time.Hour}
	svc := NewCheckoutService(enrollments, invoices, payments, programs, students, gw, billing, zap.NewNop())
	return svc, enrollments, invoices, payments, gw
}

func TestCheckoutServiceCreatesInvoiceAndPayment(t *testing.T) {
	svc, _, invoices, payments, gw := newCheckoutFixture()

	resp, err := svc.CreateSession(context.Background(), "enr-1")
	require.NoError(t, err)

	require.NotNil(t, invoices.created)
	require.True(t, strings.HasPrefix(invoices.created.Number, "BIM"))
	require.Equal(t, int64(500000), invoices.created.Total)
	require.Equal(t, models.InvoiceStatusUnpaid, invoices.created.Status)
	require.Equal(t, "Matematika SMA", invoices.created.ProgramName)
	require.Equal(t, "0812000111", invoices.created.StudentPhone)
	require.Equal(t, invoices.created.PeriodStart.AddDate(0, 0, 30), invoices.created.PeriodEnd)

	require.NotNil(t, payments.created)
	require.Equal(t, invoices.created.Number, payments.created.OrderID)
	require.Equal(t, int64(500000), payments.created.Amount)
	require.Equal(t, models.PaymentStatusPending, payments.created.Status)

	require.Len(t, gw.requests, 1)
	require.Equal(t, invoices.created.Number, gw.requests[0].OrderID)

	require.Equal(t, "tok-123", resp.SessionToken)
	require.Equal(t, "https://pay.example.com/tok-123", resp.RedirectURL)
	require.Equal(t, invoices.created.Number, resp.OrderID)
}

func TestCheckoutServiceReusesOpenInvoiceAndPayment(t *testing.T) {
	svc, _, invoices, payments, _ := newCheckoutFixture()

	invoiceID := "inv-open"
	invoices.unpaid = &models.Invoice{
		ID:           invoiceID,
		Number:       "BIM20260801-BBBBBB",
		EnrollmentID: "enr-1",
		Amount:       500000,
		Total:        500000,
		Status:       models.InvoiceStatusUnpaid,
	}
	payments.pending = &models.Payment{
		ID:           "pay-open",
		EnrollmentID: "enr-1",
		InvoiceID:    &invoiceID,
		OrderID:      "BIM20260801-BBBBBB",
		Amount:       500000,
		Status:       models.PaymentStatusPending,
	}

	resp, err := svc.CreateSession(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Nil(t, invoices.created)
	require.Nil(t, payments.created)
	require.True(t, payments.refreshed)
	require.False(t, payments.linked)
	require.Equal(t, "BIM20260801-BBBBBB", resp.OrderID)
	require.Equal(t, "pay-open", resp.PaymentID)
}

func TestCheckoutServiceRejectsNonPendingEnrollment(t *testing.T) {
	svc, enrollments, _, _, _ := newCheckoutFixture()
	enrollments.detail.Status = models.EnrollmentStatusActive

	_, err := svc.CreateSession(context.Background(), "enr-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrEnrollmentNotPending.Code, appErrors.FromError(err).Code)
}

func TestCheckoutServiceRejectsEnrollmentWithoutSection(t *testing.T) {
	svc, enrollments, _, _, _ := newCheckoutFixture()
	enrollments.detail.SectionID = nil

	_, err := svc.CreateSession(context.Background(), "enr-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrEnrollmentNoSection.Code, appErrors.FromError(err).Code)
}

func TestCheckoutServiceGatewayFailure(t *testing.T) {
	svc, _, _, payments, gw := newCheckoutFixture()
	gw.err = errors.New("connection refused")

	_, err := svc.CreateSession(context.Background(), "enr-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	require.Nil(t, payments.created)
}

func TestCheckoutServiceRenewalStartsAtExpiry(t *testing.T) {
	svc, enrollments, invoices, _, _ := newCheckoutFixture()

	expiry := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	enrollments.detail.Status = models.EnrollmentStatusActive
	enrollments.detail.ExpiryDate = timePtr(expiry)

	_, err := svc.CreateRenewalSession(context.Background(), enrollments.detail)
	require.NoError(t, err)
	require.NotNil(t, invoices.created)
	require.Equal(t, expiry, invoices.created.PeriodStart)
	require.Equal(t, expiry.AddDate(0, 0, 30), invoices.created.PeriodEnd)
}
