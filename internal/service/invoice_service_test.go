package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/export"
)

type fakeInvoiceStore struct {
	invoice   *models.Invoice
	discounts map[string][2]int64
	statuses  map[string]models.InvoiceStatus
}

func (f *fakeInvoiceStore) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	if f.invoice == nil {
		return nil, 0, nil
	}
	return []models.Invoice{*f.invoice}, 1, nil
}

func (f *fakeInvoiceStore) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	inv := *f.invoice
	return &inv, nil
}

func (f *fakeInvoiceStore) UpdateDiscount(ctx context.Context, id string, discount, total int64) error {
	if f.discounts == nil {
		f.discounts = map[string][2]int64{}
	}
	f.discounts[id] = [2]int64{discount, total}
	return nil
}

func (f *fakeInvoiceStore) UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.InvoiceStatus) error {
	if f.statuses == nil {
		f.statuses = map[string]models.InvoiceStatus{}
	}
	f.statuses[id] = status
	return nil
}

func newInvoiceFixture() (*InvoiceService, *fakeInvoiceStore) {
	store := &fakeInvoiceStore{invoice: &models.Invoice{
		ID:           "inv-1",
		Number:       "BIM20260901-FFFFFF",
		EnrollmentID: "enr-1",
		StudentName:  "Budi Santoso",
		ProgramName:  "Matematika SMA",
		SectionLabel: "Matematika A",
		PeriodStart:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Amount:       500000,
		Tax:          55000,
		Total:        555000,
		DueDate:      time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		Status:       models.InvoiceStatusUnpaid,
	}}
	svc := NewInvoiceService(store, export.NewInvoicePDF(), export.NewCSVExporter(), &fakeTx{}, validator.New(), zap.NewNop())
	return svc, store
}

func TestInvoiceServiceUpdateDiscountRecomputesTotal(t *testing.T) {
	svc, store := newInvoiceFixture()

	invoice, err := svc.UpdateDiscount(context.Background(), "inv-1", dto.UpdateDiscountRequest{Discount: 100000})
	require.NoError(t, err)
	require.Equal(t, int64(455000), invoice.Total)
	require.Equal(t, [2]int64{100000, 455000}, store.discounts["inv-1"])
}

func TestInvoiceServiceDiscountFloorsTotalAtZero(t *testing.T) {
	svc, _ := newInvoiceFixture()

	invoice, err := svc.UpdateDiscount(context.Background(), "inv-1", dto.UpdateDiscountRequest{Discount: 900000})
	require.NoError(t, err)
	require.Equal(t, int64(0), invoice.Total)
}

func TestInvoiceServiceRejectsDiscountOnPaidInvoice(t *testing.T) {
	svc, store := newInvoiceFixture()
	store.invoice.Status = models.InvoiceStatusPaid

	_, err := svc.UpdateDiscount(context.Background(), "inv-1", dto.UpdateDiscountRequest{Discount: 1000})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvoiceAlreadyPaid.Code, appErrors.FromError(err).Code)
	require.Empty(t, store.discounts)
}

func TestInvoiceServiceCancelRejectsPaid(t *testing.T) {
	svc, store := newInvoiceFixture()
	store.invoice.Status = models.InvoiceStatusPaid

	err := svc.Cancel(context.Background(), "inv-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvoiceAlreadyPaid.Code, appErrors.FromError(err).Code)
}

func TestInvoiceServiceCancel(t *testing.T) {
	svc, store := newInvoiceFixture()

	require.NoError(t, svc.Cancel(context.Background(), "inv-1"))
	require.Equal(t, models.InvoiceStatusCancelled, store.statuses["inv-1"])
}

func TestInvoiceServiceRenderPDF(t *testing.T) {
	svc, _ := newInvoiceFixture()

	payload, filename, err := svc.RenderPDF(context.Background(), "inv-1")
	require.NoError(t, err)
	require.NotEmpty(t, payload)
	require.Equal(t, "BIM20260901-FFFFFF.pdf", filename)
	require.True(t, strings.HasPrefix(string(payload[:5]), "%PDF-"))
}

func TestInvoiceServiceExportCSV(t *testing.T) {
	svc, _ := newInvoiceFixture()

	payload, err := svc.ExportCSV(context.Background(), models.InvoiceFilter{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "number")
	require.Contains(t, lines[1], "BIM20260901-FFFFFF")
	require.Contains(t, lines[1], "555000")
}
