package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/pkg/database"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
	"github.com/noah-isme/bimbel-api/pkg/export"
)

type invoiceStore interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error)
	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	UpdateDiscount(ctx context.Context, id string, discount, total int64) error
	UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.InvoiceStatus) error
}

// InvoiceService serves invoice documents and admin adjustments. Paid
// invoices are immutable.
type InvoiceService struct {
	invoices invoiceStore
	pdf      *export.InvoicePDF
	csv      *export.CSVExporter
	tx       database.TxRunner
	validate *validator.Validate
	logger   *zap.Logger
}

// NewInvoiceService constructs the service.
func NewInvoiceService(invoices invoiceStore, pdf *export.InvoicePDF, csv *export.CSVExporter, tx database.TxRunner, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{invoices: invoices, pdf: pdf, csv: csv, tx: tx, validate: validate, logger: logger}
}

// List returns invoices matching the filter.
func (s *InvoiceService) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, *models.Pagination, error) {
	invoices, total, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return invoices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one invoice.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	return invoice, nil
}

// RenderPDF produces the printable document for one invoice. The second
// return value is the suggested filename.
func (s *InvoiceService) RenderPDF(ctx context.Context, id string) ([]byte, string, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.pdf.Render(*invoice)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render invoice")
	}
	return payload, fmt.Sprintf("%s.pdf", invoice.Number), nil
}

// UpdateDiscount adjusts the discount on an unpaid invoice and recomputes
// the total.
func (s *InvoiceService) UpdateDiscount(ctx context.Context, id string, req dto.UpdateDiscountRequest) (*models.Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, appErrors.ErrInvoiceAlreadyPaid
	}
	if invoice.Status == models.InvoiceStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invoice sudah dibatalkan")
	}

	invoice.Discount = req.Discount
	invoice.RecomputeTotal()
	if err := s.invoices.UpdateDiscount(ctx, id, invoice.Discount, invoice.Total); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update discount")
	}

	s.logger.Info("invoice discount updated",
		zap.String("invoice_id", id),
		zap.Int64("discount", invoice.Discount),
		zap.Int64("total", invoice.Total))
	return invoice, nil
}

// Cancel voids an unpaid invoice.
func (s *InvoiceService) Cancel(ctx context.Context, id string) error {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return appErrors.ErrInvoiceAlreadyPaid
	}

	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		return s.invoices.UpdateStatusTx(ctx, q, id, models.InvoiceStatusCancelled)
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel invoice")
	}
	return nil
}

// ExportCSV renders a billing recap of invoices matching the filter.
func (s *InvoiceService) ExportCSV(ctx context.Context, filter models.InvoiceFilter) ([]byte, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 100
	}
	invoices, _, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}

	dataset := export.Dataset{
		Headers: []string{"number", "status", "student", "program", "section", "period_start", "period_end", "amount", "discount", "tax", "total", "due_date"},
	}
	for _, inv := range invoices {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"number":       inv.Number,
			"status":       string(inv.Status),
			"student":      inv.StudentName,
			"program":      inv.ProgramName,
			"section":      inv.SectionLabel,
			"period_start": inv.PeriodStart.Format("2006-01-02"),
			"period_end":   inv.PeriodEnd.Format("2006-01-02"),
			"amount":       fmt.Sprintf("%d", inv.Amount),
			"discount":     fmt.Sprintf("%d", inv.Discount),
			"tax":          fmt.Sprintf("%d", inv.Tax),
			"total":        fmt.Sprintf("%d", inv.Total),
			"due_date":     inv.DueDate.Format("2006-01-02"),
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}
