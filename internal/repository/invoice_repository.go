package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bimbel-api/internal/models"
)

// InvoiceRepository handles persistence of invoice snapshots.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs the repository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, number, enrollment_id, student_name, student_email, student_phone,
        program_name, section_label, period_start, period_end, amount, discount, tax, total,
        due_date, status, created_at, updated_at`

// FindByID returns an invoice by its ID.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	query := fmt.Sprintf("SELECT %s FROM invoices WHERE id = $1", invoiceColumns)
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindUnpaidByEnrollment returns the open UNPAID invoice for an enrollment,
// or nil when none exists. Checkout re-initiation reuses it.
func (r *InvoiceRepository) FindUnpaidByEnrollment(ctx context.Context, enrollmentID string) (*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE enrollment_id = $1 AND status = $2
        ORDER BY created_at DESC LIMIT 1`, invoiceColumns)
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, enrollmentID, models.InvoiceStatusUnpaid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find unpaid invoice: %w", err)
	}
	return &invoice, nil
}

// ExistsRecentUnpaid reports whether an UNPAID invoice was created for the
// enrollment after the given time. Used to dedup renewal reminders.
func (r *InvoiceRepository) ExistsRecentUnpaid(ctx context.Context, enrollmentID string, since time.Time) (bool, error) {
	const query = `SELECT 1 FROM invoices WHERE enrollment_id = $1 AND status = $2 AND created_at > $3 LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, query, enrollmentID, models.InvoiceStatusUnpaid, since)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check recent unpaid invoice: %w", err)
	}
	return true, nil
}

// Create persists a new invoice snapshot.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	const query = `INSERT INTO invoices (id, number, enrollment_id, student_name, student_email, student_phone,
        program_name, section_label, period_start, period_end, amount, discount, tax, total,
        due_date, status, created_at, updated_at)
        VALUES (:id, :number, :enrollment_id, :student_name, :student_email, :student_phone,
        :program_name, :section_label, :period_start, :period_end, :amount, :discount, :tax, :total,
        :due_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// UpdateStatusTx updates the invoice status inside a transaction.
func (r *InvoiceRepository) UpdateStatusTx(ctx context.Context, q sqlx.ExtContext, id string, status models.InvoiceStatus) error {
	const query = `UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return nil
}

// UpdateDiscount rewrites the discount and the recomputed total.
func (r *InvoiceRepository) UpdateDiscount(ctx context.Context, id string, discount, total int64) error {
	const query = `UPDATE invoices SET discount = $2, total = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, discount, total, time.Now().UTC()); err != nil {
		return fmt.Errorf("update invoice discount: %w", err)
	}
	return nil
}

// List returns invoices filtered by the provided criteria.
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	var conditions []string
	var args []interface{}

	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM invoices%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		invoiceColumns, clause, size, offset)

	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM invoices" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}
