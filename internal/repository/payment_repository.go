package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bimbel-api/internal/models"
)

// PaymentRepository handles persistence of gateway payment transactions.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, enrollment_id, invoice_id, order_id, amount, method, session_token,
        redirect_url, status, expired_at, paid_at, created_at, updated_at`

// FindByOrderID returns a payment by the gateway order id.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE order_id = $1", paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, orderID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindPendingByEnrollment returns the open PENDING payment for an
// enrollment, or nil when none exists.
func (r *PaymentRepository) FindPendingByEnrollment(ctx context.Context, enrollmentID string) (*models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE enrollment_id = $1 AND status = $2 LIMIT 1", paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, enrollmentID, models.PaymentStatusPending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending payment: %w", err)
	}
	return &payment, nil
}

// Create persists a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	const query = `INSERT INTO payments (id, enrollment_id, invoice_id, order_id, amount, method,
        session_token, redirect_url, status, expired_at, paid_at, created_at, updated_at)
        VALUES (:id, :enrollment_id, :invoice_id, :order_id, :amount, :method,
        :session_token, :redirect_url, :status, :expired_at, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// RefreshSession rewrites the checkout session fields of an existing
// pending payment when checkout is re-initiated.
func (r *PaymentRepository) RefreshSession(ctx context.Context, id, orderID string, amount int64, token, redirectURL string, expiredAt time.Time) error {
	const query = `UPDATE payments
        SET order_id = $2, amount = $3, session_token = $4, redirect_url = $5, expired_at = $6, updated_at = $7
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, orderID, amount, token, redirectURL, expiredAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("refresh payment session: %w", err)
	}
	return nil
}

// LinkInvoice attaches the invoice reference to the payment.
func (r *PaymentRepository) LinkInvoice(ctx context.Context, id, invoiceID string) error {
	const query = `UPDATE payments SET invoice_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, invoiceID, time.Now().UTC()); err != nil {
		return fmt.Errorf("link payment invoice: %w", err)
	}
	return nil
}

// MarkPaidTx settles the payment inside a transaction.
func (r *PaymentRepository) MarkPaidTx(ctx context.Context, q sqlx.ExtContext, id, method string, paidAt time.Time) error {
	const query = `UPDATE payments SET status = $2, method = $3, paid_at = $4, updated_at = $5 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, models.PaymentStatusPaid, method, paidAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	return nil
}

// MarkExpiredTx expires the payment inside a transaction.
func (r *PaymentRepository) MarkExpiredTx(ctx context.Context, q sqlx.ExtContext, id string) error {
	const query = `UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := q.ExecContext(ctx, query, id, models.PaymentStatusExpired, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark payment expired: %w", err)
	}
	return nil
}

// ListExpiredPending returns PENDING payments past their checkout expiry.
func (r *PaymentRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE status = $1 AND expired_at < $2", paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, models.PaymentStatusPending, now); err != nil {
		return nil, fmt.Errorf("list expired payments: %w", err)
	}
	return payments, nil
}
