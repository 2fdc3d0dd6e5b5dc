package models

import "time"

// PaymentStatus represents the state of an external payment transaction.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusExpired  PaymentStatus = "EXPIRED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is a single gateway transaction, one-to-one with an enrollment's
// open checkout. It never transitions backward.
type Payment struct {
	ID           string        `db:"id" json:"id"`
	EnrollmentID string        `db:"enrollment_id" json:"enrollment_id"`
	InvoiceID    *string       `db:"invoice_id" json:"invoice_id,omitempty"`
	OrderID      string        `db:"order_id" json:"order_id"`
	Amount       int64         `db:"amount" json:"amount"`
	Method       string        `db:"method" json:"method"`
	SessionToken *string       `db:"session_token" json:"session_token,omitempty"`
	RedirectURL  *string       `db:"redirect_url" json:"redirect_url,omitempty"`
	Status       PaymentStatus `db:"status" json:"status"`
	ExpiredAt    *time.Time    `db:"expired_at" json:"expired_at,omitempty"`
	PaidAt       *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}
