package models

import "time"

// InvoiceStatus represents the billing state of an invoice.
type InvoiceStatus string

// Possible invoice statuses.
const (
	InvoiceStatusUnpaid    InvoiceStatus = "UNPAID"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is a billing snapshot taken at checkout-initiation time. Student
// and program fields are denormalised on purpose so the document stays
// stable even when the live records change.
type Invoice struct {
	ID           string        `db:"id" json:"id"`
	Number       string        `db:"number" json:"number"`
	EnrollmentID string        `db:"enrollment_id" json:"enrollment_id"`
	StudentName  string        `db:"student_name" json:"student_name"`
	StudentEmail string        `db:"student_email" json:"student_email"`
	StudentPhone string        `db:"student_phone" json:"student_phone"`
	ProgramName  string        `db:"program_name" json:"program_name"`
	SectionLabel string        `db:"section_label" json:"section_label"`
	PeriodStart  time.Time     `db:"period_start" json:"period_start"`
	PeriodEnd    time.Time     `db:"period_end" json:"period_end"`
	Amount       int64         `db:"amount" json:"amount"`
	Discount     int64         `db:"discount" json:"discount"`
	Tax          int64         `db:"tax" json:"tax"`
	Total        int64         `db:"total" json:"total"`
	DueDate      time.Time     `db:"due_date" json:"due_date"`
	Status       InvoiceStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// RecomputeTotal refreshes the derived total after amount, tax or discount
// changed. total = amount + tax - discount, floored at zero.
func (i *Invoice) RecomputeTotal() {
	total := i.Amount + i.Tax - i.Discount
	if total < 0 {
		total = 0
	}
	i.Total = total
}

// InvoiceFilter provides filters for listing invoices.
type InvoiceFilter struct {
	EnrollmentID string
	Status       InvoiceStatus
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
