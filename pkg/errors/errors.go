package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios. Business-rule violations carry
// HTTP 400 so callers can distinguish them from transport-level conflicts.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	ErrSectionFull           = New("SECTION_FULL", http.StatusBadRequest, "kelas sudah penuh")
	ErrAlreadyEnrolled       = New("ALREADY_ENROLLED", http.StatusBadRequest, "siswa sudah terdaftar di kelas ini")
	ErrEnrollmentNotPending  = New("ENROLLMENT_NOT_PENDING", http.StatusBadRequest, "enrollment is not pending")
	ErrEnrollmentNoSection   = New("ENROLLMENT_NO_SECTION", http.StatusBadRequest, "enrollment has no assigned section")
	ErrAmountMismatch        = New("AMOUNT_MISMATCH", http.StatusBadRequest, "reported amount does not match payment")
	ErrInvalidSignature      = New("INVALID_SIGNATURE", http.StatusBadRequest, "invalid webhook signature")
	ErrUnmappedGatewayStatus = New("UNMAPPED_GATEWAY_STATUS", http.StatusBadRequest, "unmapped gateway status")
	ErrMeetingConflict       = New("MEETING_CONFLICT", http.StatusBadRequest, "jadwal bentrok dengan pertemuan lain")
	ErrOutsideAvailability   = New("OUTSIDE_AVAILABILITY", http.StatusBadRequest, "di luar jam mengajar tutor")
	ErrInvoiceAlreadyPaid    = New("INVOICE_ALREADY_PAID", http.StatusBadRequest, "invoice sudah dibayar")
	ErrPaymentAlreadySettled = New("PAYMENT_ALREADY_SETTLED", http.StatusBadRequest, "payment already settled")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
