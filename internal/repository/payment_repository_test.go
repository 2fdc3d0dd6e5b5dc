package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bimbel-api/internal/models"
)

func paymentRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "enrollment_id", "invoice_id", "order_id", "amount", "method", "session_token",
		"redirect_url", "status", "expired_at", "paid_at", "created_at", "updated_at",
	}).AddRow("pay-1", "enr-1", "inv-1", "BIM20260101-AAAAAA", int64(750000), "", nil, nil,
		models.PaymentStatusPending, now, nil, now, now)
}

func TestPaymentRepositoryFindByOrderID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE order_id = $1")).
		WithArgs("BIM20260101-AAAAAA").
		WillReturnRows(paymentRows())

	payment, err := repo.FindByOrderID(context.Background(), "BIM20260101-AAAAAA")
	require.NoError(t, err)
	require.Equal(t, "pay-1", payment.ID)
	require.Equal(t, int64(750000), payment.Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryFindPendingByEnrollmentNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE enrollment_id = $1 AND status = $2 LIMIT 1")).
		WithArgs("enr-1", models.PaymentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	payment, err := repo.FindPendingByEnrollment(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Nil(t, payment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryMarkPaidTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	paidAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET status = $2, method = $3, paid_at = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("pay-1", models.PaymentStatusPaid, "bank_transfer", paidAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkPaidTx(context.Background(), db, "pay-1", "bank_transfer", paidAt)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListExpiredPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE status = $1 AND expired_at < $2")).
		WithArgs(models.PaymentStatusPending, sqlmock.AnyArg()).
		WillReturnRows(paymentRows())

	payments, err := repo.ListExpiredPending(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
