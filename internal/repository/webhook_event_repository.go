package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// WebhookEventRepository is the idempotency ledger for gateway deliveries.
type WebhookEventRepository struct {
	db *sqlx.DB
}

// NewWebhookEventRepository constructs the repository.
func NewWebhookEventRepository(db *sqlx.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Exists reports whether a delivery with this order id and status was
// already processed.
func (r *WebhookEventRepository) Exists(ctx context.Context, orderID, status string) (bool, error) {
	const query = `SELECT 1 FROM webhook_events WHERE order_id = $1 AND status = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, orderID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return true, nil
}

// RecordTx marks the delivery as processed inside the transition
// transaction, so the marker and the state change commit together.
func (r *WebhookEventRepository) RecordTx(ctx context.Context, q sqlx.ExtContext, orderID, status string) error {
	const query = `INSERT INTO webhook_events (id, order_id, status, processed_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (order_id, status) DO NOTHING`
	if _, err := q.ExecContext(ctx, query, uuid.NewString(), orderID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	return nil
}
