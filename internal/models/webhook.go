package models

import "time"

// WebhookEvent is the idempotency ledger for gateway deliveries. A row per
// (order_id, status) marks that delivery as processed; replays are
// acknowledged without touching payment or enrollment state.
type WebhookEvent struct {
	ID          string    `db:"id" json:"id"`
	OrderID     string    `db:"order_id" json:"order_id"`
	Status      string    `db:"status" json:"status"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}
