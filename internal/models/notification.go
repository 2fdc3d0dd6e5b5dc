package models

import "time"

// NotificationType categorises notifications for client rendering.
type NotificationType string

// Possible notification types.
const (
	NotificationPaymentConfirmed NotificationType = "PAYMENT_CONFIRMED"
	NotificationPaymentExpired   NotificationType = "PAYMENT_EXPIRED"
	NotificationSlotReleased     NotificationType = "SLOT_RELEASED"
	NotificationRenewalReminder  NotificationType = "RENEWAL_REMINDER"
	NotificationMeetingReminder  NotificationType = "MEETING_REMINDER"
)

// Notification is an in-app message for a user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
