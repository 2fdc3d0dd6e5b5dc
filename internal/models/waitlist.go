package models

import "time"

// WaitlistStatus represents the lifecycle of a waiting-list entry.
type WaitlistStatus string

// Possible waiting-list statuses.
const (
	WaitlistStatusWaiting  WaitlistStatus = "WAITING"
	WaitlistStatusApproved WaitlistStatus = "APPROVED"
	WaitlistStatusEnrolled WaitlistStatus = "ENROLLED"
	WaitlistStatusExpired  WaitlistStatus = "EXPIRED"
)

// WaitlistEntry records a student waiting for a seat in a program. The
// database enforces one entry per (student, program).
type WaitlistEntry struct {
	ID        string         `db:"id" json:"id"`
	StudentID string         `db:"student_id" json:"student_id"`
	ProgramID string         `db:"program_id" json:"program_id"`
	Status    WaitlistStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
