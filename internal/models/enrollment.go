package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending      EnrollmentStatus = "PENDING"
	EnrollmentStatusPaid         EnrollmentStatus = "PAID"
	EnrollmentStatusActive       EnrollmentStatus = "ACTIVE"
	EnrollmentStatusExpired      EnrollmentStatus = "EXPIRED"
	EnrollmentStatusSlotReleased EnrollmentStatus = "SLOT_RELEASED"
	EnrollmentStatusCancelled    EnrollmentStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusSlotReleased || s == EnrollmentStatusCancelled
}

// Enrollment captures a student's claim on a section seat.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	SectionID        *string          `db:"section_id" json:"section_id,omitempty"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	StartDate        *time.Time       `db:"start_date" json:"start_date,omitempty"`
	ExpiryDate       *time.Time       `db:"expiry_date" json:"expiry_date,omitempty"`
	GraceExpiryDate  *time.Time       `db:"grace_expiry_date" json:"grace_expiry_date,omitempty"`
	MeetingsTotal    int              `db:"meetings_total" json:"meetings_total"`
	MeetingsAttended int              `db:"meetings_attended" json:"meetings_attended"`
	MeetingsRemain   int              `db:"meetings_remaining" json:"meetings_remaining"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and section info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail string  `db:"student_email" json:"student_email"`
	SectionLabel *string `db:"section_label" json:"section_label,omitempty"`
	ProgramName  *string `db:"program_name" json:"program_name,omitempty"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	SectionID string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
