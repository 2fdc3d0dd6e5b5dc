package models

import "time"

// MeetingStatus represents the lifecycle of a scheduled meeting.
type MeetingStatus string

// Possible meeting statuses.
const (
	MeetingStatusScheduled MeetingStatus = "SCHEDULED"
	MeetingStatusOngoing   MeetingStatus = "ONGOING"
	MeetingStatusCompleted MeetingStatus = "COMPLETED"
	MeetingStatusCancelled MeetingStatus = "CANCELLED"
)

// Meeting is a single scheduled session of a section.
type Meeting struct {
	ID          string        `db:"id" json:"id"`
	SectionID   string        `db:"section_id" json:"section_id"`
	TutorID     string        `db:"tutor_id" json:"tutor_id"`
	Topic       string        `db:"topic" json:"topic"`
	ScheduledAt time.Time     `db:"scheduled_at" json:"scheduled_at"`
	DurationMin int           `db:"duration_min" json:"duration_min"`
	Status      MeetingStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// EndsAt returns the exclusive end of the meeting interval.
func (m Meeting) EndsAt() time.Time {
	return m.ScheduledAt.Add(time.Duration(m.DurationMin) * time.Minute)
}

// AttendanceStatus represents a student's attendance for one meeting.
type AttendanceStatus string

// Possible attendance statuses. Rows start as PENDING placeholders created
// when the meeting is scheduled.
const (
	AttendanceStatusPending AttendanceStatus = "PENDING"
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
)

// Attendance links an enrollment to a meeting.
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	MeetingID    string           `db:"meeting_id" json:"meeting_id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	Status       AttendanceStatus `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}
