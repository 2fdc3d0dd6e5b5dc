package models

import "time"

// Tutor represents a teaching staff member assigned to sections.
type Tutor struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TutorAvailability describes a weekly teaching window. Times are minutes
// since midnight in the institution's local timezone.
type TutorAvailability struct {
	ID        string `db:"id" json:"id"`
	TutorID   string `db:"tutor_id" json:"tutor_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	StartMin  int    `db:"start_min" json:"start_min"`
	EndMin    int    `db:"end_min" json:"end_min"`
}

// Covers reports whether the window fully contains [startMin, endMin).
func (a TutorAvailability) Covers(startMin, endMin int) bool {
	return startMin >= a.StartMin && endMin <= a.EndMin
}
