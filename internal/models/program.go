package models

import "time"

// Program is the reusable template of a course offering. Sections are
// concrete instances of a program taught by one tutor.
type Program struct {
	ID                    string    `db:"id" json:"id"`
	Name                  string    `db:"name" json:"name"`
	Description           string    `db:"description" json:"description"`
	Price                 int64     `db:"price" json:"price"`
	DurationDays          int       `db:"duration_days" json:"duration_days"`
	GraceDays             int       `db:"grace_days" json:"grace_days"`
	MeetingsPerPeriod     int       `db:"meetings_per_period" json:"meetings_per_period"`
	MaxStudentsPerSection int       `db:"max_students_per_section" json:"max_students_per_section"`
	Active                bool      `db:"active" json:"active"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
