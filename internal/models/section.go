package models

import "time"

// SectionStatus represents the availability of a section.
type SectionStatus string

// Possible section statuses. ACTIVE and FULL flip based on the maintained
// enrollment counter; CLOSED sections accept no new enrollments at all.
const (
	SectionStatusActive SectionStatus = "ACTIVE"
	SectionStatusFull   SectionStatus = "FULL"
	SectionStatusClosed SectionStatus = "CLOSED"
)

// Section is a concrete offering of a program taught by one tutor.
// CurrentEnrollments is a denormalised counter maintained by application
// code inside the transitions that change it; Reconcile resyncs drift.
type Section struct {
	ID                 string        `db:"id" json:"id"`
	ProgramID          string        `db:"program_id" json:"program_id"`
	TutorID            string        `db:"tutor_id" json:"tutor_id"`
	Label              string        `db:"label" json:"label"`
	Status             SectionStatus `db:"status" json:"status"`
	CurrentEnrollments int           `db:"current_enrollments" json:"current_enrollments"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// SectionDetail enriches Section with program and tutor info.
type SectionDetail struct {
	Section
	ProgramName string `db:"program_name" json:"program_name"`
	TutorName   string `db:"tutor_name" json:"tutor_name"`
	MaxStudents int    `db:"max_students" json:"max_students"`
}

// SectionFilter provides filters for listing sections.
type SectionFilter struct {
	ProgramID string
	TutorID   string
	Status    SectionStatus
	Page      int
	PageSize  int
}
