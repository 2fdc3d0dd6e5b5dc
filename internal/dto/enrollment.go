package dto

// EnrollRequest creates a PENDING enrollment for a student in a section.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// ApproveWaitlistRequest converts a waiting-list entry into a PENDING
// enrollment in the given section of the entry's program.
type ApproveWaitlistRequest struct {
	WaitlistID string `json:"waitlist_id" validate:"required"`
	SectionID  string `json:"section_id" validate:"required"`
}

// JoinWaitlistRequest places a student on a program's waiting list.
type JoinWaitlistRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ProgramID string `json:"program_id" validate:"required"`
}
