package dto

import "time"

// ScheduleMeetingRequest schedules one session for a section.
type ScheduleMeetingRequest struct {
	SectionID   string    `json:"section_id" validate:"required"`
	Topic       string    `json:"topic" validate:"required,max=200"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	DurationMin int       `json:"duration_min" validate:"required,min=15,max=480"`
}
