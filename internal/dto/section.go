package dto

// SectionAvailability is the cached seat-count projection served to the
// enrollment UI.
type SectionAvailability struct {
	SectionID   string `json:"section_id"`
	Label       string `json:"label"`
	TutorName   string `json:"tutor_name"`
	Status      string `json:"status"`
	MaxStudents int    `json:"max_students"`
	Occupied    int    `json:"occupied"`
	Available   int    `json:"available"`
}
