package dto

// CronSummary reports the outcome of one batch job run. Processed counts
// records that completed their transition; per-record failures land in
// Errors without aborting the rest of the batch.
type CronSummary struct {
	Job       string   `json:"job"`
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors,omitempty"`
}

// Failed reports how many records errored during the run.
func (s CronSummary) Failed() int {
	return len(s.Errors)
}
