package models

import "time"

// HarvestRecord is one Thing as produced by a harvest run, in one language.
// The translated copy of a Thing is a separate record with Translated set.
type HarvestRecord struct {
	RunID      string    `json:"run_id"`
	Source     string    `json:"source"`
	Lang       string    `json:"lang"`
	Translated bool      `json:"translated"`
	HarvestAt  time.Time `json:"harvested_at"`
	Thing      Thing     `json:"thing"`
}
