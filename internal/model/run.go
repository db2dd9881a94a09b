package model

import "time"

// RunSummary aggregates the per-item results of one scrape invocation.
type RunSummary struct {
	ID         string
	Brand      string
	SourceURL  string
	StartedAt  time.Time
	FinishedAt time.Time

	Seen       int
	Inserted   int
	Updated    int
	Unchanged  int
	Ineligible int
	Skipped    int
	Failed     int
	Published  int
}
