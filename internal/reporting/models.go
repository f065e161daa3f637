package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// UsageSummaryRequest selects the half-open range [From, To).
type UsageSummaryRequest struct {
	Range TimeRange `json:"range"`
}

// UsageSummary aggregates call volume. It never carries call content.
type UsageSummary struct {
	Range TimeRange `json:"range"`

	TotalCalls   int `json:"total_calls"`
	ActiveOwners int `json:"active_owners"`

	// PerDay has one entry per UTC day in the range, zero-filled, oldest first.
	PerDay []DayCount `json:"per_day"`
}

type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD, UTC
	Calls int    `json:"calls"`
}
