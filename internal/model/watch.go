package model

import "time"

// WatchEntry is the last analysis observed for one watched symbol.
type WatchEntry struct {
	Symbol         string         `json:"symbol"`
	Benchmark      string         `json:"benchmark"`
	AsOf           Date           `json:"as_of"`
	Normalized     float64        `json:"normalized"`
	Trend          Trend          `json:"trend"`
	Recommendation Recommendation `json:"recommendation"`
	ObservedAt     time.Time      `json:"observed_at"`
}

// WatchState tracks the watchlist between scheduled runs.
type WatchState struct {
	Entries   map[string]WatchEntry `json:"entries"`
	Runs      int                   `json:"runs"`
	LastRunAt time.Time             `json:"last_run_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}
