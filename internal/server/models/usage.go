package models

import "time"

// UsageRecord tracks one client's quota for the current daily window.
type UsageRecord struct {
	AppCode              int        `json:"AppCode"`
	FirstRequestAt       *time.Time `json:"FirstRequest"`
	MaxAllowedDailyUnits int        `json:"MaxAllowedDailyRequests"`
	CurrentDailyUnits    int        `json:"CurrentDailyRequests"`
}

// HistoryEntry records one admitted generation request.
type HistoryEntry struct {
	RequestTime time.Time `json:"RequestTime"`
	UnitsUsed   int       `json:"TokensUsed"`
	FirstWords  []string  `json:"FirstWords"`
}
