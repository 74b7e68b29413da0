package models

import "time"

// ClientInfo is the profile view returned to the web companion. AccountEmail
// is decrypted.
type ClientInfo struct {
	AccountName             string         `json:"AccountName"`
	AccountEmail            string         `json:"AccountEmail"`
	AppCode                 int            `json:"AppCode"`
	RegistrationDate        time.Time      `json:"RegistrationDate"`
	RequestHistory          []HistoryEntry `json:"RequestHistory"`
	UsedTokens              int            `json:"UsedTokens"`
	MaxDailyTokens          int            `json:"MaxDailyTokens"`
	AverageTokensPerRequest float32        `json:"AverageTokensPerRequest"`
}
