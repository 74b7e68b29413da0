package common

import "time"

const (
	// SessionHeaderName carries the web session token on /clientInfo requests.
	SessionHeaderName = "Authorization"

	// RequestIDHeaderName is echoed back on every HTTP response.
	RequestIDHeaderName = "X-Request-ID"

	// CodeMin and CodeMax bound generated app and registration codes: [CodeMin, CodeMax).
	CodeMin = 100000
	CodeMax = 999999

	// DefaultMaxDailyUnits is the quota assigned to a fresh usage record.
	DefaultMaxDailyUnits = 50

	// ParagraphUnitCost is the number of units one requested paragraph costs.
	ParagraphUnitCost = 5

	// DefaultHistoryLimit bounds the per-client request history.
	DefaultHistoryLimit = 5

	// HistoryFirstWords is how many generated tokens a history entry keeps.
	HistoryFirstWords = 5

	// DefaultRegistrationTTL is how long a registration code stays confirmable.
	DefaultRegistrationTTL = 15 * time.Minute
)
