package models

// Snapshot is the persisted document. The entire document is rewritten on
// every mutation. RequestHistory is keyed by AppCode.
type Snapshot struct {
	Clients        []Client               `json:"Clients"`
	ClientReg      []PendingRegistration  `json:"ClientReg"`
	ClientUsage    []UsageRecord          `json:"ClientUsage"`
	RequestHistory map[int][]HistoryEntry `json:"RequestHistory"`
}

// Section names of the snapshot inside a larger JSON document.
const (
	SectionClients        = "Clients"
	SectionClientReg      = "ClientReg"
	SectionClientUsage    = "ClientUsage"
	SectionRequestHistory = "RequestHistory"
)
