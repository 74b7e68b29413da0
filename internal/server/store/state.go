package store

import (
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/server/models"
)

// State is the complete in-memory data set: active clients, pending
// registrations, usage records and per-client request history.
//
// State is not safe for concurrent use. It is only handed out by Store inside
// Update and View, which hold the store lock. Pointers returned by lookups
// stay valid until the next insert into the same collection.
type State struct {
	Clients []models.Client
	Pending []models.PendingRegistration
	Usage   []models.UsageRecord
	History map[int][]models.HistoryEntry
}

func newState() *State {
	return &State{History: make(map[int][]models.HistoryEntry)}
}

// ClientByAppCode returns the first client with the given app code.
func (s *State) ClientByAppCode(appCode int) *models.Client {
	for i := range s.Clients {
		if s.Clients[i].AppCode == appCode {
			return &s.Clients[i]
		}
	}
	return nil
}

// ClientByName matches the account name exactly. Used for the uniqueness
// check on registration.
func (s *State) ClientByName(name string) *models.Client {
	for i := range s.Clients {
		if s.Clients[i].AccountName == name {
			return &s.Clients[i]
		}
	}
	return nil
}

// ClientByNameFold matches the account name ignoring case. Used on the web
// login paths.
func (s *State) ClientByNameFold(name string) *models.Client {
	for i := range s.Clients {
		if strings.EqualFold(s.Clients[i].AccountName, name) {
			return &s.Clients[i]
		}
	}
	return nil
}

func (s *State) AddClient(c models.Client) {
	s.Clients = append(s.Clients, c)
}

// RemoveClient deletes the first client with the given app code.
func (s *State) RemoveClient(appCode int) bool {
	for i := range s.Clients {
		if s.Clients[i].AppCode == appCode {
			s.Clients = slices.Delete(s.Clients, i, i+1)
			return true
		}
	}
	return false
}

func (s *State) PendingByCode(code int) *models.PendingRegistration {
	for i := range s.Pending {
		if s.Pending[i].RegistrationCode == code {
			return &s.Pending[i]
		}
	}
	return nil
}

func (s *State) AddPending(p models.PendingRegistration) {
	s.Pending = append(s.Pending, p)
}

func (s *State) RemovePending(code int) bool {
	for i := range s.Pending {
		if s.Pending[i].RegistrationCode == code {
			s.Pending = slices.Delete(s.Pending, i, i+1)
			return true
		}
	}
	return false
}

// SweepExpiredPending drops every pending registration whose code expired
// before now and returns how many were dropped.
func (s *State) SweepExpiredPending(now time.Time) int {
	before := len(s.Pending)
	s.Pending = slices.DeleteFunc(s.Pending, func(p models.PendingRegistration) bool {
		return p.Expired(now)
	})
	return before - len(s.Pending)
}

func (s *State) UsageFor(appCode int) *models.UsageRecord {
	for i := range s.Usage {
		if s.Usage[i].AppCode == appCode {
			return &s.Usage[i]
		}
	}
	return nil
}

// AddUsage appends rec and returns a pointer to the stored copy.
func (s *State) AddUsage(rec models.UsageRecord) *models.UsageRecord {
	s.Usage = append(s.Usage, rec)
	return &s.Usage[len(s.Usage)-1]
}

func (s *State) RemoveUsage(appCode int) bool {
	for i := range s.Usage {
		if s.Usage[i].AppCode == appCode {
			s.Usage = slices.Delete(s.Usage, i, i+1)
			return true
		}
	}
	return false
}

// RecordHistory puts e at the head of the app code's history and keeps at
// most limit entries.
func (s *State) RecordHistory(appCode int, e models.HistoryEntry, limit int) {
	if s.History == nil {
		s.History = make(map[int][]models.HistoryEntry)
	}
	h := append([]models.HistoryEntry{e}, s.History[appCode]...)
	if len(h) > limit {
		h = h[:limit]
	}
	s.History[appCode] = h
}

// HistoryFor returns a copy of the app code's history, newest first.
func (s *State) HistoryFor(appCode int) []models.HistoryEntry {
	return cloneHistory(s.History[appCode])
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := &State{
		Clients: slices.Clone(s.Clients),
		Pending: slices.Clone(s.Pending),
		Usage:   make([]models.UsageRecord, len(s.Usage)),
		History: make(map[int][]models.HistoryEntry, len(s.History)),
	}
	for i, u := range s.Usage {
		if u.FirstRequestAt != nil {
			t := *u.FirstRequestAt
			u.FirstRequestAt = &t
		}
		c.Usage[i] = u
	}
	for k, v := range s.History {
		c.History[k] = cloneHistory(v)
	}
	return c
}

func cloneHistory(h []models.HistoryEntry) []models.HistoryEntry {
	if h == nil {
		return nil
	}
	out := make([]models.HistoryEntry, len(h))
	for i, e := range h {
		e.FirstWords = slices.Clone(e.FirstWords)
		out[i] = e
	}
	return out
}

// Snapshot converts the state to the persisted document.
func (s *State) Snapshot() *models.Snapshot {
	c := s.Clone()
	snap := &models.Snapshot{
		Clients:        c.Clients,
		ClientReg:      c.Pending,
		ClientUsage:    c.Usage,
		RequestHistory: c.History,
	}
	if snap.Clients == nil {
		snap.Clients = []models.Client{}
	}
	if snap.ClientReg == nil {
		snap.ClientReg = []models.PendingRegistration{}
	}
	if snap.ClientUsage == nil {
		snap.ClientUsage = []models.UsageRecord{}
	}
	return snap
}

// stateFromSnapshot rebuilds state from a persisted document. A nil snapshot
// yields an empty state.
func stateFromSnapshot(snap *models.Snapshot) *State {
	if snap == nil {
		return newState()
	}
	s := &State{
		Clients: snap.Clients,
		Pending: snap.ClientReg,
		Usage:   snap.ClientUsage,
		History: snap.RequestHistory,
	}
	if s.History == nil {
		s.History = make(map[int][]models.HistoryEntry)
	}
	return s.Clone()
}
