// Package store holds the authoritative client state and persists it as a
// single snapshot document.
//
// Every mutation goes through Store.Update, which runs the caller's check →
// mutate sequence on a private copy of the state under one mutex, persists the
// copy and only then makes it current. A failed check or a failed persist
// leaves both the in-memory state and the persisted document untouched.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/logging"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
)

// Persister loads and saves the snapshot document. Load returns
// common.ErrorNotFound when no document exists yet.
type Persister interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
}

// ErrNoChange may be returned by an Update callback that left the state as
// it found it. Update then skips the save and returns nil.
var ErrNoChange = errors.New("no change")

// PersistObserver is told how long each save took and whether it failed.
type PersistObserver func(d time.Duration, err error)

type Store struct {
	mu        sync.Mutex
	state     *State
	persister Persister
	logger    logging.Logger
	observe   PersistObserver
}

type Option func(*Store)

// WithPersistObserver registers fn to be called after every save.
func WithPersistObserver(fn PersistObserver) Option {
	return func(s *Store) { s.observe = fn }
}

func New(p Persister, l logging.Logger, opts ...Option) *Store {
	s := &Store{
		state:     newState(),
		persister: p,
		logger:    l.With("module", "store"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted document. A missing
// document leaves the store empty.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.persister.Load(ctx)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "no snapshot found, starting empty")
			snap = nil
		} else {
			return fmt.Errorf("load snapshot: %w", err)
		}
	}

	st := stateFromSnapshot(snap)

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.logger.Info(ctx, "snapshot loaded",
		"clients", len(st.Clients), "pending", len(st.Pending), "usage", len(st.Usage))
	return nil
}

// Update runs fn as one transaction. fn works on a copy of the state; if it
// returns an error the copy is dropped and the error is returned unchanged
// (ErrNoChange is swallowed).
// Otherwise the copy is persisted and, once the save succeeds, becomes the
// current state.
func (s *Store) Update(ctx context.Context, fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.Clone()
	if err := fn(work); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}

	if err := s.persist(ctx, work); err != nil {
		s.logger.Error(ctx, "persist failed", "error", err)
		return fmt.Errorf("%w: persist: %v", common.ErrorInternal, err)
	}

	s.state = work
	return nil
}

// View runs fn against the current state under the store lock. fn must not
// modify st or retain references to it.
func (s *Store) View(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *Store) persist(ctx context.Context, st *State) error {
	start := time.Now()
	err := s.persister.Save(ctx, st.Snapshot())
	if s.observe != nil {
		s.observe(time.Since(start), err)
	}
	return err
}
