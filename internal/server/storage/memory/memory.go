// Package memory keeps the snapshot document in process memory. It is meant
// for tests and throwaway local runs; nothing survives a restart.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
)

type Backend struct {
	mu  sync.Mutex
	doc []byte
}

func New() *Backend {
	return &Backend{}
}

// Load decodes the last saved document, so callers never share memory with
// the backend.
func (b *Backend) Load(_ context.Context) (*models.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.doc == nil {
		return nil, common.ErrorNotFound
	}
	snap := &models.Snapshot{}
	if err := json.Unmarshal(b.doc, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (b *Backend) Save(_ context.Context, snap *models.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.doc = doc
	b.mu.Unlock()
	return nil
}

func (b *Backend) Close() error { return nil }
