// Package file stores the snapshot as sections of a JSON document on local
// disk.
//
// The document may be shared with other settings (an operator might keep the
// wrapped deployment secret next to the client data). Top-level keys other
// than the snapshot sections are read back and written out unchanged.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
)

type Backend struct {
	path string
}

// New returns a backend writing to path. The parent directory is created if
// it does not exist.
func New(path string) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: store path is required", common.ErrorInvalidArgument)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Backend{path: path}, nil
}

func (b *Backend) Path() string { return b.path }

func (b *Backend) Load(_ context.Context) (*models.Snapshot, error) {
	doc, err := b.readDocument()
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, common.ErrorNotFound
	}

	snap := &models.Snapshot{}
	sections := []struct {
		name string
		dst  any
	}{
		{models.SectionClients, &snap.Clients},
		{models.SectionClientReg, &snap.ClientReg},
		{models.SectionClientUsage, &snap.ClientUsage},
		{models.SectionRequestHistory, &snap.RequestHistory},
	}
	for _, s := range sections {
		raw, ok := doc[s.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, s.dst); err != nil {
			return nil, fmt.Errorf("decode %s section: %w", s.name, err)
		}
	}
	return snap, nil
}

// Save rewrites the snapshot sections of the document atomically. Readers
// see either the previous document or the new one, never a partial write.
func (b *Backend) Save(_ context.Context, snap *models.Snapshot) error {
	doc, err := b.readDocument()
	if err != nil {
		return err
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage, 4)
	}

	sections := map[string]any{
		models.SectionClients:        snap.Clients,
		models.SectionClientReg:      snap.ClientReg,
		models.SectionClientUsage:    snap.ClientUsage,
		models.SectionRequestHistory: snap.RequestHistory,
	}
	for name, v := range sections {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s section: %w", name, err)
		}
		doc[name] = raw
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return writeAtomic(b.path, out)
}

func (b *Backend) Close() error { return nil }

// readDocument returns nil, nil when the file does not exist.
func (b *Backend) readDocument() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	return doc, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
