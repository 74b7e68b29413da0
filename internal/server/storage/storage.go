// Package storage selects the snapshot backend named in the configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/logging"
	"github.com/dmitrijs2005/loremgate/internal/server/config"
	"github.com/dmitrijs2005/loremgate/internal/server/storage/file"
	"github.com/dmitrijs2005/loremgate/internal/server/storage/memory"
	"github.com/dmitrijs2005/loremgate/internal/server/storage/postgres"
	"github.com/dmitrijs2005/loremgate/internal/server/storage/s3store"
	"github.com/dmitrijs2005/loremgate/internal/server/store"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Backend is a store.Persister that holds resources until closed.
type Backend interface {
	store.Persister
	Close() error
}

// openPostgres and openS3 are seams for tests.
var (
	openPostgres = func(ctx context.Context, dsn, name string) (Backend, error) {
		return postgres.Open(ctx, dsn, name)
	}
	openS3 = func(ctx context.Context, s s3store.Settings) (Backend, error) {
		return s3store.New(ctx, s)
	}
)

func Open(ctx context.Context, cfg *config.Config, l logging.Logger) (Backend, error) {
	l = l.With("module", "storage")

	var (
		b   Backend
		err error
	)
	switch cfg.StoreBackend {
	case BackendMemory:
		b = memory.New()
	case BackendFile, "":
		b, err = file.New(cfg.StorePath)
	case BackendPostgres:
		b, err = openPostgres(ctx, cfg.DatabaseDSN, cfg.DocumentName)
	case BackendS3:
		b, err = openS3(ctx, s3store.Settings{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
			ObjectKey:    cfg.S3ObjectKey,
		})
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", common.ErrorInvalidArgument, cfg.StoreBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.StoreBackend, err)
	}

	l.Info(ctx, "snapshot backend ready", "backend", cfg.StoreBackend)
	return b, nil
}
