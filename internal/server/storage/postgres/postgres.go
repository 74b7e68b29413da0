// Package postgres stores the snapshot document as a JSONB row in
// PostgreSQL. Every save also lands in snapshot_revisions, which keeps the
// last RevisionsKept documents per name for manual recovery. The schema is
// managed with goose migrations embedded in the binary.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/server/migrations"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	// DefaultDocumentName is the row key used when none is configured.
	DefaultDocumentName = "default"

	// RevisionsKept bounds snapshot_revisions per document name.
	RevisionsKept = 10
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

type Backend struct {
	db   *sql.DB
	name string
}

// New wraps an open database handle. It does not run migrations.
func New(db *sql.DB, name string) *Backend {
	if name == "" {
		name = DefaultDocumentName
	}
	return &Backend{db: db, name: name}
}

// Open connects with the pgx driver and brings the schema up to date.
func Open(ctx context.Context, dsn, name string) (*Backend, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return New(db, name), nil
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (b *Backend) Load(ctx context.Context) (*models.Snapshot, error) {
	var doc []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT document FROM snapshots WHERE name = $1`, b.name).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	snap := &models.Snapshot{}
	if err := json.Unmarshal(doc, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (b *Backend) Save(ctx context.Context, snap *models.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	err = withTx(ctx, b.db, func(ctx context.Context, tx dbtx) error {
		var rev int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO snapshots (name, document)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE
			SET document = EXCLUDED.document,
			    revision = snapshots.revision + 1,
			    updated_at = now()
			RETURNING revision`,
			b.name, doc).Scan(&rev)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_revisions (name, revision, document) VALUES ($1, $2, $3)`,
			b.name, rev, doc); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM snapshot_revisions WHERE name = $1 AND revision <= $2`,
			b.name, rev-RevisionsKept)
		return err
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}
