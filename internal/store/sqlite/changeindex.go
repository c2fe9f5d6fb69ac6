// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/photostack-dev/photostack/internal/store"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

var _ store.ChangeIndex = (*ChangeIndex)(nil)

// ChangeIndex is the durable path -> (mtime, hash, last-ingested)
// table backing the scan reconciler. Single sequential writer; WAL
// keeps concurrent readers safe during a scan.
type ChangeIndex struct {
	db *sql.DB
}

const changeIndexSchema = `
CREATE TABLE IF NOT EXISTS files (
	path           TEXT PRIMARY KEY,
	mtime_unix_ns  INTEGER NOT NULL,
	hash           TEXT NOT NULL,
	last_ingested  INTEGER NOT NULL
)`

// OpenChangeIndex opens (or creates) the change index database,
// creating parent directories as needed. Open failure is fatal to the
// scan process.
func OpenChangeIndex(dbPath string) (*ChangeIndex, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, pserr.Wrapf(err, pserr.CodeStoreOpenFailure, "creating index directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, pserr.Wrapf(err, pserr.CodeStoreOpenFailure, "opening change index %s", dbPath)
	}

	if _, err := db.Exec(changeIndexSchema); err != nil {
		_ = db.Close()
		return nil, pserr.Wrap(err, pserr.CodeStoreOpenFailure, "migrating change index")
	}

	return &ChangeIndex{db: db}, nil
}

// Get returns the record for path, or (nil, nil) when absent.
func (c *ChangeIndex) Get(ctx context.Context, path string) (*store.FileRecord, error) {
	const q = `SELECT path, mtime_unix_ns, hash, last_ingested FROM files WHERE path = ?`

	var rec store.FileRecord
	var mtimeNS, ingestedNS int64
	err := c.db.QueryRowContext(ctx, q, path).Scan(&rec.Path, &mtimeNS, &rec.Hash, &ingestedNS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pserr.Wrapf(err, pserr.CodeStoreDatabaseFailure, "loading file record %s", path)
	}

	rec.MTime = time.Unix(0, mtimeNS).UTC()
	rec.LastIngested = time.Unix(0, ingestedNS).UTC()
	return &rec, nil
}

// Upsert replaces any prior record for the same path.
func (c *ChangeIndex) Upsert(ctx context.Context, rec *store.FileRecord) error {
	const q = `
INSERT INTO files (path, mtime_unix_ns, hash, last_ingested)
VALUES (?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	mtime_unix_ns = excluded.mtime_unix_ns,
	hash          = excluded.hash,
	last_ingested = excluded.last_ingested`

	_, err := c.db.ExecContext(ctx, q, rec.Path, rec.MTime.UnixNano(), rec.Hash, rec.LastIngested.UnixNano())
	if err != nil {
		return pserr.Wrapf(err, pserr.CodeStoreDatabaseFailure, "upserting file record %s", rec.Path)
	}
	return nil
}

// Close closes the underlying database connection.
func (c *ChangeIndex) Close() error {
	return c.db.Close()
}
