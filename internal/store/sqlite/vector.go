// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/photostack-dev/photostack/internal/store"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore backed by SQLite with
// sqlite-vec. Distance is cosine; Query converts it to a similarity
// score (1 - distance) so callers sort by decreasing similarity.
type VectorStore struct {
	db         *sql.DB
	collection string
	dimensions int
}

// NewVectorStore opens (or creates) a SQLite database at dbPath and
// ensures the vec0 virtual table and companion payload table for the
// named collection exist. Creation is idempotent; an existing
// collection with the same dimension is reused as-is.
func NewVectorStore(dbPath, collection string, dimensions int) (*VectorStore, error) {
	if collection == "" || dimensions <= 0 {
		return nil, pserr.New(pserr.CodeStoreInvalidInput, "collection name and positive dimension required",
			pserr.Field("collection", collection), pserr.Field("dimension", dimensions))
	}
	// The collection name becomes part of table names, so it must be
	// a plain identifier.
	if !validCollectionName(collection) {
		return nil, pserr.New(pserr.CodeStoreInvalidInput, "collection name must contain only letters, digits, and underscores",
			pserr.Field("collection", collection))
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, pserr.Wrapf(err, pserr.CodeStoreOpenFailure, "opening sqlite db %s", dbPath)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, pserr.Wrap(err, pserr.CodeStoreOpenFailure, "pinging sqlite db")
	}

	if err := ensureCollection(db, collection, dimensions); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &VectorStore{db: db, collection: collection, dimensions: dimensions}, nil
}

// validCollectionName accepts [A-Za-z0-9_] only.
func validCollectionName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

func ensureCollection(db *sql.DB, collection string, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s_vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		collection, dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return pserr.Wrap(err, pserr.CodeStoreOpenFailure, "creating vectors virtual table",
			pserr.Field("collection", collection))
	}

	payloadDDL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s_payloads (
	id      TEXT PRIMARY KEY,
	payload TEXT NOT NULL DEFAULT '{}'
)`, collection)
	if _, err := db.Exec(payloadDDL); err != nil {
		return pserr.Wrap(err, pserr.CodeStoreOpenFailure, "creating payloads table",
			pserr.Field("collection", collection))
	}

	return nil
}

// Upsert inserts or replaces a vector and its payload.
func (v *VectorStore) Upsert(ctx context.Context, id string, vector []float32, payload store.ImagePayload) error {
	if len(vector) != v.dimensions {
		return pserr.New(pserr.CodeStoreInvalidInput, "vector dimension mismatch",
			pserr.Field("want", v.dimensions), pserr.Field("got", len(vector)))
	}

	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "serializing embedding")
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "marshalling payload")
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+v.collection+`_vectors WHERE id = ?`, id); err != nil {
		return pserr.Wrapf(err, pserr.CodeStoreDatabaseFailure, "deleting existing vector %s", id)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO `+v.collection+`_vectors(id, embedding) VALUES (?, ?)`, id, blob); err != nil {
		return pserr.Wrapf(err, pserr.CodeStoreDatabaseFailure, "inserting vector %s", id)
	}

	payloadQ := `INSERT INTO ` + v.collection + `_payloads(id, payload) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`
	if _, err := tx.ExecContext(ctx, payloadQ, id, string(payloadJSON)); err != nil {
		return pserr.Wrapf(err, pserr.CodeStoreDatabaseFailure, "upserting payload %s", id)
	}

	if err := tx.Commit(); err != nil {
		return pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "committing upsert")
	}
	return nil
}

// Query performs a k-nearest-neighbor search ordered by decreasing
// cosine similarity.
func (v *VectorStore) Query(ctx context.Context, vector []float32, limit int) ([]store.VectorResult, error) {
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "serializing query vector")
	}

	q := `SELECT v.id, v.distance, COALESCE(p.payload, '{}')
FROM ` + v.collection + `_vectors v
LEFT JOIN ` + v.collection + `_payloads p ON p.id = v.id
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance`

	rows, err := v.db.QueryContext(ctx, q, blob, limit)
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	var results []store.VectorResult
	for rows.Next() {
		var r store.VectorResult
		var distance float64
		var payloadStr string

		if err := rows.Scan(&r.ID, &distance, &payloadStr); err != nil {
			return nil, pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "scanning vector result")
		}

		r.Score = 1 - distance
		if payloadStr != "" && payloadStr != "{}" {
			if err := json.Unmarshal([]byte(payloadStr), &r.Payload); err != nil {
				return nil, pserr.Wrapf(err, pserr.CodeStoreDatabaseFailure, "unmarshalling payload %s", r.ID)
			}
		}

		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "iterating vector results")
	}

	return results, nil
}

// Delete removes vectors and their payloads by ID.
func (v *VectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+v.collection+`_vectors WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "deleting vectors")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+v.collection+`_payloads WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "deleting payloads")
	}

	if err := tx.Commit(); err != nil {
		return pserr.Wrap(err, pserr.CodeStoreDatabaseFailure, "committing delete")
	}
	return nil
}

// Close closes the underlying database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}
