// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package store

import "context"

// VectorStore is the durable id -> (vector, payload) collection.
// Implementations guarantee single-point atomicity per Upsert and
// nothing more.
type VectorStore interface {
	// Upsert overwrites any existing record with the same id.
	Upsert(ctx context.Context, id string, vector []float32, payload ImagePayload) error
	// Query returns up to limit results ordered by decreasing similarity.
	Query(ctx context.Context, vector []float32, limit int) ([]VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	Close() error
}

// ChangeIndex is the durable path -> (mtime, hash, last-ingested)
// table used by the scan reconciler to skip unchanged files. It is
// written by a single sequential scan loop; concurrent reads during a
// scan are safe.
type ChangeIndex interface {
	// Get returns the record for path, or (nil, nil) when absent.
	Get(ctx context.Context, path string) (*FileRecord, error)
	// Upsert replaces any prior record for the same path.
	Upsert(ctx context.Context, rec *FileRecord) error
	Close() error
}
