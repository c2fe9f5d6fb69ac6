// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/photostack-dev/photostack/internal/store"
	"github.com/photostack-dev/photostack/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeIndex_GetAbsent(t *testing.T) {
	idx, err := sqlite.OpenChangeIndex(testDBPath(t, "index"))
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	rec, err := idx.Get(context.Background(), "/inbox/missing.jpg")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestChangeIndex_UpsertThenGet(t *testing.T) {
	ctx := context.Background()
	idx, err := sqlite.OpenChangeIndex(testDBPath(t, "index-roundtrip"))
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	mtime := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rec := &store.FileRecord{
		Path:         "/inbox/a.jpg",
		MTime:        mtime,
		Hash:         "deadbeef",
		LastIngested: mtime.Add(time.Minute),
	}
	require.NoError(t, idx.Upsert(ctx, rec))

	got, err := idx.Get(ctx, "/inbox/a.jpg")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Path, got.Path)
	assert.True(t, got.MTime.Equal(mtime))
	assert.Equal(t, "deadbeef", got.Hash)
	assert.True(t, got.LastIngested.Equal(mtime.Add(time.Minute)))
}

func TestChangeIndex_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx, err := sqlite.OpenChangeIndex(testDBPath(t, "index-replace"))
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	now := time.Now().UTC().Truncate(time.Microsecond)
	first := &store.FileRecord{Path: "/inbox/a.jpg", MTime: now, Hash: "aaaa", LastIngested: now}
	require.NoError(t, idx.Upsert(ctx, first))

	second := &store.FileRecord{Path: "/inbox/a.jpg", MTime: now.Add(time.Hour), Hash: "bbbb", LastIngested: now.Add(time.Hour)}
	require.NoError(t, idx.Upsert(ctx, second))

	got, err := idx.Get(ctx, "/inbox/a.jpg")
	require.NoError(t, err)
	require.NotNil(t, got)
	// Get must return the exact last-written record.
	assert.Equal(t, "bbbb", got.Hash)
	assert.True(t, got.MTime.Equal(now.Add(time.Hour)))
}

func TestChangeIndex_CreatesParentDirs(t *testing.T) {
	dir := testDir(t)
	idx, err := sqlite.OpenChangeIndex(dir + "/nested/deeper/index.db")
	require.NoError(t, err)
	require.NoError(t, idx.Close())
}
