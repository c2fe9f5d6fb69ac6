// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photostack-dev/photostack/internal/store/sqlite"
	"github.com/photostack-dev/photostack/internal/watcher"
)

func newTestScanner(t *testing.T, dir string, sub watcher.Submitter) *watcher.Scanner {
	t.Helper()
	index, err := sqlite.OpenChangeIndex(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return watcher.NewScanner([]string{dir}, index, sub, time.Minute, []string{".jpg", ".png"})
}

func TestScanOnce_NewFilesSubmittedAndRecorded(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	s := newTestScanner(t, dir, sub)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("aa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("bb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("cc"), 0o644))

	stats, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Submitted)
	assert.Equal(t, 0, stats.Unchanged)
	assert.Len(t, sub.submitted(), 2)
}

func TestScanOnce_UnchangedSweepPerformsZeroSubmits(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	s := newTestScanner(t, dir, sub)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("aa"), 0o644))

	_, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, sub.submitted(), 1)

	stats, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 0, stats.Submitted)
	assert.Len(t, sub.submitted(), 1, "no new submits on an unchanged sweep")
}

func TestScanOnce_TouchedButIdenticalContentNotResubmitted(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	s := newTestScanner(t, dir, sub)

	path := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("aa"), 0o644))

	_, err := s.ScanOnce(context.Background())
	require.NoError(t, err)

	// Bump the mtime without changing the bytes.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	stats, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 0, stats.Submitted)
	assert.Len(t, sub.submitted(), 1)
}

func TestScanOnce_ChangedContentResubmitted(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	s := newTestScanner(t, dir, sub)

	path := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("aa"), 0o644))

	_, err := s.ScanOnce(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("rewritten"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	stats, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Submitted)
	assert.Len(t, sub.submitted(), 2)
}

func TestScanOnce_SkipsJunkAndOutcomeDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	s := newTestScanner(t, dir, sub)

	for _, name := range []string{".git", "node_modules", "processed", "failed"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name, "x.jpg"), []byte("x"), 0o644))
	}

	stats, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Scanned)
	assert.Empty(t, sub.submitted())
}

func TestScanOnce_SubmitFailureSkipsRecording(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{err: assert.AnError}
	s := newTestScanner(t, dir, sub)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("aa"), 0o644))

	stats, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	// The failed file was never recorded, so the next sweep retries it.
	sub.err = nil
	stats, err = s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Submitted)
}
