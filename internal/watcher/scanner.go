// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/photostack-dev/photostack/internal/store"
)

// junkDirs are directory names the scanner never descends into.
var junkDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".cache":       true,
	"processed":    true,
	"failed":       true,
}

// ScanStats summarizes one reconciliation sweep.
type ScanStats struct {
	Scanned   int
	Unchanged int
	Submitted int
	Failed    int
}

// Scanner reconciles directories against the file change index,
// submitting files whose content changed since the last sweep.
type Scanner struct {
	dirs      []string
	index     store.ChangeIndex
	submitter Submitter
	interval  time.Duration
	exts      map[string]bool
}

// NewScanner creates a Scanner over the given directories.
func NewScanner(dirs []string, index store.ChangeIndex, submitter Submitter, interval time.Duration, extensions []string) *Scanner {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Scanner{dirs: dirs, index: index, submitter: submitter, interval: interval, exts: exts}
}

// Run sweeps on the configured interval until the context is done.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		stats, err := s.ScanOnce(ctx)
		if err != nil {
			return err
		}
		slog.Info("scan: sweep complete",
			"scanned", stats.Scanned,
			"unchanged", stats.Unchanged,
			"submitted", stats.Submitted,
			"failed", stats.Failed,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ScanOnce sweeps every configured directory a single time. Per-file
// problems skip only that file; walk errors on a directory abort the
// sweep.
func (s *Scanner) ScanOnce(ctx context.Context) (ScanStats, error) {
	var stats ScanStats

	for _, dir := range s.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if junkDirs[d.Name()] || (path != dir && strings.HasPrefix(d.Name(), ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !s.wantsFile(d.Name()) {
				return nil
			}

			stats.Scanned++
			s.reconcileFile(ctx, path, &stats)
			return nil
		})
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (s *Scanner) wantsFile(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	return len(s.exts) == 0 || s.exts[strings.ToLower(filepath.Ext(name))]
}

// reconcileFile applies the two-tier change check: an unchanged mtime
// skips without hashing; a changed mtime with an unchanged hash only
// refreshes the record; anything else is submitted and recorded.
func (s *Scanner) reconcileFile(ctx context.Context, path string, stats *ScanStats) {
	fi, err := statFile(path)
	if err != nil {
		slog.Warn("scan: stat failed, skipping", "path", path, "error", err)
		stats.Failed++
		return
	}

	rec, err := s.index.Get(ctx, path)
	if err != nil {
		slog.Warn("scan: change index lookup failed, skipping", "path", path, "error", err)
		stats.Failed++
		return
	}

	if rec != nil && rec.MTime.Equal(fi.mtime) {
		stats.Unchanged++
		return
	}

	hash, err := hashFile(path)
	if err != nil {
		slog.Warn("scan: hashing failed, skipping", "path", path, "error", err)
		stats.Failed++
		return
	}

	if rec != nil && rec.Hash == hash {
		// Touched but not changed. Refresh the mtime so the next
		// sweep stops at tier one.
		rec.MTime = fi.mtime
		if err := s.index.Upsert(ctx, rec); err != nil {
			slog.Warn("scan: refreshing record failed", "path", path, "error", err)
		}
		stats.Unchanged++
		return
	}

	if err := s.submitter.Submit(ctx, path); err != nil {
		slog.Warn("scan: submit failed", "path", path, "error", err)
		stats.Failed++
		return
	}

	if err := s.index.Upsert(ctx, &store.FileRecord{
		Path:         path,
		MTime:        fi.mtime,
		Hash:         hash,
		LastIngested: time.Now().UTC(),
	}); err != nil {
		slog.Warn("scan: recording ingested file failed", "path", path, "error", err)
	}
	stats.Submitted++
}

type fileInfo struct {
	mtime time.Time
}

func statFile(path string) (fileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileInfo{}, err
	}
	return fileInfo{mtime: info.ModTime().UTC()}, nil
}
