// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

// OutcomeStatus tags what happened to one detected file.
type OutcomeStatus string

const (
	// OutcomeProcessed means the submit succeeded.
	OutcomeProcessed OutcomeStatus = "processed"
	// OutcomeFailed means the submit was attempted and failed.
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeSkipped means the file was abandoned before submit:
	// vanished, never stabilized, or duplicate session content.
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Outcome is the result of handling one file. Reason is set for
// failed and skipped outcomes.
type Outcome struct {
	Status OutcomeStatus
	Reason string
}

// Config controls the live watcher.
type Config struct {
	Dirs             []string
	PollInterval     time.Duration
	StabilizeTimeout time.Duration
	Extensions       []string
}

// Watcher monitors drop directories, waits for files to finish
// writing, and submits each stable file exactly once per session.
// Submitted files are moved into processed/ or failed/ next to where
// they landed.
type Watcher struct {
	cfg       Config
	submitter Submitter
	fsw       *fsnotify.Watcher
	seen      *sessionSet
	exts      map[string]bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	handled sync.WaitGroup
}

// New creates a Watcher. It does not start watching until Start.
func New(cfg Config, submitter Submitter) (*Watcher, error) {
	if len(cfg.Dirs) == 0 {
		return nil, pserr.New(pserr.CodeWatcherStartFailure, "no watch directories configured")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.StabilizeTimeout <= 0 {
		cfg.StabilizeTimeout = 30 * time.Second
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeWatcherStartFailure, "creating fsnotify watcher")
	}

	exts := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		exts[strings.ToLower(e)] = true
	}

	return &Watcher{
		cfg:       cfg,
		submitter: submitter,
		fsw:       fsw,
		seen:      newSessionSet(),
		exts:      exts,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a
// goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.cfg.Dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return pserr.Wrap(err, pserr.CodeWatcherStartFailure, "creating watch directory")
		}
		if err := w.fsw.Add(dir); err != nil {
			return pserr.Wrap(err, pserr.CodeWatcherStartFailure, "watching directory")
		}
		slog.Info("watcher: watching directory", "dir", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop shuts the watcher down and waits for in-flight file handlers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.handled.Wait()

	if err := w.fsw.Close(); err != nil {
		slog.Error("watcher: closing fsnotify watcher", "error", err)
	}
	slog.Info("watcher: stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("watcher: fsnotify error", "error", err)
		}
	}
}

// handleEvent dispatches one filesystem event. Moves into a watched
// directory surface as Create events, so Create is the only op that
// matters. Stabilization happens off the event loop; one goroutine
// per path keeps a slow writer from blocking detection.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create == 0 {
		return
	}
	if !w.wantsFile(event.Name) {
		return
	}

	w.handled.Add(1)
	go func() {
		defer w.handled.Done()
		outcome := w.HandleFile(ctx, event.Name)
		w.route(event.Name, outcome)
	}()
}

// wantsFile filters out hidden files, editor temp files, directories,
// and extensions outside the allow-list.
func (w *Watcher) wantsFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	if len(w.exts) > 0 && !w.exts[strings.ToLower(filepath.Ext(base))] {
		return false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return false
	}
	return true
}

// HandleFile waits for the file to stabilize, skips duplicate session
// content, and submits it. It never retries.
func (w *Watcher) HandleFile(ctx context.Context, path string) Outcome {
	if err := w.stabilize(ctx, path); err != nil {
		slog.Debug("watcher: abandoning file", "path", path, "reason", err)
		return Outcome{Status: OutcomeSkipped, Reason: err.Error()}
	}

	hash, err := hashFile(path)
	if err != nil {
		slog.Debug("watcher: abandoning file", "path", path, "reason", err)
		return Outcome{Status: OutcomeSkipped, Reason: err.Error()}
	}
	if w.seen.SeenOrAdd(hash) {
		slog.Info("watcher: duplicate content this session, skipping", "path", path)
		return Outcome{Status: OutcomeSkipped, Reason: "duplicate content"}
	}

	slog.Info("watcher: file stable, submitting", "path", path)
	if err := w.submitter.Submit(ctx, path); err != nil {
		slog.Warn("watcher: submit failed", "path", path, "error", err)
		return Outcome{Status: OutcomeFailed, Reason: err.Error()}
	}
	return Outcome{Status: OutcomeProcessed}
}

// stabilize polls the file size until two consecutive polls agree.
// A vanished file or an exceeded timeout abandons the file.
func (w *Watcher) stabilize(ctx context.Context, path string) error {
	deadline := time.Now().Add(w.cfg.StabilizeTimeout)
	lastSize := int64(-1)

	for {
		info, err := os.Stat(path)
		if err != nil {
			return pserr.Wrap(err, pserr.CodeWatcherFileVanished, "file vanished during stabilization")
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()

		if time.Now().After(deadline) {
			return pserr.New(pserr.CodeWatcherFileVanished, "file did not stabilize before timeout")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// route moves a submitted file into processed/ or failed/ under its
// directory. Skipped files stay put. Move failures are logged only.
func (w *Watcher) route(path string, outcome Outcome) {
	var sub string
	switch outcome.Status {
	case OutcomeProcessed:
		sub = "processed"
	case OutcomeFailed:
		sub = "failed"
	default:
		return
	}

	destDir := filepath.Join(filepath.Dir(path), sub)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		slog.Warn("watcher: creating outcome directory", "dir", destDir, "error", err)
		return
	}
	dest := filepath.Join(destDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		slog.Warn("watcher: moving file", "path", path, "dest", dest, "error", err)
		return
	}
	slog.Info("watcher: routed file", "dest", dest, "status", outcome.Status)
}

// sessionSet remembers content hashes handled during this process
// run. It is not persisted; a restart clears it.
type sessionSet struct {
	mu     sync.Mutex
	hashes map[string]struct{}
}

func newSessionSet() *sessionSet {
	return &sessionSet{hashes: make(map[string]struct{})}
}

// SeenOrAdd reports whether the hash was already present, adding it
// when it was not.
func (s *sessionSet) SeenOrAdd(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[hash]; ok {
		return true
	}
	s.hashes[hash] = struct{}{}
	return false
}

// hashFile returns the hex sha256 of the file contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
