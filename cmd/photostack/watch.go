// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/photostack-dev/photostack/internal/config"
	"github.com/photostack-dev/photostack/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch drop directories and submit new images for ingestion",
		Long:  "Monitor the configured directories and submit each stable new image to the ingestion endpoint. Runs until interrupted.",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.Watch.Dirs) == 0 {
		return fmt.Errorf("no watch directories configured (watch.dirs)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(watcher.Config{
		Dirs:             cfg.Watch.Dirs,
		PollInterval:     cfg.Watch.PollInterval,
		StabilizeTimeout: cfg.Watch.StabilizeTimeout,
		Extensions:       cfg.Watch.Extensions,
	}, watcher.NewClient(cfg.Ingest.Endpoint))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	<-ctx.Done()
	w.Stop()
	return nil
}
