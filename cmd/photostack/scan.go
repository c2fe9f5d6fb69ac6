// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/photostack-dev/photostack/internal/config"
	"github.com/photostack-dev/photostack/internal/store/sqlite"
	"github.com/photostack-dev/photostack/internal/watcher"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Reconcile watch directories against the change index",
		Long:  "Sweep the configured directories, submit files whose content changed since the last sweep, and record them in the change index.",
		RunE:  runScan,
	}
	cmd.Flags().Bool("once", false, "run a single sweep and exit")
	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.Watch.Dirs) == 0 {
		return fmt.Errorf("no directories configured (watch.dirs)")
	}

	index, err := sqlite.OpenChangeIndex(cfg.Index.Path)
	if err != nil {
		return fmt.Errorf("opening change index: %w", err)
	}
	defer index.Close()

	scanner := watcher.NewScanner(
		cfg.Watch.Dirs,
		index,
		watcher.NewClient(cfg.Ingest.Endpoint),
		cfg.Scan.Interval,
		cfg.Watch.Extensions,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once, _ := cmd.Flags().GetBool("once"); once {
		stats, err := scanner.ScanOnce(ctx)
		if err != nil {
			return fmt.Errorf("scanning: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, submitted %d, unchanged %d, failed %d\n",
			stats.Scanned, stats.Submitted, stats.Unchanged, stats.Failed)
		return err
	}

	if err := scanner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
