// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/photostack-dev/photostack/internal/config"
	"github.com/photostack-dev/photostack/internal/ingest"
	"github.com/photostack-dev/photostack/internal/provider/openai"
	"github.com/photostack-dev/photostack/internal/qa"
	"github.com/photostack-dev/photostack/internal/retrieval"
	"github.com/photostack-dev/photostack/internal/server"
	"github.com/photostack-dev/photostack/internal/store/sqlite"
	"github.com/photostack-dev/photostack/internal/watcher"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the PhotoStack server",
		Long:  "Load configuration, open the stores, and serve the ingestion, search, and QA API. Watch directories are monitored when configured.",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "override listen address (host:port)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	vectors, err := sqlite.NewVectorStore(cfg.Vector.Path, cfg.Vector.Collection, cfg.Vector.Dimension)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer vectors.Close()

	client, err := openai.New(openai.Config{
		APIKey:       cfg.Provider.APIKey,
		BaseURL:      cfg.Provider.BaseURL,
		EmbedModel:   cfg.Provider.EmbedModel,
		AutoTagModel: cfg.Provider.AutoTagModel,
		OCRModel:     cfg.Provider.OCRModel,
		QAModel:      cfg.Provider.QAModel,
		Dimensions:   cfg.Vector.Dimension,
	})
	if err != nil {
		return fmt.Errorf("creating provider client: %w", err)
	}

	orchestrator := ingest.New(cfg.Ingest.DataDir, client, client, client, vectors)

	engine := retrieval.NewEngine(vectors, client)
	synthesizer := qa.NewSynthesizer(engine, client)

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.RegisterServices(&server.Services{
		Ingestor: orchestrator,
		Searcher: engine,
		Answerer: synthesizer,
	})

	if len(cfg.Watch.Dirs) > 0 {
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
		defer w.Stop()
	}

	slog.Info("photostack: serving", "listen", cfg.Server.Listen)
	return srv.Start(ctx)
}
