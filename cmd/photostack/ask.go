// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/photostack-dev/photostack/internal/config"
	"github.com/photostack-dev/photostack/internal/qa"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question over the image collection",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	cmd.Flags().Int("top-k", 5, "number of records to ground the answer on")
	cmd.Flags().String("tag", "", "only records carrying this tag")
	cmd.Flags().String("category", "", "only records in this category")
	cmd.Flags().String("device", "", "only records captured on this device")
	cmd.Flags().Int("days", 0, "only records ingested in the last N days")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	filters := filtersFromFlags(cmd)

	payload := map[string]interface{}{
		"question": strings.Join(args, " "),
		"top_k":    topK,
	}
	if filters != nil {
		payload["filters"] = filters
	}

	var resp qa.Response
	client := newAPIClient(cfg.Ingest.Endpoint)
	if err := client.postJSON("/photostack/query", payload, &resp); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), resp.Answer); err != nil {
		return err
	}
	if len(resp.Matches) > 0 {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), "\nGrounded on:"); err != nil {
			return err
		}
		for _, m := range resp.Matches {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "  %.3f  %s  %s\n", m.Score, m.ID, m.Filename); err != nil {
				return err
			}
		}
	}
	return nil
}
