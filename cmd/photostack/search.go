// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/photostack-dev/photostack/internal/config"
	"github.com/photostack-dev/photostack/internal/retrieval"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search images by text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().Int("top-k", 10, "number of results")
	cmd.Flags().String("tag", "", "only matches carrying this tag")
	cmd.Flags().String("category", "", "only matches in this category")
	cmd.Flags().String("device", "", "only matches captured on this device")
	cmd.Flags().Int("days", 0, "only matches ingested in the last N days")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	filters := filtersFromFlags(cmd)

	payload := map[string]interface{}{
		"query": strings.Join(args, " "),
		"top_k": topK,
	}
	if filters != nil {
		payload["filters"] = filters
	}

	var result struct {
		Matches []retrieval.Match `json:"matches"`
	}
	client := newAPIClient(cfg.Ingest.Endpoint)
	if err := client.postJSON("/photostack/search/text", payload, &result); err != nil {
		return err
	}

	if len(result.Matches) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No matches.")
		return err
	}
	for _, m := range result.Matches {
		line := fmt.Sprintf("%.3f  %s  %s", m.Score, m.ID, m.Filename)
		if m.Category != "" {
			line += "  [" + m.Category + "]"
		}
		if len(m.Tags) > 0 {
			line += "  " + strings.Join(m.Tags, ",")
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return err
		}
	}
	return nil
}

// filtersFromFlags builds the shared filter payload, or nil when no
// filter flag was set.
func filtersFromFlags(cmd *cobra.Command) *retrieval.Filters {
	f := &retrieval.Filters{}
	f.Tag, _ = cmd.Flags().GetString("tag")
	f.Category, _ = cmd.Flags().GetString("category")
	f.Device, _ = cmd.Flags().GetString("device")
	if days, _ := cmd.Flags().GetInt("days"); days > 0 {
		f.Days = &days
	}
	if f.Empty() {
		return nil
	}
	return f
}
