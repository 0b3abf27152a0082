// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/archmagece/gitcache/internal/config"
	"github.com/archmagece/gitcache/internal/inventory"
)

func newListCmd(_ context.Context) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List cached repositories",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := config.Load()
			if err != nil {
				return err
			}

			entries, err := inventory.List(snapshot.CacheRoot, snapshot.CheckoutRoot, snapshot.ForkNamespace)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Repository", "Size", "Last Sync", "Refs", "Readonly", "Modifiable")
			for _, e := range entries {
				lastSync := "-"
				if !e.LastSync.IsZero() {
					lastSync = e.LastSync.Format("2006-01-02T15:04:05Z07:00")
				}
				if err := table.Append(
					fmt.Sprintf("%s/%s/%s", e.Host, e.Owner, e.Name),
					humanSize(e.SizeBytes),
					lastSync,
					fmt.Sprintf("%d", e.RefCount),
					fmt.Sprintf("%t", e.ReadonlyExists),
					fmt.Sprintf("%t", e.ModifiableExists),
				); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit inventory entries as JSON")
	return cmd
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
