// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archmagece/gitcache/internal/cache"
	"github.com/archmagece/gitcache/internal/config"
	"github.com/archmagece/gitcache/internal/inventory"
	"github.com/archmagece/gitcache/internal/runner"
)

func newSyncCmd(ctx context.Context) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:          "sync",
		Short:        "Refresh every cached repository from upstream",
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

			slogger := newSlogLogger()
			engine := &cache.Engine{Runner: &runner.Git{Logger: slogger, MaxRetries: snapshot.MaxRetries}, Logger: slogger}

			results, err := inventory.Sync(ctx, engine, entries, parallel, slogger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var failed int
			for _, r := range results {
				name := fmt.Sprintf("%s/%s/%s", r.Entry.Host, r.Entry.Owner, r.Entry.Name)
				switch {
				case r.Skipped:
					fmt.Fprintf(out, "skip  %s (lock held)\n", name)
				case r.Err != nil:
					fmt.Fprintf(out, "fail  %s: %v\n", name, r.Err)
					failed++
				default:
					fmt.Fprintf(out, "ok    %s\n", name)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d caches failed to sync", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 4, "Maximum number of caches refreshed concurrently")
	return cmd
}
