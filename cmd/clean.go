// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archmagece/gitcache/internal/config"
	"github.com/archmagece/gitcache/internal/identity"
	"github.com/archmagece/gitcache/internal/inventory"
)

func newCleanCmd(_ context.Context) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:          "clean [url]",
		Short:        "Remove caches whose checkouts are absent",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := config.Load()
			if err != nil {
				return err
			}

			req := inventory.CleanRequest{
				CacheRoot:     snapshot.CacheRoot,
				CheckoutRoot:  snapshot.CheckoutRoot,
				ForkNamespace: snapshot.ForkNamespace,
				Force:         force,
			}

			if len(args) == 1 {
				id, err := identity.Parse(args[0])
				if err != nil {
					return exitCodeError{err: err, code: 2}
				}
				req.FilterHost, req.FilterOwner, req.FilterName = id.Host, id.Owner, id.Name
			}

			result, err := inventory.Clean(req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range result.Removed {
				fmt.Fprintf(out, "removed %s/%s/%s\n", e.Host, e.Owner, e.Name)
			}
			for _, e := range result.Skipped {
				fmt.Fprintf(out, "skipped %s/%s/%s (checkout still present; use --force)\n", e.Host, e.Owner, e.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Destroy referencing checkouts before removing their cache")
	return cmd
}
