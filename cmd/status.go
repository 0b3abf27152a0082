// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archmagece/gitcache/internal/orchestrator"
)

func newStatusCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:          "status [url]",
		Short:        "Report cache and checkout state for a repository, without taking a lock",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrchestrator()
			if err != nil {
				return err
			}

			url := ""
			if len(args) == 1 {
				url = args[0]
			} else {
				url, err = currentCheckoutOriginURL(ctx, o)
				if err != nil {
					return err
				}
			}

			st, err := o.Status(ctx, url)
			if err != nil {
				return exitCodeError{err: err, code: orchestrator.ExitCode(err)}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "identity:   %s\n", st.Identity.String())
			fmt.Fprintf(out, "cache:      exists=%t valid=%t\n", st.CacheExists, st.CacheValid)
			if !st.LastSync.IsZero() {
				fmt.Fprintf(out, "last sync:  %s\n", st.LastSync.Format("2006-01-02T15:04:05Z07:00"))
			}
			fmt.Fprintf(out, "readonly:   exists=%t\n", st.ReadonlyExists)
			fmt.Fprintf(out, "modifiable: exists=%t\n", st.ModifiableExists)
			return nil
		},
	}
}

// currentCheckoutOriginURL resolves the repository identity from the
// current directory's origin remote, per SPEC_FULL.md §6's "resolved from
// a URL argument or the current directory if it is a known checkout."
func currentCheckoutOriginURL(ctx context.Context, o *orchestrator.Orchestrator) (string, error) {
	result, err := o.Runner.Run(ctx, ".", "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("no URL given and the current directory is not a known checkout: %w", err)
	}
	return strings.TrimSpace(result.Stdout), nil
}
