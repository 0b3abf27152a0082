// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archmagece/gitcache/internal/checkout"
	"github.com/archmagece/gitcache/internal/orchestrator"
)

func newCloneCmd(ctx context.Context) *cobra.Command {
	var (
		strategy  string
		depth     int
		force     bool
		recursive bool
		org       string
		private   bool
	)

	cmd := &cobra.Command{
		Use:          "clone <url>",
		Short:        "Clone a repository through the shared cache",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			strat, err := parseStrategy(strategy)
			if err != nil {
				return err
			}

			o, err := newOrchestrator()
			if err != nil {
				return err
			}

			record, err := o.Clone(ctx, orchestrator.CloneRequest{
				URL:       args[0],
				Strategy:  strat,
				Depth:     depth,
				Force:     force,
				Recursive: recursive,
				Org:       org,
				Private:   private,
				// Fork reconciliation is opt-in: naming a destination
				// namespace via --org is what signals contribution intent,
				// per spec.md §1's "optional automated creation of a
				// private fork."
				Fork: org != "",
			})
			if err != nil {
				return exitCodeError{err: err, code: orchestrator.ExitCode(err)}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cached:     %s\n", record.CachePath)
			fmt.Fprintf(cmd.OutOrStdout(), "readonly:   %s\n", record.ReadonlyPath)
			fmt.Fprintf(cmd.OutOrStdout(), "modifiable: %s\n", record.ModifiablePath)
			if record.ForkURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "fork:       %s\n", record.ForkURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "full", "Clone strategy: full|shallow|treeless|blobless")
	cmd.Flags().IntVar(&depth, "depth", 0, "History depth for the shallow strategy")
	cmd.Flags().BoolVar(&force, "force", false, "Remove and replace a non-empty checkout target")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "Clone submodules recursively")
	cmd.Flags().StringVar(&org, "org", "", "Destination namespace for the fork and the modifiable checkout; requesting one triggers fork reconciliation")
	cmd.Flags().BoolVar(&private, "private", false, "Set the fork's visibility to private")

	return cmd
}

func parseStrategy(s string) (checkout.Strategy, error) {
	switch checkout.Strategy(s) {
	case checkout.StrategyFull, checkout.StrategyShallow, checkout.StrategyTreeless, checkout.StrategyBlobless:
		return checkout.Strategy(s), nil
	default:
		return "", fmt.Errorf("unrecognized --strategy %q: want full, shallow, treeless, or blobless", s)
	}
}

// exitCodeError carries the process exit code §6 names alongside the
// underlying error, so Execute can translate it without re-deriving the
// gcerrors.Kind.
type exitCodeError struct {
	err  error
	code int
}

func (e exitCodeError) Error() string { return e.err.Error() }
func (e exitCodeError) Unwrap() error { return e.err }
