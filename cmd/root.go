// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archmagece/gitcache/internal/logger"
)

var (
	verbose bool
	debug   bool
	quiet   bool
)

func newRootCmd(ctx context.Context, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "gitcache",
		Short: "Caching front-end for repository cloning",
		Long: "gitcache maintains a shared bare object-store cache per repository " +
			"and builds read-only and modifiable checkouts from it, with " +
			"process-safe locking and optional GitHub fork reconciliation.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetGlobalLoggingFlags(verbose, debug, quiet)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newCloneCmd(ctx))
	root.AddCommand(newStatusCmd(ctx))
	root.AddCommand(newListCmd(ctx))
	root.AddCommand(newSyncCmd(ctx))
	root.AddCommand(newCleanCmd(ctx))

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (shows all log levels)")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logs except critical errors")

	return root
}

// Execute invokes the command. A command whose RunE returned an
// exitCodeError terminates the process with the exit code named in §6
// instead of the generic failure code every other error maps to.
func Execute(ctx context.Context, version string) error {
	rootCmd := newRootCmd(ctx, version)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var withCode exitCodeError
	if errors.As(err, &withCode) {
		fmt.Fprintf(os.Stderr, "%v\n", withCode.Error())
		os.Exit(withCode.code)
	}

	return fmt.Errorf("error executing root command: %w", err)
}
