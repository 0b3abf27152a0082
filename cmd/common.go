// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"log/slog"
	"os"

	"github.com/archmagece/gitcache/internal/cache"
	"github.com/archmagece/gitcache/internal/checkout"
	"github.com/archmagece/gitcache/internal/config"
	"github.com/archmagece/gitcache/internal/logger"
	"github.com/archmagece/gitcache/internal/orchestrator"
	"github.com/archmagece/gitcache/internal/provider"
	"github.com/archmagece/gitcache/internal/provider/github"
	"github.com/archmagece/gitcache/internal/remotes"
	"github.com/archmagece/gitcache/internal/runner"
)

// newSlogLogger builds the logger every command shares, leveled by the
// root's persistent --verbose/--debug/--quiet flags. --debug switches to a
// JSON handler for machine consumption; every other mode uses the
// human-readable ConsoleHandler, per SPEC_FULL.md §4.1.
func newSlogLogger() *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if debug {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = logger.NewConsoleHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// newOrchestrator loads configuration and wires every component needed for
// clone/status, following the control flow of §2.
func newOrchestrator() (*orchestrator.Orchestrator, error) {
	snapshot, err := config.Load()
	if err != nil {
		return nil, err
	}

	slogger := newSlogLogger()
	gitRunner := &runner.Git{Logger: slogger, MaxRetries: snapshot.MaxRetries}

	var providerClient provider.Client
	if snapshot.GitHubToken != "" {
		providerClient = github.New(snapshot.GitHubToken, snapshot.MaxRateLimitWait, slogger)
	}

	return &orchestrator.Orchestrator{
		Config:   snapshot,
		Runner:   gitRunner,
		Cache:    &cache.Engine{Runner: gitRunner, Logger: slogger},
		Checkout: &checkout.Builder{Runner: gitRunner, Logger: slogger},
		Remotes:  &remotes.Programmer{Runner: gitRunner, Logger: slogger},
		Provider: providerClient,
		Logger:   slogger,
	}, nil
}
