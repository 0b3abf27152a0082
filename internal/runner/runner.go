// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package runner is the single gateway to the external git binary, per
// §4.4 and §9's "Subprocess coupling: the Repo Runner is the single
// gateway to the external binary." It never builds a shell string —
// every invocation is an explicit argument vector passed to
// exec.CommandContext, the pattern this corpus's SecureGitExecutor used
// for the same reason.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/archmagece/gitcache/internal/gcerrors"
)

// MaxRetries bounds NETWORK_TRANSIENT retry attempts, per §4.4.
const MaxRetries = 3

// KindCommandFailed covers a nonzero git exit that matches none of the
// well-known stderr patterns — surfaced immediately, never retried.
const KindCommandFailed gcerrors.Kind = "COMMAND_FAILED"

// ProgressThreshold is the elapsed duration after which a progress
// indicator is emitted, per §4.4.
const ProgressThreshold = 2 * time.Second

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// RunResult captures the outcome of one git invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	Attempts int
}

// Runner invokes git. A *Git value is the production implementation; tests
// substitute a *Fake (see fake.go) so that no test in the module shells
// out to a real binary, per SPEC_FULL.md §4.4.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (RunResult, error)
}

// Git is the production Runner, invoking the system git binary.
type Git struct {
	// Path to the git binary. Resolved via exec.LookPath("git") if empty.
	Path string
	// Logger receives component/operation-tagged progress events.
	Logger *slog.Logger
	// MaxRetries bounds NETWORK_TRANSIENT retry attempts. Zero uses the
	// package default MaxRetries, sourced from config.Snapshot.MaxRetries
	// (GITCACHE_MAX_RETRIES) by the caller that constructs Git.
	MaxRetries int
}

func (g *Git) maxRetries() int {
	if g.MaxRetries > 0 {
		return g.MaxRetries
	}
	return MaxRetries
}

var networkTransientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)could not resolve host`),
	regexp.MustCompile(`(?i)connection (timed out|reset|refused)`),
	regexp.MustCompile(`(?i)the remote end hung up unexpectedly`),
	regexp.MustCompile(`(?i)early eof`),
	regexp.MustCompile(`(?i)network is unreachable`),
	regexp.MustCompile(`(?i)temporary failure in name resolution`),
}

var errorPatterns = []struct {
	pattern *regexp.Regexp
	kind    gcerrors.Kind
}{
	{regexp.MustCompile(`(?i)fatal: repository .* not found`), gcerrors.KindRepoCorrupt},
	{regexp.MustCompile(`(?i)authentication failed`), gcerrors.KindProviderAuth},
	{regexp.MustCompile(`(?i)permission denied`), gcerrors.KindPermissionDenied},
	{regexp.MustCompile(`(?i)no space left on device`), gcerrors.KindDiskFull},
}

// Run executes "git <args...>" with working directory dir, retrying only
// NETWORK_TRANSIENT failures with capped exponential backoff, per §4.4.
func (g *Git) Run(ctx context.Context, dir string, args ...string) (RunResult, error) {
	gitPath := g.Path
	if gitPath == "" {
		resolved, err := exec.LookPath("git")
		if err != nil {
			return RunResult{}, gcerrors.NewStageError("runner", gcerrors.KindPermissionDenied, dir,
				fmt.Errorf("git binary not found: %w", err))
		}
		gitPath = resolved
	}

	backoff := initialBackoff
	var lastErr error
	// The first attempt plus up to maxRetries retries.
	maxAttempts := g.maxRetries() + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := g.runOnce(ctx, gitPath, dir, args)
		result.Attempts = attempt
		if err == nil {
			return result, nil
		}

		kind := classifyStderr(result.Stderr)
		if kind == gcerrors.KindNetworkTransient && attempt < maxAttempts {
			lastErr = gcerrors.NewStageError("runner", kind, dir, err)
			g.logRetry(dir, args, attempt, backoff)
			select {
			case <-ctx.Done():
				return result, gcerrors.NewStageError("runner", gcerrors.KindCanceled, dir, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		if kind == gcerrors.KindNetworkTransient {
			kind = gcerrors.KindNetworkFailed
		}
		return result, gcerrors.NewStageError("runner", kind, dir, err)
	}

	return RunResult{}, lastErr
}

func (g *Git) runOnce(ctx context.Context, gitPath, dir string, args []string) (RunResult, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, gitPath, fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	done := make(chan struct{})
	barDone := make(chan struct{})
	go func() {
		defer close(barDone)
		select {
		case <-done:
			return
		case <-time.After(ProgressThreshold):
		}
		bar := progressbar.DefaultBytes(-1, fmt.Sprintf("git %s", strings.Join(args, " ")))
		<-done
		_ = bar.Finish()
	}()

	err := cmd.Run()
	close(done)
	<-barDone

	result := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if g.Logger != nil {
		g.Logger.Debug("git invocation",
			"component", "runner",
			"operation", args[0],
			"dir", dir,
			"duration", time.Since(start),
			"error", err != nil,
		)
	}

	return result, err
}

func (g *Git) logRetry(dir string, args []string, attempt int, backoff time.Duration) {
	if g.Logger == nil {
		return
	}
	g.Logger.Warn("retrying network-transient git failure",
		"component", "runner",
		"operation", strings.Join(args, " "),
		"dir", dir,
		"attempt", attempt,
		"backoff", backoff,
	)
}

// classifyStderr maps stderr text to a taxonomy Kind by matching the
// well-known patterns named in §4.4.
func classifyStderr(stderr string) gcerrors.Kind {
	for _, p := range networkTransientPatterns {
		if p.MatchString(stderr) {
			return gcerrors.KindNetworkTransient
		}
	}
	for _, ep := range errorPatterns {
		if ep.pattern.MatchString(stderr) {
			return ep.kind
		}
	}
	return KindCommandFailed
}
