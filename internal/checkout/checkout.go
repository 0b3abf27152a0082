// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package checkout implements the Checkout Builder: it materializes the
// read-only and modifiable working trees as object-sharing clones of the
// bare cache, per spec §4.6. Object sharing is delegated entirely to
// git's own --reference/--no-dissociate alternates mechanism — this
// package never writes an alternates file by hand.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/archmagece/gitcache/internal/gcerrors"
	"github.com/archmagece/gitcache/internal/runner"
)

// Strategy selects how much history/object data a checkout fetches.
type Strategy string

const (
	StrategyFull     Strategy = "full"
	StrategyShallow  Strategy = "shallow"
	StrategyTreeless Strategy = "treeless"
	StrategyBlobless Strategy = "blobless"
)

// DefaultShallowDepth is used when Strategy is shallow and Depth is 0.
const DefaultShallowDepth = 1

// PushDisabledSentinel is the invalid push URL configured on read-only
// checkouts, per §4.6 step 4.
const PushDisabledSentinel = "no-push://gitcache-readonly-checkout-disabled"

// Builder is the Checkout Builder.
type Builder struct {
	Runner runner.Runner
	Logger *slog.Logger
}

// Request describes one checkout to build.
type Request struct {
	TargetPath string
	CachePath  string
	OriginURL  string
	Strategy   Strategy
	Depth      int
	Force      bool
	Recursive  bool
	ReadOnly   bool
}

// Build implements §4.6's protocol: refuse a non-empty target unless
// forced, clone with a reference-alternate into the cache applying the
// requested strategy, repoint origin at the upstream URL, and — for
// read-only checkouts — disable push.
func (b *Builder) Build(ctx context.Context, req Request) error {
	nonEmpty, err := dirNonEmpty(req.TargetPath)
	if err != nil {
		return gcerrors.NewStageError("checkout", gcerrors.KindPermissionDenied, req.TargetPath, err)
	}
	if nonEmpty {
		if !req.Force {
			return gcerrors.NewStageError("checkout", gcerrors.KindPermissionDenied, req.TargetPath,
				fmt.Errorf("target path exists and is non-empty"))
		}
		if err := os.RemoveAll(req.TargetPath); err != nil {
			return gcerrors.NewStageError("checkout", gcerrors.KindPermissionDenied, req.TargetPath, err)
		}
	}

	parent := filepath.Dir(req.TargetPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return gcerrors.NewStageError("checkout", gcerrors.KindPermissionDenied, req.TargetPath, err)
	}

	absCache, err := filepath.Abs(req.CachePath)
	if err != nil {
		return gcerrors.NewStageError("checkout", gcerrors.KindPermissionDenied, req.CachePath, err)
	}

	args := []string{"clone", "--reference=" + absCache, "--no-dissociate"}
	args = append(args, strategyArgs(req.Strategy, req.Depth)...)
	if req.Recursive {
		args = append(args, "--recurse-submodules")
	}
	args = append(args, absCache, req.TargetPath)

	if _, err := b.Runner.Run(ctx, parent, args...); err != nil {
		return err
	}

	// §4.6 step 3: point the checkout upstream, not at the local cache path.
	if _, err := b.Runner.Run(ctx, req.TargetPath, "remote", "set-url", "origin", req.OriginURL); err != nil {
		return err
	}

	if req.ReadOnly {
		if _, err := b.Runner.Run(ctx, req.TargetPath, "remote", "set-url", "--push", "origin", PushDisabledSentinel); err != nil {
			return err
		}
	}

	b.log("checkout built", req.TargetPath, "strategy", string(req.Strategy), "read_only", req.ReadOnly)

	return nil
}

func strategyArgs(strategy Strategy, depth int) []string {
	switch strategy {
	case StrategyShallow:
		d := depth
		if d <= 0 {
			d = DefaultShallowDepth
		}
		return []string{"--depth", fmt.Sprintf("%d", d)}
	case StrategyTreeless:
		return []string{"--filter=tree:0"}
	case StrategyBlobless:
		return []string{"--filter=blob:none"}
	case StrategyFull:
		return nil
	default:
		return nil
	}
}

func dirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return len(entries) > 0, nil
}

func (b *Builder) log(msg, target string, kv ...interface{}) {
	if b.Logger == nil {
		return
	}
	args := append([]interface{}{"component", "checkout", "target", target}, kv...)
	b.Logger.Info(msg, args...)
}
