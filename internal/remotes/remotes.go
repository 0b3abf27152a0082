// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package remotes implements the Remote Programmer: on the modifiable
// checkout it programs the fixed remote set named in spec §4.8
// (origin, mirror-github, mirror-local, upstream) idempotently, driving
// every mutation through the Repo Runner rather than touching .git/config
// directly.
package remotes

import (
	"context"
	"log/slog"
	"strings"

	"github.com/archmagece/gitcache/internal/runner"
)

const (
	NameOrigin       = "origin"
	NameMirrorGitHub = "mirror-github"
	NameMirrorLocal  = "mirror-local"
	NameUpstream     = "upstream"
)

// remote is one entry of the fixed set, with its fetch and push URLs.
type remote struct {
	name     string
	fetchURL string
	pushURL  string
}

// Plan describes the inputs the Remote Programmer needs, per §4.8.
type Plan struct {
	// UpstreamURL is the canonical upstream HTTPS URL.
	UpstreamURL string
	// ForkURL is the provider-mirror SSH URL, empty if the fork step was
	// skipped or failed, per §4.8's "If fork_url is unset".
	ForkURL string
	// LocalMirrorSSH is the configured local-mirror SSH URL. Empty omits
	// mirror-local even when ForkURL is set: there is nothing to program.
	LocalMirrorSSH string
}

// Programmer is the Remote Programmer.
type Programmer struct {
	Runner runner.Runner
	Logger *slog.Logger
}

// Program applies plan to the modifiable checkout at dir, per §4.8's table.
// It is idempotent: re-running with the same plan leaves the checkout's
// remote configuration unchanged.
func (p *Programmer) Program(ctx context.Context, dir string, plan Plan) error {
	remotes := resolve(plan)

	existing, err := p.existingRemoteNames(ctx, dir)
	if err != nil {
		return err
	}

	for _, r := range remotes {
		if existing[r.name] {
			if _, err := p.Runner.Run(ctx, dir, "remote", "set-url", r.name, r.fetchURL); err != nil {
				return err
			}
		} else {
			if _, err := p.Runner.Run(ctx, dir, "remote", "add", r.name, r.fetchURL); err != nil {
				return err
			}
		}
		if _, err := p.Runner.Run(ctx, dir, "remote", "set-url", "--push", r.name, r.pushURL); err != nil {
			return err
		}
	}

	p.log(dir, len(remotes))
	return nil
}

// resolve builds the concrete remote set for plan, per §4.8: the full
// four-remote table when a fork exists, or just origin/upstream (both
// pointed at the upstream URL) when it doesn't.
func resolve(plan Plan) []remote {
	if plan.ForkURL == "" {
		return []remote{
			{NameOrigin, plan.UpstreamURL, plan.UpstreamURL},
			{NameUpstream, plan.UpstreamURL, plan.UpstreamURL},
		}
	}

	out := []remote{
		{NameOrigin, plan.UpstreamURL, plan.ForkURL},
		{NameMirrorGitHub, plan.ForkURL, plan.ForkURL},
		{NameUpstream, plan.UpstreamURL, plan.UpstreamURL},
	}
	if plan.LocalMirrorSSH != "" {
		out = append(out, remote{NameMirrorLocal, plan.LocalMirrorSSH, plan.LocalMirrorSSH})
	}
	return out
}

func (p *Programmer) existingRemoteNames(ctx context.Context, dir string) (map[string]bool, error) {
	res, err := p.Runner.Run(ctx, dir, "remote")
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names[line] = true
		}
	}
	return names, nil
}

func (p *Programmer) log(dir string, count int) {
	if p.Logger == nil {
		return
	}
	p.Logger.Info("remotes programmed", "component", "remotes", "dir", dir, "count", count)
}
