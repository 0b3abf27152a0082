// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package runner

import (
	"context"
	"sync"
)

// Invocation records one call made against a Fake.
type Invocation struct {
	Dir  string
	Args []string
}

// Script is a scripted outcome for one matching invocation.
type Script struct {
	Result RunResult
	Err    error
}

// Fake is the Runner test double named in §9: it records every
// invocation and returns scripted outcomes, so no test in this module
// shells out to a real git binary.
type Fake struct {
	mu          sync.Mutex
	invocations []Invocation
	// Scripts maps the args joined by space (without a "git" prefix) to a
	// scripted outcome. The full-argv key is matched first; a key equal to
	// the command (args[0]) alone is the fallback.
	Scripts map[string]Script
	// Default is returned when no script matches.
	Default Script
}

// NewFake builds an empty Fake ready to have scripts registered via On.
func NewFake() *Fake {
	return &Fake{Scripts: make(map[string]Script)}
}

// On registers the outcome for an invocation whose args, space-joined,
// equal key (e.g. "clone --bare https://example/x.git /tmp/x").
func (f *Fake) On(key string, result RunResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scripts[key] = Script{Result: result, Err: err}
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, dir string, args ...string) (RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.invocations = append(f.invocations, Invocation{Dir: dir, Args: append([]string(nil), args...)})

	key := joinArgs(args)
	if s, ok := f.Scripts[key]; ok {
		return s.Result, s.Err
	}
	if s, ok := f.Scripts[args[0]]; ok {
		return s.Result, s.Err
	}
	return f.Default.Result, f.Default.Err
}

// Invocations returns a copy of every recorded call, in order.
func (f *Fake) Invocations() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Invocation, len(f.invocations))
	copy(out, f.invocations)
	return out
}

func joinArgs(args []string) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += " "
		}
		s += a
	}
	return s
}

var _ Runner = (*Fake)(nil)
