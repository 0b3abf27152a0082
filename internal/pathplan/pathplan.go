// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package pathplan computes the three on-disk target paths (bare cache,
// read-only checkout, modifiable checkout) and the lock path for a
// canonical identity, per spec §4.2. It performs no I/O: the containment
// check is lexical, and symbolic links are not resolved.
package pathplan

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/archmagece/gitcache/internal/gcerrors"
	"github.com/archmagece/gitcache/internal/identity"
)

// Plan holds the four derived paths for one identity.
type Plan struct {
	CachePath      string
	ReadonlyPath   string
	ModifiablePath string
	LockPath       string
}

// safeComponent restricts path components to a conservative character set,
// per §4.2's "restricted to a conservative character set".
var safeComponent = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Options configures the roots the planner derives paths under.
type Options struct {
	CacheRoot     string
	CheckoutRoot  string
	ForkNamespace string
}

// Compute derives the four paths for id under opts, per §4.2.
func Compute(id identity.Identity, opts Options) (Plan, error) {
	for _, c := range []string{id.Host, id.Owner, id.Name, opts.ForkNamespace} {
		if !safeComponent.MatchString(c) {
			return Plan{}, gcerrors.NewStageError("pathplan", gcerrors.KindURLInvalid, id.String(),
				fmt.Errorf("path component %q contains characters outside the conservative set", c))
		}
	}

	cachePath := filepath.Join(opts.CacheRoot, id.Host, id.Owner, id.Name)
	readonlyPath := filepath.Join(opts.CheckoutRoot, id.Owner, id.Name)
	modifiableDir := fmt.Sprintf("%s-%s", id.Owner, id.Name)
	modifiablePath := filepath.Join(opts.CheckoutRoot, opts.ForkNamespace, modifiableDir)
	lockPath := cachePath + ".lock"

	plan := Plan{
		CachePath:      cachePath,
		ReadonlyPath:   readonlyPath,
		ModifiablePath: modifiablePath,
		LockPath:       lockPath,
	}

	if err := verifyContained(opts.CacheRoot, cachePath); err != nil {
		return Plan{}, err
	}
	if err := verifyContained(opts.CheckoutRoot, readonlyPath); err != nil {
		return Plan{}, err
	}
	if err := verifyContained(opts.CheckoutRoot, modifiablePath); err != nil {
		return Plan{}, err
	}

	return plan, nil
}

// verifyContained refuses a derived path whose lexical relation to root
// (filepath.Rel) climbs out of root. Symbolic links are not resolved, so an
// intermediate directory that is a symlink pointing outside root is not
// detected.
func verifyContained(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return gcerrors.NewStageError("pathplan", gcerrors.KindURLInvalid, target, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return gcerrors.NewStageError("pathplan", gcerrors.KindURLInvalid, target,
			fmt.Errorf("path %q escapes root %q", target, root))
	}
	return nil
}
