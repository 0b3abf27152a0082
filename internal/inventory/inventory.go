// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package inventory implements §4.10's Inventory & Maintenance: it
// enumerates cached repositories by walking the cache root, and drives
// the `sync` (fan-out refresh) and `clean` (safe, lock-guarded removal)
// operations over that enumeration.
package inventory

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/archmagece/gitcache/internal/cache"
	"github.com/archmagece/gitcache/internal/gcerrors"
	"github.com/archmagece/gitcache/internal/identity"
	"github.com/archmagece/gitcache/internal/lock"
	"github.com/archmagece/gitcache/internal/workerpool"
)

// Entry describes one cached repository, as reported by list and consumed
// by sync/clean. JSON tags follow this corpus's camelCase convention for
// scriptable command output.
type Entry struct {
	Host            string    `json:"host"`
	Owner           string    `json:"owner"`
	Name            string    `json:"name"`
	CachePath       string    `json:"cachePath"`
	SizeBytes       int64     `json:"sizeBytes"`
	LastSync        time.Time `json:"lastSync,omitempty"`
	RefCount        int       `json:"refCount"`
	ReadonlyExists  bool      `json:"readonlyExists"`
	ModifiableExists bool     `json:"modifiableExists"`
}

// List walks cacheRoot two levels deep (host/owner/name), per §4.10,
// reporting each cache's size, last sync, ref count, and whether its
// checkouts are present under checkoutRoot/forkNamespace.
func List(cacheRoot, checkoutRoot, forkNamespace string) ([]Entry, error) {
	var entries []Entry

	hosts, err := readDirNames(cacheRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, gcerrors.NewStageError("inventory", gcerrors.KindPermissionDenied, cacheRoot, err)
	}

	for _, host := range hosts {
		owners, err := readDirNames(filepath.Join(cacheRoot, host))
		if err != nil {
			continue
		}
		for _, owner := range owners {
			names, err := readDirNames(filepath.Join(cacheRoot, host, owner))
			if err != nil {
				continue
			}
			for _, name := range names {
				cachePath := filepath.Join(cacheRoot, host, owner, name)
				entry := Entry{Host: host, Owner: owner, Name: name, CachePath: cachePath}

				if size, err := dirSize(cachePath); err == nil {
					entry.SizeBytes = size
				}
				if t, ok := cache.ReadSyncMarker(cachePath); ok {
					entry.LastSync = t
				}
				entry.RefCount = countRefs(cachePath)

				readonly := filepath.Join(checkoutRoot, owner, name)
				modifiable := filepath.Join(checkoutRoot, forkNamespace, owner+"-"+name)
				entry.ReadonlyExists = dirExists(readonly)
				entry.ModifiableExists = dirExists(modifiable)

				entries = append(entries, entry)
			}
		}
	}

	return entries, nil
}

// SyncResult reports what Sync did for one entry.
type SyncResult struct {
	Entry   Entry
	Skipped bool // lock already held by another process
	Err     error
}

// Sync fans out a refresh (Cache Engine step 4, a full-ref fetch) across
// entries using a bounded worker pool, per §4.9: "sync enumerates the
// cache root, acquires each cache lock in turn (skipping any already
// held, with a warning), and re-runs Cache Engine step 4." Concurrency is
// bounded by parallel workers rather than one lock acquisition at a time,
// since entries are independent identities.
func Sync(ctx context.Context, engine *cache.Engine, entries []Entry, parallel int, logger *slog.Logger) ([]SyncResult, error) {
	if parallel <= 0 {
		parallel = 4
	}

	cfg := workerpool.DefaultConfig()
	cfg.WorkerCount = parallel

	jobResults, err := workerpool.ProcessBatch(ctx, entries, cfg, func(jobCtx context.Context, entry Entry) error {
		lockPath := entry.CachePath + ".lock"
		handle, err := lock.TryAcquire(lockPath)
		if err != nil {
			return err
		}
		if handle == nil {
			if logger != nil {
				logger.Warn("skipping sync: cache lock already held",
					"component", "inventory", "cache_path", entry.CachePath)
			}
			return errSkipped
		}
		defer handle.Release()

		// Update re-clones a cache that fails validation, which needs the
		// upstream URL; it is rebuilt in the canonical HTTPS form clone uses.
		originURL := identity.Identity{Host: entry.Host, Owner: entry.Owner, Name: entry.Name}.HTTPSURL()
		_, err = engine.Update(jobCtx, entry.CachePath, originURL, 0)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]SyncResult, len(jobResults))
	for i, r := range jobResults {
		out[i] = SyncResult{Entry: r.Data, Err: r.Error, Skipped: r.Error == errSkipped}
		if out[i].Skipped {
			out[i].Err = nil
		}
	}
	return out, nil
}

// errSkipped is a sentinel for "lock already held"; Sync translates it
// into SyncResult.Skipped rather than surfacing it as a failure.
var errSkipped = gcerrors.NewStageError("inventory", gcerrors.KindLockTimeout, "", skippedCause{})

type skippedCause struct{}

func (skippedCause) Error() string { return "cache lock already held, skipped" }

// CleanRequest scopes a clean invocation, per §4.10 and SPEC_FULL.md §6's
// supplemented --force behavior.
type CleanRequest struct {
	CacheRoot     string
	CheckoutRoot  string
	ForkNamespace string
	// Filter restricts clean to a single host/owner/name, if non-empty.
	FilterHost, FilterOwner, FilterName string
	// Force destroys existing checkouts before removing their cache,
	// rather than skipping caches with live checkouts.
	Force bool
}

// CleanResult reports what Clean removed.
type CleanResult struct {
	Removed []Entry
	Skipped []Entry
}

// Clean implements §4.10: without Force, removes only caches whose
// checkouts are absent, preserving I2. With Force, it first destroys any
// referencing checkouts, then the cache — never removing a cache out
// from under a checkout silently.
func Clean(req CleanRequest) (CleanResult, error) {
	entries, err := List(req.CacheRoot, req.CheckoutRoot, req.ForkNamespace)
	if err != nil {
		return CleanResult{}, err
	}

	var result CleanResult
	for _, entry := range entries {
		if req.FilterHost != "" && (entry.Host != req.FilterHost || entry.Owner != req.FilterOwner || entry.Name != req.FilterName) {
			continue
		}

		hasCheckouts := entry.ReadonlyExists || entry.ModifiableExists
		if hasCheckouts && !req.Force {
			result.Skipped = append(result.Skipped, entry)
			continue
		}

		if hasCheckouts && req.Force {
			readonly := filepath.Join(req.CheckoutRoot, entry.Owner, entry.Name)
			modifiable := filepath.Join(req.CheckoutRoot, req.ForkNamespace, entry.Owner+"-"+entry.Name)
			if err := os.RemoveAll(readonly); err != nil {
				return result, gcerrors.NewStageError("inventory", gcerrors.KindPermissionDenied, readonly, err)
			}
			if err := os.RemoveAll(modifiable); err != nil {
				return result, gcerrors.NewStageError("inventory", gcerrors.KindPermissionDenied, modifiable, err)
			}
		}

		lockPath := entry.CachePath + ".lock"
		handle, err := lock.TryAcquire(lockPath)
		if err != nil {
			return result, err
		}
		if handle == nil {
			result.Skipped = append(result.Skipped, entry)
			continue
		}

		if err := os.RemoveAll(entry.CachePath); err != nil {
			_ = handle.Release()
			return result, gcerrors.NewStageError("inventory", gcerrors.KindPermissionDenied, entry.CachePath, err)
		}
		_ = handle.Release()

		result.Removed = append(result.Removed, entry)
	}

	return result, nil
}

func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasSuffix(e.Name(), ".lock") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// countRefs counts entries under refs/, per §4.10's "counts refs by
// scanning refs/ entries."
func countRefs(cachePath string) int {
	count := 0
	_ = filepath.Walk(filepath.Join(cachePath, "refs"), func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	return count
}
