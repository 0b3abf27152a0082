// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package cache implements the Cache Engine: it keeps a bare object-store
// cache in sync with upstream under the cache lock, per spec §4.5. It
// never reimplements git's object model — every mutation is driven
// through the Repo Runner.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/archmagece/gitcache/internal/gcerrors"
	"github.com/archmagece/gitcache/internal/lock"
	"github.com/archmagece/gitcache/internal/runner"
)

// SyncMarker is the sidecar file recording the last successful sync time,
// per §6's on-disk layout: "<host>/<owner>/<name>/.gitcache-sync".
const SyncMarker = ".gitcache-sync"

// MinFreeMBDefault is the default free-space preflight threshold, per §4.5.
const MinFreeMBDefault int64 = 100

// Engine is the Cache Engine.
type Engine struct {
	Runner runner.Runner
	Logger *slog.Logger
}

// Result reports what CreateOrUpdate did.
type Result struct {
	Created         bool
	Updated         bool
	QuarantinedFrom string
}

// CreateOrUpdate implements the create-or-update protocol of §4.5 as a
// standalone call: acquire the cache lock, run Update, release. Callers
// that already hold the cache lock for a longer-lived pipeline (the
// Orchestrator's clone sequence, sync's per-cache fetch) must call Update
// directly instead — the lock is not reentrant.
func (e *Engine) CreateOrUpdate(ctx context.Context, cachePath, lockPath, originURL string, lockTimeout time.Duration, minFreeMB int64) (Result, error) {
	handle, err := lock.Acquire(ctx, lockPath, lockTimeout)
	if err != nil {
		return Result{}, err
	}
	defer handle.Release()

	return e.Update(ctx, cachePath, originURL, minFreeMB)
}

// Update runs the create-or-update protocol of §4.5 steps 2-5, assuming
// the caller already holds the cache lock.
func (e *Engine) Update(ctx context.Context, cachePath, originURL string, minFreeMB int64) (Result, error) {
	exists, err := pathExists(cachePath)
	if err != nil {
		return Result{}, gcerrors.NewStageError("cache", gcerrors.KindPermissionDenied, cachePath, err)
	}

	var result Result

	if exists {
		valid := e.validate(ctx, cachePath)
		if !valid {
			quarantine := cachePath + ".corrupt." + timestamp()
			if err := os.Rename(cachePath, quarantine); err != nil {
				return Result{}, gcerrors.NewStageError("cache", gcerrors.KindPermissionDenied, cachePath, err)
			}
			e.log("quarantined corrupt cache", cachePath, "destination", quarantine)
			result.QuarantinedFrom = quarantine
			exists = false
		}
	}

	if !exists {
		if err := e.createFresh(ctx, cachePath, originURL, minFreeMB); err != nil {
			return Result{}, err
		}
		result.Created = true
	} else {
		if err := e.fetchAll(ctx, cachePath); err != nil {
			return Result{}, err
		}
		result.Updated = true
	}

	if err := writeSyncMarker(cachePath); err != nil {
		return Result{}, gcerrors.NewStageError("cache", gcerrors.KindPermissionDenied, cachePath, err)
	}

	return result, nil
}

// createFresh implements §4.5 step 3: preflight disk space, back up any
// prior record, clone bare into a sibling temp directory, and atomically
// rename it into place, restoring the backup on failure.
func (e *Engine) createFresh(ctx context.Context, cachePath, originURL string, minFreeMB int64) error {
	parent := filepath.Dir(cachePath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return gcerrors.NewStageError("cache", gcerrors.KindPermissionDenied, cachePath, err)
	}

	free, err := availableMB(parent)
	if err == nil && free < minFreeMB {
		return gcerrors.NewStageError("cache", gcerrors.KindDiskFull, cachePath,
			fmt.Errorf("%d MB free, need %d MB", free, minFreeMB))
	}

	var backupPath string
	if exists, _ := pathExists(cachePath); exists {
		backupPath = cachePath + ".bak." + timestamp()
		if err := os.Rename(cachePath, backupPath); err != nil {
			return gcerrors.NewStageError("cache", gcerrors.KindPermissionDenied, cachePath, err)
		}
	}

	tempPath := cachePath + ".tmp." + timestamp()
	_, err = e.Runner.Run(ctx, parent, "clone", "--bare", originURL, tempPath)
	if err != nil {
		_ = os.RemoveAll(tempPath)
		if backupPath != "" {
			_ = os.Rename(backupPath, cachePath)
		}
		return err
	}

	if err := os.Rename(tempPath, cachePath); err != nil {
		_ = os.RemoveAll(tempPath)
		if backupPath != "" {
			_ = os.Rename(backupPath, cachePath)
		}
		return gcerrors.NewStageError("cache", gcerrors.KindPermissionDenied, cachePath, err)
	}

	if !e.validate(ctx, cachePath) {
		if backupPath != "" {
			_ = os.RemoveAll(cachePath)
			_ = os.Rename(backupPath, cachePath)
		}
		return gcerrors.NewStageError("cache", gcerrors.KindRepoCorrupt, cachePath,
			fmt.Errorf("freshly cloned cache failed validation"))
	}

	if backupPath != "" {
		_ = os.RemoveAll(backupPath)
	}

	return nil
}

// fetchAll implements §4.5 step 4: a full-ref fetch, including tags.
func (e *Engine) fetchAll(ctx context.Context, cachePath string) error {
	_, err := e.Runner.Run(ctx, cachePath, "fetch", "origin", "+refs/*:refs/*", "--prune", "--tags")
	return err
}

// validate checks that cachePath is a bare repository with a readable HEAD,
// at least one ref, and an objects directory, per §4.5 step 2a.
func (e *Engine) validate(ctx context.Context, cachePath string) bool {
	if ok, err := pathExists(filepath.Join(cachePath, "objects")); err != nil || !ok {
		return false
	}
	if ok, err := pathExists(filepath.Join(cachePath, "HEAD")); err != nil || !ok {
		return false
	}

	res, err := e.Runner.Run(ctx, cachePath, "rev-parse", "--is-bare-repository")
	if err != nil {
		return false
	}
	if trimEOL(res.Stdout) != "true" {
		return false
	}

	res, err = e.Runner.Run(ctx, cachePath, "show-ref")
	if err != nil {
		// show-ref exits nonzero when the repository has no refs; a cache
		// without refs is treated as invalid.
		return false
	}
	return trimEOL(res.Stdout) != ""
}

func writeSyncMarker(cachePath string) error {
	path := filepath.Join(cachePath, SyncMarker)
	contents := time.Now().UTC().Format(time.RFC3339)
	return os.WriteFile(path, []byte(contents), 0o644)
}

// ReadSyncMarker returns the last recorded sync time, if any.
func ReadSyncMarker(cachePath string) (time.Time, bool) {
	data, err := os.ReadFile(filepath.Join(cachePath, SyncMarker))
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, trimEOL(string(data)))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func timestamp() string {
	return time.Now().UTC().Format("20060102T150405.000000000Z")
}

func (e *Engine) log(msg, cachePath string, kv ...interface{}) {
	if e.Logger == nil {
		return
	}
	args := append([]interface{}{"component", "cache", "cache_path", cachePath}, kv...)
	e.Logger.Info(msg, args...)
}
