// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archmagece/gitcache/internal/runner"
)

// fakeCloningRunner simulates "git clone --bare" by creating a minimal
// bare-repo skeleton at the destination path so validate() succeeds.
type fakeCloningRunner struct {
	*runner.Fake
}

func (f *fakeCloningRunner) Run(ctx context.Context, dir string, args ...string) (runner.RunResult, error) {
	if len(args) > 0 && args[0] == "clone" {
		dest := args[len(args)-1]
		if err := makeBareRepoSkeleton(dest); err != nil {
			return runner.RunResult{}, err
		}
		return runner.RunResult{}, nil
	}
	if len(args) > 0 && args[0] == "rev-parse" {
		return runner.RunResult{Stdout: "true\n"}, nil
	}
	if len(args) > 0 && args[0] == "show-ref" {
		return runner.RunResult{Stdout: "deadbeef refs/heads/main\n"}, nil
	}
	if len(args) > 0 && args[0] == "fetch" {
		return runner.RunResult{}, nil
	}
	return runner.RunResult{}, nil
}

func makeBareRepoSkeleton(path string) error {
	if err := os.MkdirAll(filepath.Join(path, "objects"), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(path, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644)
}

func TestCreateOrUpdate_CreatesFreshCache(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "github.com", "octocat", "Hello-World")
	lockPath := cachePath + ".lock"

	e := &Engine{Runner: &fakeCloningRunner{runner.NewFake()}}

	result, err := e.CreateOrUpdate(context.Background(), cachePath, lockPath, "https://github.com/octocat/Hello-World.git", 5*time.Second, 1)
	require.NoError(t, err)
	assert.True(t, result.Created)

	_, ok := ReadSyncMarker(cachePath)
	assert.True(t, ok)

	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "lock should be released")
}

func TestCreateOrUpdate_UpdatesExistingValidCache(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "github.com", "octocat", "Hello-World")
	require.NoError(t, makeBareRepoSkeleton(cachePath))

	e := &Engine{Runner: &fakeCloningRunner{runner.NewFake()}}

	result, err := e.CreateOrUpdate(context.Background(), cachePath, cachePath+".lock", "https://github.com/octocat/Hello-World.git", 5*time.Second, 1)
	require.NoError(t, err)
	assert.True(t, result.Updated)
}

func TestCreateOrUpdate_QuarantinesCorruptCache(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "github.com", "octocat", "Hello-World")
	require.NoError(t, os.MkdirAll(cachePath, 0o755)) // no objects/ or HEAD: invalid

	e := &Engine{Runner: &fakeCloningRunner{runner.NewFake()}}

	result, err := e.CreateOrUpdate(context.Background(), cachePath, cachePath+".lock", "https://github.com/octocat/Hello-World.git", 5*time.Second, 1)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.NotEmpty(t, result.QuarantinedFrom)

	_, err = os.Stat(result.QuarantinedFrom)
	assert.NoError(t, err)
}
