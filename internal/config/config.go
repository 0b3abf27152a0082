// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package config loads an immutable per-request configuration Snapshot,
// per §9's "Global configuration... captured into an immutable
// per-request snapshot; no ambient mutable state." It follows this
// corpus's ConfigService pattern of wiring Viper with AutomaticEnv plus an
// optional on-disk defaults file watched by fsnotify.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Snapshot is the immutable configuration captured once per Orchestrator
// request. It is a value, never a pointer to shared mutable state.
type Snapshot struct {
	CacheRoot       string
	CheckoutRoot    string
	GitHubToken     string
	ForkNamespace   string
	LocalMirrorSSH  string
	MinFreeMB       int64
	MaxRetries      int
	LockTimeout     time.Duration
	MaxRateLimitWait time.Duration
}

const (
	defaultMinFreeMB      = 100
	defaultMaxRetries     = 3
	defaultLockTimeout    = 30 * time.Second
	defaultRateLimitWait  = 60 * time.Second
	defaultForkNamespace  = "mine"
	defaultConfigFileName = "gitcache.yaml"
)

// Load reads environment variables (and, if present, a user config file)
// into an immutable Snapshot. Env var names match §6: GIT_CACHE_ROOT,
// GIT_CHECKOUT_ROOT, GITHUB_TOKEN, plus the supplemental
// GITCACHE_FORK_NAMESPACE / GITCACHE_LOCAL_MIRROR_SSH / GITCACHE_MIN_FREE_MB
// / GITCACHE_MAX_RETRIES / GITCACHE_LOCK_TIMEOUT of SPEC_FULL.md §4.3.
func Load() (Snapshot, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	for _, name := range []string{
		"GIT_CACHE_ROOT", "GIT_CHECKOUT_ROOT", "GITHUB_TOKEN",
		"GITCACHE_FORK_NAMESPACE", "GITCACHE_LOCAL_MIRROR_SSH",
		"GITCACHE_MIN_FREE_MB", "GITCACHE_MAX_RETRIES", "GITCACHE_LOCK_TIMEOUT",
	} {
		if err := v.BindEnv(name); err != nil {
			return Snapshot{}, fmt.Errorf("bind env %s: %w", name, err)
		}
	}

	v.SetDefault("GITCACHE_MIN_FREE_MB", defaultMinFreeMB)
	v.SetDefault("GITCACHE_MAX_RETRIES", defaultMaxRetries)
	v.SetDefault("GITCACHE_LOCK_TIMEOUT", defaultLockTimeout.String())
	v.SetDefault("GITCACHE_FORK_NAMESPACE", defaultForkNamespace)

	if configFile, ok := userConfigFile(); ok {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, isNotFound := err.(viper.ConfigFileNotFoundError); !isNotFound {
				return Snapshot{}, fmt.Errorf("read config file %s: %w", configFile, err)
			}
		}
	}

	cacheRoot := v.GetString("GIT_CACHE_ROOT")
	if cacheRoot == "" {
		cacheRoot = defaultCacheRoot()
	}
	checkoutRoot := v.GetString("GIT_CHECKOUT_ROOT")
	if checkoutRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Snapshot{}, fmt.Errorf("determine working directory: %w", err)
		}
		checkoutRoot = wd
	}

	lockTimeout, err := time.ParseDuration(v.GetString("GITCACHE_LOCK_TIMEOUT"))
	if err != nil {
		lockTimeout = defaultLockTimeout
	}

	return Snapshot{
		CacheRoot:       cacheRoot,
		CheckoutRoot:    checkoutRoot,
		GitHubToken:     v.GetString("GITHUB_TOKEN"),
		ForkNamespace:   v.GetString("GITCACHE_FORK_NAMESPACE"),
		LocalMirrorSSH:  v.GetString("GITCACHE_LOCAL_MIRROR_SSH"),
		MinFreeMB:       v.GetInt64("GITCACHE_MIN_FREE_MB"),
		MaxRetries:      v.GetInt("GITCACHE_MAX_RETRIES"),
		LockTimeout:     lockTimeout,
		MaxRateLimitWait: defaultRateLimitWait,
	}, nil
}

func defaultCacheRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "gitcache")
	}
	return filepath.Join(os.TempDir(), "gitcache")
}

func userConfigFile() (string, bool) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	path := filepath.Join(dir, defaultConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Watcher observes the user config file for changes and invokes onChange
// with a freshly reloaded Snapshot. It never mutates a previously returned
// Snapshot in place — each change produces a new immutable value.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
}

// WatchConfiguration starts watching the user config file, if any, mirroring
// this corpus's ConfigService.WatchConfiguration. If there is no config
// file to watch, it returns a no-op Watcher whose Stop is a no-op too.
func WatchConfiguration(onChange func(Snapshot)) (*Watcher, error) {
	configFile, ok := userConfigFile()
	if !ok {
		return &Watcher{}, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(configFile)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	go func() {
		for event := range fw.Events {
			if event.Name != configFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			snap, err := Load()
			if err == nil {
				onChange(snap)
			}
		}
	}()

	return &Watcher{fsWatcher: fw}, nil
}

// Stop releases the underlying filesystem watch, if any.
func (w *Watcher) Stop() error {
	if w == nil || w.fsWatcher == nil {
		return nil
	}
	return w.fsWatcher.Close()
}
