// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package cmd provides the command line interface and root commands for gitcache.
// This includes the main CLI structure, version management, and command registration.
package cmd