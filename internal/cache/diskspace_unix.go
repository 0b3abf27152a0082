// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

//go:build !windows

package cache

import "syscall"

// availableMB returns free space in megabytes for the filesystem containing path.
func availableMB(path string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail*uint64(stat.Bsize)) / (1024 * 1024), nil
}
