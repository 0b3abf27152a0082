// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

//go:build windows

package cache

import "golang.org/x/sys/windows"

// availableMB returns free space in megabytes for the filesystem containing path.
func availableMB(path string) (int64, error) {
	var freeBytes uint64
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytes, nil, nil); err != nil {
		return 0, err
	}
	return int64(freeBytes) / (1024 * 1024), nil
}
