// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2026 Killian Valverde.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pnlfs

import "errors"

// Package-specific error variables that can be used with errors.Is() for
// error handling.
var (
	// ErrBadImage is returned when the image is not recognized as PNLFS or
	// its superblock describes an impossible layout.
	ErrBadImage = errors.New("invalid image, pnlfs signature not found")

	// ErrBlockIO wraps a read or write failure of the underlying device.
	ErrBlockIO = errors.New("block i/o error")

	// ErrNoFreeInode is returned when the inode bitmap has no free slot left.
	ErrNoFreeInode = errors.New("no free inode")

	// ErrNoFreeBlock is returned when the block bitmap has no free block left.
	ErrNoFreeBlock = errors.New("no free block")

	// ErrDirFull is returned when a directory block already holds the maximum
	// number of entries.
	ErrDirFull = errors.New("directory is full")

	// ErrNameExists is returned when creating an entry under a name that is
	// already present in the directory.
	ErrNameExists = errors.New("name already exists")

	// ErrNameTooLong is returned when the byte length of a requested name
	// exceeds FilenameLen.
	ErrNameTooLong = errors.New("name too long")

	// ErrNotFound is returned when a name does not resolve within a directory.
	ErrNotFound = errors.New("no such file or directory")

	// ErrIsDirectory is returned when a file-only operation targets a
	// directory.
	ErrIsDirectory = errors.New("is a directory")

	// ErrNotDirectory is returned when a directory-only operation targets a
	// regular file.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotEmpty is returned when removing or replacing a directory that
	// still has entries.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrInconsistentBitmap is returned by Mount when a bitmap's popcount
	// disagrees with its superblock counter. Releasing a resource twice is
	// logged as a warning, not returned as this error.
	ErrInconsistentBitmap = errors.New("inconsistent free bitmap")

	// ErrFileTooLarge is returned when a write would exceed the per-inode
	// index block addressing limit.
	ErrFileTooLarge = errors.New("file exceeds index block limit")

	// ErrVolumeClosed is returned when operating on an unmounted volume.
	ErrVolumeClosed = errors.New("volume is unmounted")
)
