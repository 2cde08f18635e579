// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2026 Killian Valverde.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pnlfs

import (
	"io/fs"
)

const (
	// Magic identifies a PNLFS image. Any change to the on-disk layout is a
	// format break and requires a new magic number.
	Magic = 0x504e4c46 // "PNLF"

	// BlockSize is the fixed size of a device block in bytes.
	BlockSize = 4096

	// FilenameLen is the maximum length of a directory entry name in bytes.
	// Names of exactly FilenameLen bytes are stored without a null terminator.
	FilenameLen = 28

	// DirEntrySize is the on-disk size of a directory entry: a 32-bit inode
	// number followed by the null-padded filename.
	DirEntrySize = 4 + FilenameLen

	// MaxDirEntries is the number of entries a single directory block holds.
	MaxDirEntries = BlockSize / DirEntrySize

	// MaxFileIndexEntries is the number of data block numbers a file-index
	// block holds, which bounds the size of a regular file.
	MaxFileIndexEntries = BlockSize / 4

	// InodeSize is the on-disk size of an inode record.
	InodeSize = 16

	// InodesPerBlock is the number of inode records per inode-store block.
	InodesPerBlock = BlockSize / InodeSize

	// MaxFileSize is the largest regular file the per-inode index block can
	// address.
	MaxFileSize = MaxFileIndexEntries * BlockSize

	// RootIno is the inode number of the root directory. It is always
	// allocated and can never be removed.
	RootIno = 0
)

// On-disk file types, as emitted by Readdir.
const (
	FTUnknown = 0
	FTRegFile = 1
	FTDir     = 2
)

// Values for the mode word of an inode record.
const (
	S_IFMT  = 0170000
	S_IFREG = 0100000
	S_IFDIR = 0040000
)

func fileTypeFromMode(mode uint32) uint8 {
	switch mode & S_IFMT {
	case S_IFDIR:
		return FTDir
	case S_IFREG:
		return FTRegFile
	default:
		return FTUnknown
	}
}

func statModeFromFileMode(mode fs.FileMode) uint32 {
	stMode := uint32(mode.Perm())

	if mode.IsDir() {
		stMode |= S_IFDIR
	} else {
		stMode |= S_IFREG
	}

	return stMode
}

func fileModeFromStatMode(mode uint32) fs.FileMode {
	fsMode := fs.FileMode(mode) & fs.ModePerm

	if mode&S_IFMT == S_IFDIR {
		fsMode |= fs.ModeDir
	}

	return fsMode
}
