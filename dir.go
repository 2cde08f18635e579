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
	"encoding/binary"
)

// Directory entries are manipulated in place within the cached directory
// block; a decoded DirBlock view is only materialized by the codec.

func dirEntryAt(data []byte, slot int) DirEntry {
	off := slot * DirEntrySize

	var de DirEntry
	de.Ino = binary.LittleEndian.Uint32(data[off:])
	copy(de.Filename[:], data[off+4:off+DirEntrySize])

	return de
}

func putDirEntryAt(data []byte, slot int, de DirEntry) {
	off := slot * DirEntrySize

	binary.LittleEndian.PutUint32(data[off:], de.Ino)
	copy(data[off+4:off+DirEntrySize], de.Filename[:])
}

// findEntry returns the slot of the first entry matching name, or -1.
func findEntry(data []byte, nrEntries uint32, name string) int {
	for k := 0; k < int(nrEntries); k++ {
		de := dirEntryAt(data, k)
		if de.matches(name) {
			return k
		}
	}

	return -1
}

// lookupDir resolves name within the directory to an inode number.
func (v *Volume) lookupDir(dir *inodeInfo, name string) (uint32, error) {
	b, err := v.dev.ReadBlock(dir.IndexBlock)
	if err != nil {
		return 0, err
	}

	k := findEntry(b.Data, dir.NrEntries, name)
	if k == -1 {
		return 0, ErrNotFound
	}

	return dirEntryAt(b.Data, k).Ino, nil
}

// insertDir places a new entry at the first unused slot. Duplicate-name
// detection is the caller's responsibility.
func (v *Volume) insertDir(dir *inodeInfo, name string, ino uint32) error {
	if len(name) > FilenameLen {
		return ErrNameTooLong
	}
	if dir.NrEntries >= MaxDirEntries {
		return ErrDirFull
	}

	b, err := v.dev.ReadBlock(dir.IndexBlock)
	if err != nil {
		return err
	}

	var de DirEntry
	de.Ino = ino
	copy(de.Filename[:], name)

	putDirEntryAt(b.Data, int(dir.NrEntries), de)
	dir.NrEntries++

	v.dev.MarkDirty(dir.IndexBlock)
	v.markInodeDirty(dir)

	return nil
}

// removeDir deletes the first entry matching name and compacts the live
// entries left by one slot. The trailing slot past nr_entries is left as
// garbage.
func (v *Volume) removeDir(dir *inodeInfo, name string) error {
	b, err := v.dev.ReadBlock(dir.IndexBlock)
	if err != nil {
		return err
	}

	k := findEntry(b.Data, dir.NrEntries, name)
	if k == -1 {
		return ErrNotFound
	}

	copy(b.Data[k*DirEntrySize:], b.Data[(k+1)*DirEntrySize:int(dir.NrEntries)*DirEntrySize])
	dir.NrEntries--

	v.dev.MarkDirty(dir.IndexBlock)
	v.markInodeDirty(dir)

	return nil
}
