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
	"fmt"
)

// Check verifies the structural invariants of the mounted volume: bitmap
// popcounts against the superblock counters, and that every block and inode
// reachable from the root is marked allocated. It returns one line per
// problem found, including unreadable inodes and blocks; an error is only
// returned when the volume is unmounted.
func (v *Volume) Check() ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrVolumeClosed
	}

	var problems []string

	if n := v.ifree.count(); n != v.sb.NrFreeInodes {
		problems = append(problems, fmt.Sprintf("inode bitmap has %d free bits, counter says %d", n, v.sb.NrFreeInodes))
	}
	if n := v.bfree.count(); n != v.sb.NrFreeBlocks {
		problems = append(problems, fmt.Sprintf("block bitmap has %d free bits, counter says %d", n, v.sb.NrFreeBlocks))
	}

	if v.ifree.get(RootIno) {
		problems = append(problems, "root inode is marked free")
	}

	seen := map[uint32]bool{}
	problems = append(problems, v.checkInode(RootIno, "/", seen)...)

	return problems, nil
}

func (v *Volume) checkInode(ino uint32, path string, seen map[uint32]bool) []string {
	var problems []string

	if seen[ino] {
		return []string{fmt.Sprintf("%s: inode %d referenced twice", path, ino)}
	}
	seen[ino] = true

	if v.ifree.get(ino) {
		problems = append(problems, fmt.Sprintf("%s: inode %d is marked free", path, ino))
	}

	ii, err := v.loadInode(ino)
	if err != nil {
		return append(problems, fmt.Sprintf("%s: inode %d unreadable: %v", path, ino, err))
	}

	if !ii.IsDir() && !ii.IsRegular() {
		return append(problems, fmt.Sprintf("%s: inode %d has unknown mode 0%o", path, ino, ii.Mode))
	}

	problems = append(problems, v.checkBlockRef(ii.IndexBlock, fmt.Sprintf("%s: index block", path))...)

	if ii.IsDir() {
		if ii.NrEntries > MaxDirEntries {
			return append(problems, fmt.Sprintf("%s: %d entries exceed the directory limit", path, ii.NrEntries))
		}

		b, err := v.dev.ReadBlock(ii.IndexBlock)
		if err != nil {
			return append(problems, fmt.Sprintf("%s: directory block unreadable: %v", path, err))
		}

		for k := 0; k < int(ii.NrEntries); k++ {
			de := dirEntryAt(b.Data, k)
			child := path + de.Name()

			if de.Ino >= v.sb.NrInodes {
				problems = append(problems, fmt.Sprintf("%s: inode %d out of range", child, de.Ino))
				continue
			}

			problems = append(problems, v.checkInode(de.Ino, child+"/", seen)...)
		}

		return problems
	}

	if ii.NrEntries > MaxFileIndexEntries {
		return append(problems, fmt.Sprintf("%s: %d blocks exceed the file-index limit", path, ii.NrEntries))
	}
	if uint64(ii.Size) > uint64(ii.NrEntries)*BlockSize {
		problems = append(problems, fmt.Sprintf("%s: size %d exceeds %d mapped blocks", path, ii.Size, ii.NrEntries))
	}

	b, err := v.dev.ReadBlock(ii.IndexBlock)
	if err != nil {
		return append(problems, fmt.Sprintf("%s: file-index block unreadable: %v", path, err))
	}

	fib := decodeFileIndexBlock(b.Data)
	for k := uint32(0); k < ii.NrEntries; k++ {
		problems = append(problems, v.checkBlockRef(fib.Blocks[k], fmt.Sprintf("%s: data block %d", path, k))...)
	}

	return problems
}

func (v *Volume) checkBlockRef(blk uint32, what string) []string {
	switch {
	case blk >= v.sb.NrBlocks:
		return []string{fmt.Sprintf("%s: block %d out of range", what, blk)}
	case v.bfree.get(blk):
		return []string{fmt.Sprintf("%s: block %d is marked free", what, blk)}
	default:
		return nil
	}
}
