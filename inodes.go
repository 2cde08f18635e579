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

	"github.com/google/btree"
)

// inodeInfo is the in-memory mirror of a persisted inode. It is the source of
// truth while the inode is live and is flushed to the inode store on
// write-back.
type inodeInfo struct {
	ino   uint32
	Inode
	dirty bool
}

func (ii *inodeInfo) Less(than btree.Item) bool {
	return ii.ino < than.(*inodeInfo).ino
}

// loadInode returns the live metadata for ino, reading the inode store on
// first access. The cache has its own lock so concurrent readers can fault
// inodes in while holding the volume lock shared.
func (v *Volume) loadInode(ino uint32) (*inodeInfo, error) {
	if ino >= v.sb.NrInodes {
		return nil, fmt.Errorf("%w: inode %d out of range", ErrBadImage, ino)
	}

	v.inodesMu.Lock()
	item := v.inodes.Get(&inodeInfo{ino: ino})
	v.inodesMu.Unlock()
	if item != nil {
		return item.(*inodeInfo), nil
	}

	blk, slot := istoreBlock(ino)
	b, err := v.dev.ReadBlock(blk)
	if err != nil {
		return nil, err
	}

	ii := &inodeInfo{ino: ino, Inode: decodeInode(b.Data, slot)}

	v.inodesMu.Lock()
	if item := v.inodes.Get(ii); item != nil {
		// Another reader faulted it in first.
		ii = item.(*inodeInfo)
	} else {
		v.inodes.ReplaceOrInsert(ii)
	}
	v.inodesMu.Unlock()

	return ii, nil
}

// cacheInode registers freshly allocated inode metadata.
func (v *Volume) cacheInode(ii *inodeInfo) {
	v.inodesMu.Lock()
	defer v.inodesMu.Unlock()

	v.inodes.ReplaceOrInsert(ii)
}

// markInodeDirty schedules the live metadata for write-back.
func (v *Volume) markInodeDirty(ii *inodeInfo) {
	ii.dirty = true
}

// writeInode encodes the live metadata into its inode-store slot and marks
// the block dirty.
func (v *Volume) writeInode(ii *inodeInfo) error {
	blk, slot := istoreBlock(ii.ino)
	b, err := v.dev.ReadBlock(blk)
	if err != nil {
		return err
	}

	ii.Inode.encode(b.Data, slot)
	v.dev.MarkDirty(blk)
	ii.dirty = false

	return nil
}

// flushInodes writes back every dirty live inode, in ascending order.
func (v *Volume) flushInodes() error {
	v.inodesMu.Lock()
	defer v.inodesMu.Unlock()

	var werr error
	v.inodes.Ascend(func(item btree.Item) bool {
		ii := item.(*inodeInfo)
		if !ii.dirty {
			return true
		}

		if err := v.writeInode(ii); err != nil {
			werr = err
			return false
		}

		return true
	})

	return werr
}

// forgetInode drops a freed inode from the cache.
func (v *Volume) forgetInode(ino uint32) {
	v.inodesMu.Lock()
	defer v.inodesMu.Unlock()

	v.inodes.Delete(&inodeInfo{ino: ino})
}
