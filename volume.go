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
	"sync"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"
)

// MountOptions tune a Mount call. The zero value is usable.
type MountOptions struct {
	// Logger receives mount, sync and consistency diagnostics. Defaults to
	// the logrus standard logger.
	Logger logrus.FieldLogger
}

// Volume is a mounted PNLFS filesystem. All mutable state lives here; several
// volumes can be mounted independently, each with its own mutation lock and
// caches.
type Volume struct {
	mu sync.RWMutex

	dev      *BlockDevice
	sb       SuperBlock
	ifree    *bitmap
	bfree    *bitmap
	inodesMu sync.Mutex
	inodes   *btree.BTree
	log      logrus.FieldLogger
	closed   bool
}

// Mount reads the superblock and both free bitmaps from the backing store and
// returns a live volume. nrBlocks is the number of addressable blocks the
// device provides.
func Mount(backing ReadWriterAt, nrBlocks uint32, opts *MountOptions) (*Volume, error) {
	log := logrus.FieldLogger(logrus.StandardLogger())
	if opts != nil && opts.Logger != nil {
		log = opts.Logger
	}

	dev := NewBlockDevice(backing, nrBlocks)

	b, err := dev.ReadBlock(0)
	if err != nil {
		return nil, err
	}

	sb, err := decodeSuperBlock(b.Data)
	if err != nil {
		return nil, err
	}

	if err := sb.validate(nrBlocks); err != nil {
		return nil, err
	}

	v := &Volume{
		dev:    dev,
		sb:     sb,
		ifree:  newBitmap(sb.NrIfreeBlocks),
		bfree:  newBitmap(sb.NrBfreeBlocks),
		inodes: btree.New(8),
		log:    log,
	}

	ifreeStart := 1 + sb.NrIstoreBlocks
	if err := v.loadBitmap(v.ifree, ifreeStart, sb.NrIfreeBlocks); err != nil {
		return nil, err
	}

	bfreeStart := ifreeStart + sb.NrIfreeBlocks
	if err := v.loadBitmap(v.bfree, bfreeStart, sb.NrBfreeBlocks); err != nil {
		return nil, err
	}

	if n := v.ifree.count(); n != sb.NrFreeInodes {
		return nil, fmt.Errorf("%w: inode bitmap has %d free bits, superblock says %d", ErrInconsistentBitmap, n, sb.NrFreeInodes)
	}
	if n := v.bfree.count(); n != sb.NrFreeBlocks {
		return nil, fmt.Errorf("%w: block bitmap has %d free bits, superblock says %d", ErrInconsistentBitmap, n, sb.NrFreeBlocks)
	}

	root, err := v.loadInode(RootIno)
	if err != nil {
		return nil, err
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("%w: root inode is not a directory", ErrBadImage)
	}

	log.WithFields(logrus.Fields{
		"blocks":      sb.NrBlocks,
		"inodes":      sb.NrInodes,
		"free_blocks": sb.NrFreeBlocks,
		"free_inodes": sb.NrFreeInodes,
	}).Debug("pnlfs: mounted")

	return v, nil
}

func (v *Volume) loadBitmap(bm *bitmap, start, nblocks uint32) error {
	buf := make([]byte, uint64(nblocks)*BlockSize)
	for i := uint32(0); i < nblocks; i++ {
		b, err := v.dev.ReadBlock(start + i)
		if err != nil {
			return err
		}

		copy(buf[uint64(i)*BlockSize:], b.Data)
	}

	bm.load(buf)
	return nil
}

func (v *Volume) storeBitmap(bm *bitmap, start, nblocks uint32) error {
	buf := make([]byte, uint64(nblocks)*BlockSize)
	bm.store(buf)

	for i := uint32(0); i < nblocks; i++ {
		b, err := v.dev.ReadBlock(start + i)
		if err != nil {
			return err
		}

		copy(b.Data, buf[uint64(i)*BlockSize:uint64(i+1)*BlockSize])
		v.dev.MarkDirty(start + i)
	}

	return nil
}

// SuperBlock returns a copy of the volume's superblock.
func (v *Volume) SuperBlock() SuperBlock {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.sb
}

// Root returns the inode number of the root directory.
func (v *Volume) Root() uint32 {
	return RootIno
}

// Sync writes back the superblock counters, both bitmaps, and every dirty
// inode, directory and file-index block. Ordering: superblock first, then
// bitmaps, then data, each committed with a durability barrier.
func (v *Volume) Sync() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.syncLocked()
}

func (v *Volume) syncLocked() error {
	if v.closed {
		return ErrVolumeClosed
	}

	b, err := v.dev.ReadBlock(0)
	if err != nil {
		return err
	}

	v.sb.encode(b.Data)
	v.dev.MarkDirty(0)

	if err := v.dev.Flush(0); err != nil {
		return err
	}
	if err := v.dev.Sync(); err != nil {
		return err
	}

	ifreeStart := 1 + v.sb.NrIstoreBlocks
	if err := v.storeBitmap(v.ifree, ifreeStart, v.sb.NrIfreeBlocks); err != nil {
		return err
	}
	if err := v.storeBitmap(v.bfree, ifreeStart+v.sb.NrIfreeBlocks, v.sb.NrBfreeBlocks); err != nil {
		return err
	}

	for i := uint32(0); i < v.sb.NrIfreeBlocks+v.sb.NrBfreeBlocks; i++ {
		if err := v.dev.Flush(ifreeStart + i); err != nil {
			return err
		}
	}
	if err := v.dev.Sync(); err != nil {
		return err
	}

	if err := v.flushInodes(); err != nil {
		return err
	}
	if err := v.dev.FlushAll(); err != nil {
		return err
	}
	if err := v.dev.Sync(); err != nil {
		return err
	}

	v.log.Debug("pnlfs: synced")
	return nil
}

// Unmount syncs the volume and releases its in-memory state. Using the volume
// afterwards fails with ErrVolumeClosed; unmounting twice is a programming
// error and fails the same way.
func (v *Volume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVolumeClosed
	}

	if err := v.syncLocked(); err != nil {
		return err
	}

	v.closed = true
	v.inodes = btree.New(8)
	v.ifree = nil
	v.bfree = nil

	v.log.Debug("pnlfs: unmounted")
	return nil
}

// allocInode claims the lowest free inode after the allocation cursor.
func (v *Volume) allocInode() (uint32, error) {
	ino, ok := v.ifree.allocate()
	if !ok {
		return 0, ErrNoFreeInode
	}

	v.sb.NrFreeInodes--
	return ino, nil
}

// allocBlock claims a free data block.
func (v *Volume) allocBlock() (uint32, error) {
	blk, ok := v.bfree.allocate()
	if !ok {
		return 0, ErrNoFreeBlock
	}

	v.sb.NrFreeBlocks--
	return blk, nil
}

// freeInode returns an inode to the bitmap. Releasing an already-free inode
// leaves the counter untouched and logs an inconsistency warning.
func (v *Volume) freeInode(ino uint32) {
	if !v.ifree.release(ino) {
		v.log.WithFields(logrus.Fields{
			"resource": "inode",
			"index":    ino,
		}).Warn("pnlfs: release of already-free resource")
		return
	}

	v.sb.NrFreeInodes++
}

// freeBlock returns a data block to the bitmap, with the same release
// semantics as freeInode.
func (v *Volume) freeBlock(blk uint32) {
	if !v.bfree.release(blk) {
		v.log.WithFields(logrus.Fields{
			"resource": "block",
			"index":    blk,
		}).Warn("pnlfs: release of already-free resource")
		return
	}

	v.sb.NrFreeBlocks++
}
