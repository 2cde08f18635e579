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
	"io"
)

// FormatOptions describe the geometry of a fresh image.
type FormatOptions struct {
	// NrBlocks is the total number of device blocks.
	NrBlocks uint32

	// NrInodes is the number of inode slots to provision.
	NrInodes uint32
}

// Format writes a fresh, mountable image to dst: superblock, zeroed inode
// store with the root directory in slot 0, both free bitmaps, and a zeroed
// data area.
func Format(dst io.WriterAt, opts FormatOptions) error {
	if opts.NrBlocks == 0 || opts.NrInodes == 0 {
		return fmt.Errorf("%w: blocks and inodes must be non-zero", ErrBadImage)
	}

	nrIstore := divRoundUp(opts.NrInodes, InodesPerBlock)
	nrIfree := divRoundUp(opts.NrInodes, BlockSize*8)
	nrBfree := divRoundUp(opts.NrBlocks, BlockSize*8)

	firstData := 1 + nrIstore + nrIfree + nrBfree
	if opts.NrBlocks < firstData+1 {
		return fmt.Errorf("%w: %d blocks cannot hold %d metadata blocks and a root directory",
			ErrBadImage, opts.NrBlocks, firstData)
	}

	rootBlock := firstData

	sb := SuperBlock{
		Magic:          Magic,
		NrBlocks:       opts.NrBlocks,
		NrInodes:       opts.NrInodes,
		NrIstoreBlocks: nrIstore,
		NrIfreeBlocks:  nrIfree,
		NrBfreeBlocks:  nrBfree,
		NrFreeInodes:   opts.NrInodes - 1,
		NrFreeBlocks:   opts.NrBlocks - firstData - 1,
	}

	// Zero the whole image first so every unwritten block, including the
	// garbage tails of future directory blocks, starts deterministic.
	zero := make([]byte, BlockSize)
	for blk := uint32(0); blk < opts.NrBlocks; blk++ {
		if err := writeBlockAt(dst, blk, zero); err != nil {
			return err
		}
	}

	buf := make([]byte, BlockSize)
	sb.encode(buf)
	if err := writeBlockAt(dst, 0, buf); err != nil {
		return err
	}

	root := Inode{
		Mode:       S_IFDIR | 0o755,
		IndexBlock: rootBlock,
	}

	clear(buf)
	root.encode(buf, 0)
	if err := writeBlockAt(dst, 1, buf); err != nil {
		return err
	}

	// Inode bitmap: every slot free except the root.
	ifree := newBitmap(nrIfree)
	for ino := uint32(1); ino < opts.NrInodes; ino++ {
		ifree.set(ino)
	}
	if err := writeBitmap(dst, ifree, 1+nrIstore, nrIfree); err != nil {
		return err
	}

	// Block bitmap: the data area is free except the root directory block;
	// the metadata blocks stay allocated.
	bfree := newBitmap(nrBfree)
	for blk := firstData + 1; blk < opts.NrBlocks; blk++ {
		bfree.set(blk)
	}
	if err := writeBitmap(dst, bfree, 1+nrIstore+nrIfree, nrBfree); err != nil {
		return err
	}

	return nil
}

func writeBlockAt(dst io.WriterAt, blk uint32, data []byte) error {
	if _, err := dst.WriteAt(data, int64(blk)*BlockSize); err != nil {
		return fmt.Errorf("%w: write block %d: %v", ErrBlockIO, blk, err)
	}

	return nil
}

func writeBitmap(dst io.WriterAt, bm *bitmap, start, nblocks uint32) error {
	buf := make([]byte, uint64(nblocks)*BlockSize)
	bm.store(buf)

	for i := uint32(0); i < nblocks; i++ {
		if err := writeBlockAt(dst, start+i, buf[uint64(i)*BlockSize:uint64(i+1)*BlockSize]); err != nil {
			return err
		}
	}

	return nil
}

func divRoundUp(n, d uint32) uint32 {
	return (n + d - 1) / d
}
