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
	"sort"
	"sync"
)

// ReadWriterAt is the capability a backing store must provide. *os.File
// satisfies it, as does testutil.ImageBuffer.
type ReadWriterAt interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
}

// Block is a cached device block. The buffer is owned by the device; callers
// mutate Data in place and mark the block dirty.
type Block struct {
	Nr    uint32
	Data  []byte
	dirty bool
}

// BlockDevice retrieves fixed-size blocks by number from a backing store and
// caches them until they are flushed or released.
type BlockDevice struct {
	mu       sync.Mutex
	backing  ReadWriterAt
	nrBlocks uint32
	cache    map[uint32]*Block
}

func NewBlockDevice(backing ReadWriterAt, nrBlocks uint32) *BlockDevice {
	return &BlockDevice{
		backing:  backing,
		nrBlocks: nrBlocks,
		cache:    map[uint32]*Block{},
	}
}

// ReadBlock returns the cached block nr, reading it from the backing store on
// first access.
func (d *BlockDevice) ReadBlock(nr uint32) (*Block, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.readBlockLocked(nr)
}

func (d *BlockDevice) readBlockLocked(nr uint32) (*Block, error) {
	if nr >= d.nrBlocks {
		return nil, fmt.Errorf("%w: block %d out of range (%d blocks)", ErrBlockIO, nr, d.nrBlocks)
	}

	if b, ok := d.cache[nr]; ok {
		return b, nil
	}

	b := &Block{Nr: nr, Data: make([]byte, BlockSize)}
	if _, err := d.backing.ReadAt(b.Data, int64(nr)*BlockSize); err != nil {
		return nil, fmt.Errorf("%w: read block %d: %v", ErrBlockIO, nr, err)
	}

	d.cache[nr] = b
	return b, nil
}

// WriteBlock replaces the contents of block nr with data and marks it dirty.
// The block reaches the backing store on the next Flush or FlushAll.
func (d *BlockDevice) WriteBlock(nr uint32, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.readBlockLocked(nr)
	if err != nil {
		return err
	}

	copy(b.Data, data)
	b.dirty = true
	return nil
}

// MarkDirty flags a cached block as modified. A block that was never read is
// silently ignored.
func (d *BlockDevice) MarkDirty(nr uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.cache[nr]; ok {
		b.dirty = true
	}
}

// Flush writes block nr to the backing store if it is dirty.
func (d *BlockDevice) Flush(nr uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.cache[nr]
	if !ok || !b.dirty {
		return nil
	}

	return d.flushLocked(b)
}

func (d *BlockDevice) flushLocked(b *Block) error {
	if _, err := d.backing.WriteAt(b.Data, int64(b.Nr)*BlockSize); err != nil {
		return fmt.Errorf("%w: write block %d: %v", ErrBlockIO, b.Nr, err)
	}

	b.dirty = false
	return nil
}

// FlushAll writes every dirty cached block, in ascending block order.
func (d *BlockDevice) FlushAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var dirty []*Block
	for _, b := range d.cache {
		if b.dirty {
			dirty = append(dirty, b)
		}
	}

	sort.Slice(dirty, func(i, j int) bool { return dirty[i].Nr < dirty[j].Nr })

	for _, b := range dirty {
		if err := d.flushLocked(b); err != nil {
			return err
		}
	}

	return nil
}

// Release drops a clean block from the cache. Dirty blocks are kept so their
// modifications are not lost.
func (d *BlockDevice) Release(nr uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if b, ok := d.cache[nr]; ok && !b.dirty {
		delete(d.cache, nr)
	}
}

// Sync issues a durability barrier on the backing store. It is a no-op for
// backings without one (in-memory buffers).
func (d *BlockDevice) Sync() error {
	if err := datasync(d.backing); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrBlockIO, err)
	}

	return nil
}

// NrBlocks returns the number of addressable blocks on the device.
func (d *BlockDevice) NrBlocks() uint32 {
	return d.nrBlocks
}
