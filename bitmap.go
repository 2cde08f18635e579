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
	"math/bits"
)

// bitmap is a free-resource map held in memory as 64-bit words. A set bit
// marks the resource as free, a clear bit as allocated. On disk the same bits
// are packed little-endian, 64 at a time.
type bitmap struct {
	words  []uint64
	nbits  uint32
	cursor uint32 // next-fit scan position
}

// newBitmap returns an all-allocated bitmap spanning nblocks device blocks.
func newBitmap(nblocks uint32) *bitmap {
	return &bitmap{
		words: make([]uint64, uint64(nblocks)*BlockSize/8),
		nbits: nblocks * BlockSize * 8,
	}
}

func (bm *bitmap) get(ix uint32) bool {
	return bm.words[ix/64]&(1<<(ix%64)) != 0
}

func (bm *bitmap) set(ix uint32) {
	bm.words[ix/64] |= 1 << (ix % 64)
}

func (bm *bitmap) clear(ix uint32) {
	bm.words[ix/64] &^= 1 << (ix % 64)
}

// allocate finds a set bit, clears it, and returns its index. The scan starts
// at the cursor left by the previous allocation and wraps once; if no bit is
// set anywhere the second return is false.
func (bm *bitmap) allocate() (uint32, bool) {
	nwords := uint32(len(bm.words))
	if nwords == 0 {
		return 0, false
	}

	start := bm.cursor / 64
	for i := uint32(0); i <= nwords; i++ {
		w := (start + i) % nwords
		if bm.words[w] == 0 {
			continue
		}

		ix := w*64 + uint32(bits.TrailingZeros64(bm.words[w]))
		bm.clear(ix)
		bm.cursor = ix + 1
		if bm.cursor >= bm.nbits {
			bm.cursor = 0
		}

		return ix, true
	}

	return 0, false
}

// release sets the bit for ix. It reports false when the bit was already set,
// leaving the map unchanged.
func (bm *bitmap) release(ix uint32) bool {
	if bm.get(ix) {
		return false
	}

	bm.set(ix)
	return true
}

// count returns the number of set (free) bits.
func (bm *bitmap) count() uint32 {
	var n int
	for _, w := range bm.words {
		n += bits.OnesCount64(w)
	}

	return uint32(n)
}

// load fills the bitmap from its on-disk rendering.
func (bm *bitmap) load(data []byte) {
	for i := range bm.words {
		bm.words[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
}

// store writes the bitmap back to its on-disk rendering.
func (bm *bitmap) store(data []byte) {
	for i, w := range bm.words {
		binary.LittleEndian.PutUint64(data[i*8:], w)
	}
}
