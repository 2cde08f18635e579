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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitmapAllocate(t *testing.T) {
	bm := newBitmap(1)
	for i := uint32(0); i < 8; i++ {
		bm.set(i)
	}
	require.Equal(t, uint32(8), bm.count())

	// Lowest set bit first.
	ix, ok := bm.allocate()
	require.True(t, ok)
	require.Equal(t, uint32(0), ix)
	require.False(t, bm.get(0))

	// The cursor continues past the previous allocation.
	ix, ok = bm.allocate()
	require.True(t, ok)
	require.Equal(t, uint32(1), ix)

	require.Equal(t, uint32(6), bm.count())
}

func TestBitmapExhaustionAndWrap(t *testing.T) {
	bm := newBitmap(1)
	bm.set(3)
	bm.set(5)

	_, ok := bm.allocate()
	require.True(t, ok)
	_, ok = bm.allocate()
	require.True(t, ok)

	_, ok = bm.allocate()
	require.False(t, ok)

	// A release behind the cursor is still found: the scan starts at the
	// word holding the cursor and takes its lowest set bit.
	require.True(t, bm.release(3))
	ix, ok := bm.allocate()
	require.True(t, ok)
	require.Equal(t, uint32(3), ix)
}

func TestBitmapDoubleRelease(t *testing.T) {
	bm := newBitmap(1)

	require.True(t, bm.release(7))
	require.True(t, bm.get(7))

	// Releasing twice reports the inconsistency and leaves the bit set.
	require.False(t, bm.release(7))
	require.True(t, bm.get(7))
	require.Equal(t, uint32(1), bm.count())
}

func TestBitmapStoreLoad(t *testing.T) {
	bm := newBitmap(1)
	bm.set(0)
	bm.set(63)
	bm.set(64)
	bm.set(1000)

	data := make([]byte, BlockSize)
	bm.store(data)

	// 64-bit little-endian words on disk.
	require.Equal(t, byte(0x01), data[0])
	require.Equal(t, byte(0x80), data[7])
	require.Equal(t, byte(0x01), data[8])

	got := newBitmap(1)
	got.load(data)
	require.Equal(t, bm.words, got.words)
	require.Equal(t, uint32(4), got.count())
}
