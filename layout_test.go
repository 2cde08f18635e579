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
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutConstants(t *testing.T) {
	require.Equal(t, 16, InodeSize)
	require.Equal(t, 32, DirEntrySize)
	require.Equal(t, BlockSize, MaxDirEntries*DirEntrySize)
	require.Equal(t, BlockSize, MaxFileIndexEntries*4)
	require.Equal(t, 32, superBlockSize)
	require.Equal(t, DirEntrySize, binary.Size(DirEntry{}))
}

func TestSuperBlockRoundTrip(t *testing.T) {
	sb := SuperBlock{
		Magic:          Magic,
		NrBlocks:       64,
		NrInodes:       32,
		NrIstoreBlocks: 1,
		NrIfreeBlocks:  1,
		NrBfreeBlocks:  1,
		NrFreeInodes:   31,
		NrFreeBlocks:   59,
	}

	buf := make([]byte, BlockSize)
	sb.encode(buf)

	got, err := decodeSuperBlock(buf)
	require.NoError(t, err)
	require.Equal(t, sb, got)

	// encode∘decode is the identity on the raw block.
	buf2 := make([]byte, BlockSize)
	got.encode(buf2)
	require.True(t, bytes.Equal(buf, buf2))
}

func TestSuperBlockUnknownMagic(t *testing.T) {
	buf := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(buf, 0xdeadbeef)

	_, err := decodeSuperBlock(buf)
	require.ErrorIs(t, err, ErrBadImage)
}

func TestInodeRoundTrip(t *testing.T) {
	buf := make([]byte, BlockSize)

	for slot := 0; slot < InodesPerBlock; slot++ {
		want := Inode{
			Mode:       S_IFREG | 0o644,
			IndexBlock: uint32(100 + slot),
			Size:       uint32(slot * 512),
			NrEntries:  uint32(slot % 7),
		}
		want.encode(buf, slot)

		require.Equal(t, want, decodeInode(buf, slot))
	}

	// Raw bytes of slot 0 are little-endian words.
	var first Inode
	first.Mode = S_IFDIR | 0o755
	first.IndexBlock = 0x01020304
	first.encode(buf, 0)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf[4:8])
}

func TestDirBlockRoundTrip(t *testing.T) {
	raw := make([]byte, BlockSize)
	for i := range raw {
		raw[i] = byte(i * 31)
	}

	db, err := decodeDirBlock(raw)
	require.NoError(t, err)

	out := make([]byte, BlockSize)
	db.encode(out)
	require.True(t, bytes.Equal(raw, out))
}

func TestFileIndexBlockRoundTrip(t *testing.T) {
	raw := make([]byte, BlockSize)
	for i := range raw {
		raw[i] = byte(255 - i%251)
	}

	fib := decodeFileIndexBlock(raw)

	out := make([]byte, BlockSize)
	fib.encode(out)
	require.True(t, bytes.Equal(raw, out))
}

func TestDirEntryName(t *testing.T) {
	var de DirEntry
	copy(de.Filename[:], "a.txt")

	require.Equal(t, "a.txt", de.Name())
	require.True(t, de.matches("a.txt"))
	require.False(t, de.matches("a.tx"))
	require.False(t, de.matches("a.txt2"))

	// A name of exactly FilenameLen bytes has no terminator.
	long := make([]byte, FilenameLen)
	for i := range long {
		long[i] = byte('a' + i%26)
	}
	copy(de.Filename[:], long)

	require.Equal(t, string(long), de.Name())
	require.True(t, de.matches(string(long)))

	// Longer lookup names compare over the first FilenameLen bytes.
	require.True(t, de.matches(string(long)+"xyz"))
}
