// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2026 Killian Valverde.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pnlfs_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/killianvalverde/pnlfs"
	"github.com/killianvalverde/pnlfs/internal/testutil"
)

func TestMountRejectsUnknownMagic(t *testing.T) {
	buf := testutil.NewImageBuffer(64 * pnlfs.BlockSize)
	require.NoError(t, pnlfs.Format(buf, pnlfs.FormatOptions{NrBlocks: 64, NrInodes: 32}))

	binary.LittleEndian.PutUint32(buf.Bytes(), 0x12345678)

	_, err := pnlfs.Mount(buf, 64, nil)
	require.ErrorIs(t, err, pnlfs.ErrBadImage)
}

func TestMountRejectsCounterMismatch(t *testing.T) {
	buf := testutil.NewImageBuffer(64 * pnlfs.BlockSize)
	require.NoError(t, pnlfs.Format(buf, pnlfs.FormatOptions{NrBlocks: 64, NrInodes: 32}))

	// Superblock claims one fewer free inode than the bitmap holds.
	binary.LittleEndian.PutUint32(buf.Bytes()[24:], 30)

	_, err := pnlfs.Mount(buf, 64, nil)
	require.ErrorIs(t, err, pnlfs.ErrInconsistentBitmap)
}

func TestIdleMountCycleIsByteIdentical(t *testing.T) {
	buf := testutil.NewImageBuffer(64 * pnlfs.BlockSize)
	require.NoError(t, pnlfs.Format(buf, pnlfs.FormatOptions{NrBlocks: 64, NrInodes: 32}))

	snapshot := buf.Clone()

	vol, err := pnlfs.Mount(buf, 64, nil)
	require.NoError(t, err)
	require.NoError(t, vol.Sync())
	require.NoError(t, vol.Unmount())

	require.True(t, bytes.Equal(snapshot.Bytes(), buf.Bytes()),
		"mount/sync/unmount changed the image without any operation")

	_, err = pnlfs.Mount(buf, 64, nil)
	require.NoError(t, err)
}

func TestPersistenceAcrossRemount(t *testing.T) {
	vol, buf := newVolume(t, 64, 32)
	root := vol.Root()

	ino, err := vol.Create(root, "a.txt", 0o644)
	require.NoError(t, err)

	require.NoError(t, vol.Sync())
	before := vol.SuperBlock()
	require.NoError(t, vol.Unmount())

	vol2, err := pnlfs.Mount(buf, 64, nil)
	require.NoError(t, err)

	got, err := vol2.Lookup(vol2.Root(), "a.txt")
	require.NoError(t, err)
	require.Equal(t, ino, got)

	if diff := cmp.Diff(before, vol2.SuperBlock()); diff != "" {
		t.Fatalf("superblock changed across remount (-before +after):\n%s", diff)
	}
}

func TestCreateUnlinkRestoresCounters(t *testing.T) {
	vol, _ := newVolume(t, 64, 32)
	root := vol.Root()

	before := vol.SuperBlock()

	for i := 0; i < 5; i++ {
		_, err := vol.Create(root, "transient", 0o644)
		require.NoError(t, err)
		require.NoError(t, vol.Unlink(root, "transient"))
	}

	after := vol.SuperBlock()
	require.Equal(t, before.NrFreeInodes, after.NrFreeInodes)
	require.Equal(t, before.NrFreeBlocks, after.NrFreeBlocks)

	require.Equal(t, []string{".", ".."}, readdirNames(t, vol, root))
}

func TestSyncPersistsDirtyState(t *testing.T) {
	vol, buf := newVolume(t, 64, 32)
	root := vol.Root()

	_, err := vol.Create(root, "kept", 0o644)
	require.NoError(t, err)
	require.NoError(t, vol.Sync())

	// A second mount of the synced image sees the entry without the first
	// volume unmounting.
	vol2, err := pnlfs.Mount(buf.Clone(), 64, nil)
	require.NoError(t, err)

	_, err = vol2.Lookup(vol2.Root(), "kept")
	require.NoError(t, err)
}
