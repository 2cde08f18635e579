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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirInsertLookupRemove(t *testing.T) {
	vol, _ := newTestVolume(t, 64, 32)
	root, err := vol.loadInode(RootIno)
	require.NoError(t, err)

	require.NoError(t, vol.insertDir(root, "alpha", 1))
	require.NoError(t, vol.insertDir(root, "beta", 2))
	require.NoError(t, vol.insertDir(root, "gamma", 3))
	require.Equal(t, uint32(3), root.NrEntries)

	ino, err := vol.lookupDir(root, "beta")
	require.NoError(t, err)
	require.Equal(t, uint32(2), ino)

	_, err = vol.lookupDir(root, "delta")
	require.ErrorIs(t, err, ErrNotFound)

	// Removal compacts the remaining entries left by one slot.
	require.NoError(t, vol.removeDir(root, "beta"))
	require.Equal(t, uint32(2), root.NrEntries)

	b, err := vol.dev.ReadBlock(root.IndexBlock)
	require.NoError(t, err)
	de0 := dirEntryAt(b.Data, 0)
	de1 := dirEntryAt(b.Data, 1)
	require.Equal(t, "alpha", de0.Name())
	require.Equal(t, "gamma", de1.Name())
}

func TestDirRemoveLastSlot(t *testing.T) {
	vol, _ := newTestVolume(t, 64, 32)
	root, err := vol.loadInode(RootIno)
	require.NoError(t, err)

	require.NoError(t, vol.insertDir(root, "only", 1))
	require.NoError(t, vol.removeDir(root, "only"))
	require.Equal(t, uint32(0), root.NrEntries)

	_, err = vol.lookupDir(root, "only")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDirFirstMatchWins(t *testing.T) {
	vol, _ := newTestVolume(t, 64, 32)
	root, err := vol.loadInode(RootIno)
	require.NoError(t, err)

	// Duplicate names can only appear if a caller skipped the NameExists
	// check; lookup and removal must both take the first match.
	b, err := vol.dev.ReadBlock(root.IndexBlock)
	require.NoError(t, err)

	var de DirEntry
	copy(de.Filename[:], "twin")
	de.Ino = 1
	putDirEntryAt(b.Data, 0, de)
	de.Ino = 2
	putDirEntryAt(b.Data, 1, de)
	root.NrEntries = 2

	ino, err := vol.lookupDir(root, "twin")
	require.NoError(t, err)
	require.Equal(t, uint32(1), ino)

	require.NoError(t, vol.removeDir(root, "twin"))

	ino, err = vol.lookupDir(root, "twin")
	require.NoError(t, err)
	require.Equal(t, uint32(2), ino)
}

func TestDirFull(t *testing.T) {
	vol, _ := newTestVolume(t, 64, 32)
	root, err := vol.loadInode(RootIno)
	require.NoError(t, err)

	for i := 0; i < MaxDirEntries; i++ {
		require.NoError(t, vol.insertDir(root, fmt.Sprintf("f%03d", i), uint32(i+1)))
	}

	err = vol.insertDir(root, "overflow", 999)
	require.ErrorIs(t, err, ErrDirFull)
	require.Equal(t, uint32(MaxDirEntries), root.NrEntries)
}

func TestDirNameTooLong(t *testing.T) {
	vol, _ := newTestVolume(t, 64, 32)
	root, err := vol.loadInode(RootIno)
	require.NoError(t, err)

	name := make([]byte, FilenameLen+1)
	for i := range name {
		name[i] = 'x'
	}

	err = vol.insertDir(root, string(name), 1)
	require.ErrorIs(t, err, ErrNameTooLong)
}
