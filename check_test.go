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

func TestCheckCleanVolume(t *testing.T) {
	vol, _ := newTestVolume(t, 64, 32)

	_, err := vol.Create(RootIno, "a.txt", 0o644)
	require.NoError(t, err)
	_, err = vol.Mkdir(RootIno, "d", 0o755)
	require.NoError(t, err)

	problems, err := vol.Check()
	require.NoError(t, err)
	require.Empty(t, problems)
}

func TestCheckReportsFreeInodeReference(t *testing.T) {
	vol, _ := newTestVolume(t, 64, 32)

	ino, err := vol.Create(RootIno, "a.txt", 0o644)
	require.NoError(t, err)

	// Corrupt the bitmap behind the engine's back: the referenced inode is
	// suddenly free, and the counter no longer matches the popcount.
	vol.ifree.set(ino)

	problems, err := vol.Check()
	require.NoError(t, err)
	require.NotEmpty(t, problems)

	var counter, freeRef bool
	for _, p := range problems {
		switch {
		case p == "inode bitmap has 31 free bits, counter says 30":
			counter = true
		case p == "/a.txt/: inode 1 is marked free":
			freeRef = true
		}
	}
	require.True(t, counter, "counter mismatch not reported: %v", problems)
	require.True(t, freeRef, "free inode reference not reported: %v", problems)
}

func TestCheckReportsFreeBlockReference(t *testing.T) {
	vol, _ := newTestVolume(t, 64, 32)

	ino, err := vol.Create(RootIno, "a.txt", 0o644)
	require.NoError(t, err)

	ii, err := vol.loadInode(ino)
	require.NoError(t, err)
	vol.bfree.set(ii.IndexBlock)

	problems, err := vol.Check()
	require.NoError(t, err)
	require.NotEmpty(t, problems)
}
