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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/killianvalverde/pnlfs"
	"github.com/killianvalverde/pnlfs/internal/testutil"
)

func TestFormatGeometry(t *testing.T) {
	vol, _ := newVolume(t, 64, 32)

	want := pnlfs.SuperBlock{
		Magic:          pnlfs.Magic,
		NrBlocks:       64,
		NrInodes:       32,
		NrIstoreBlocks: 1,
		NrIfreeBlocks:  1,
		NrBfreeBlocks:  1,
		NrFreeInodes:   31,
		NrFreeBlocks:   59,
	}

	if diff := cmp.Diff(want, vol.SuperBlock()); diff != "" {
		t.Fatalf("unexpected geometry (-want +got):\n%s", diff)
	}

	st, err := vol.Stat(vol.Root())
	require.NoError(t, err)
	require.True(t, st.IsDir())
	require.Zero(t, st.NrEntries)

	problems, err := vol.Check()
	require.NoError(t, err)
	require.Empty(t, problems)
}

func TestFormatLargeGeometry(t *testing.T) {
	// An inode count above InodesPerBlock needs a second store block.
	blocks := uint32(2048)
	inodes := uint32(512)

	buf := testutil.NewImageBuffer(int64(blocks) * pnlfs.BlockSize)
	require.NoError(t, pnlfs.Format(buf, pnlfs.FormatOptions{NrBlocks: blocks, NrInodes: inodes}))

	vol, err := pnlfs.Mount(buf, blocks, nil)
	require.NoError(t, err)

	sb := vol.SuperBlock()
	require.Equal(t, uint32(2), sb.NrIstoreBlocks)
	require.Equal(t, inodes-1, sb.NrFreeInodes)
}

func TestFormatRejectsImpossibleGeometry(t *testing.T) {
	buf := testutil.NewImageBuffer(4 * pnlfs.BlockSize)

	err := pnlfs.Format(buf, pnlfs.FormatOptions{NrBlocks: 4, NrInodes: 32})
	require.ErrorIs(t, err, pnlfs.ErrBadImage)

	err = pnlfs.Format(buf, pnlfs.FormatOptions{NrBlocks: 0, NrInodes: 0})
	require.ErrorIs(t, err, pnlfs.ErrBadImage)
}
