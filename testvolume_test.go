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
	"testing"

	"github.com/stretchr/testify/require"
)

// rwBuf is a minimal in-memory backing for tests inside the package.
type rwBuf []byte

func (b rwBuf) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}

	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

func (b rwBuf) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(b)) {
		return 0, fmt.Errorf("write of %d bytes at %d beyond buffer", len(p), off)
	}

	return copy(b[off:], p), nil
}

func newTestVolume(t *testing.T, blocks, inodes uint32) (*Volume, rwBuf) {
	t.Helper()

	buf := make(rwBuf, int64(blocks)*BlockSize)
	require.NoError(t, Format(buf, FormatOptions{NrBlocks: blocks, NrInodes: inodes}))

	vol, err := Mount(buf, blocks, nil)
	require.NoError(t, err)

	return vol, buf
}
