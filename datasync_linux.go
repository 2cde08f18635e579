// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2026 Killian Valverde.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

//go:build linux

package pnlfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// datasync flushes file-backed devices without forcing a metadata update.
func datasync(backing ReadWriterAt) error {
	if f, ok := backing.(*os.File); ok {
		return unix.Fdatasync(int(f.Fd()))
	}

	if s, ok := backing.(interface{ Sync() error }); ok {
		return s.Sync()
	}

	return nil
}
