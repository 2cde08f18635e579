// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2026 Killian Valverde.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/killianvalverde/pnlfs"
)

var flagDebug bool

var rootCmd = &cobra.Command{
	Use:   "pnlfs",
	Short: "Create, inspect and mount pnlfs images",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagDebug {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openVolume mounts the image at path. The caller must Unmount (read-write)
// or may simply close the file (read-only inspection).
func openVolume(path string, writable bool) (*pnlfs.Volume, *os.File, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}

	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	if fi.Size()%pnlfs.BlockSize != 0 {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: size %d is not a multiple of the block size", path, fi.Size())
	}

	vol, err := pnlfs.Mount(f, uint32(fi.Size()/pnlfs.BlockSize), nil)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	return vol, f, nil
}
