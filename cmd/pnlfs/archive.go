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
	"io"
	"os"

	"github.com/google/renameio"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <image> <out.gz>",
	Short: "Compress an image for storage or transfer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		t, err := renameio.TempFile("", args[1])
		if err != nil {
			return err
		}
		defer func() {
			_ = t.Cleanup()
		}()

		zw := gzip.NewWriter(t)
		if _, err := io.Copy(zw, src); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		return t.CloseAtomicallyReplace()
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <in.gz> <image>",
	Short: "Decompress an archived image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		zr, err := gzip.NewReader(src)
		if err != nil {
			return err
		}
		defer zr.Close()

		t, err := renameio.TempFile("", args[1])
		if err != nil {
			return err
		}
		defer func() {
			_ = t.Cleanup()
		}()

		if _, err := io.Copy(t, zr); err != nil {
			return err
		}

		return t.CloseAtomicallyReplace()
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(restoreCmd)
}
