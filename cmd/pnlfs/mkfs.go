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

	"github.com/google/renameio"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/killianvalverde/pnlfs"
)

var (
	flagBlocks uint32
	flagInodes uint32
)

var mkfsCmd = &cobra.Command{
	Use:   "mkfs <image>",
	Short: "Format a fresh pnlfs image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := renameio.TempFile("", args[0])
		if err != nil {
			return err
		}
		defer func() {
			_ = t.Cleanup()
		}()

		opts := pnlfs.FormatOptions{
			NrBlocks: flagBlocks,
			NrInodes: flagInodes,
		}
		if err := pnlfs.Format(t, opts); err != nil {
			return err
		}

		if err := t.CloseAtomicallyReplace(); err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"image":  args[0],
			"blocks": flagBlocks,
			"inodes": flagInodes,
		}).Info("formatted image")

		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <image>",
	Short: "Print the superblock summary of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, f, err := openVolume(args[0], false)
		if err != nil {
			return err
		}
		defer f.Close()

		sb := vol.SuperBlock()
		fmt.Printf("magic:        0x%08x\n", sb.Magic)
		fmt.Printf("blocks:       %d (%d free)\n", sb.NrBlocks, sb.NrFreeBlocks)
		fmt.Printf("inodes:       %d (%d free)\n", sb.NrInodes, sb.NrFreeInodes)
		fmt.Printf("inode store:  %d blocks\n", sb.NrIstoreBlocks)
		fmt.Printf("inode bitmap: %d blocks\n", sb.NrIfreeBlocks)
		fmt.Printf("block bitmap: %d blocks\n", sb.NrBfreeBlocks)

		return nil
	},
}

func init() {
	mkfsCmd.Flags().Uint32Var(&flagBlocks, "blocks", 1024, "total device blocks")
	mkfsCmd.Flags().Uint32Var(&flagInodes, "inodes", 256, "inode slots to provision")

	rootCmd.AddCommand(mkfsCmd)
	rootCmd.AddCommand(infoCmd)
}
