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
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/killianvalverde/pnlfs"
)

var lsCmd = &cobra.Command{
	Use:   "ls <image> [path]",
	Short: "List a directory of an image",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, f, err := openVolume(args[0], false)
		if err != nil {
			return err
		}
		defer f.Close()

		path := "."
		if len(args) > 1 {
			path = args[1]
		}

		fsys := pnlfs.NewFilesystem(vol)
		entries, err := fsys.ReadDir(path)
		if err != nil {
			return err
		}

		for _, de := range entries {
			info, err := de.Info()
			if err != nil {
				return err
			}

			fmt.Printf("%s %8d %s\n", info.Mode(), info.Size(), de.Name())
		}

		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <image> <path>",
	Short: "Write a file's contents to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, f, err := openVolume(args[0], false)
		if err != nil {
			return err
		}
		defer f.Close()

		src, err := pnlfs.NewFilesystem(vol).Open(args[1])
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(os.Stdout, src)
		return err
	},
}

var fsckCmd = &cobra.Command{
	Use:   "fsck <image>",
	Short: "Check the structural invariants of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, f, err := openVolume(args[0], false)
		if err != nil {
			return err
		}
		defer f.Close()

		problems, err := vol.Check()
		if err != nil {
			return err
		}

		for _, p := range problems {
			fmt.Fprintln(os.Stderr, p)
		}

		if len(problems) > 0 {
			return fmt.Errorf("%s: %d problems found", args[0], len(problems))
		}

		fmt.Printf("%s: clean\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(fsckCmd)
}
