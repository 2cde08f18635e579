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
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/killianvalverde/pnlfs/fusefs"
)

var mountCmd = &cobra.Command{
	Use:   "mount <image> <dir>",
	Short: "Mount an image through FUSE until interrupted",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, f, err := openVolume(args[0], true)
		if err != nil {
			return err
		}
		defer f.Close()

		server, err := fusefs.Mount(args[1], vol, nil)
		if err != nil {
			_ = vol.Unmount()
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			logrus.Info("unmounting")
			_ = server.Unmount()
		}()

		server.Wait()

		return vol.Unmount()
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}
