// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2026 Killian Valverde.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package pnlfs implements a block-backed hierarchical filesystem: the
// on-disk layout (superblock, bitmap allocators, inode store, directory and
// file-index blocks) and the metadata engine that keeps them mutually
// consistent across mounts.
package pnlfs

import (
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	_ fs.FS        = (*Filesystem)(nil)
	_ fs.ReadDirFS = (*Filesystem)(nil)
	_ fs.StatFS    = (*Filesystem)(nil)
)

// Filesystem is a path-based read facade over a mounted volume, for hosts
// that consume io/fs.
type Filesystem struct {
	vol *Volume
}

func NewFilesystem(vol *Volume) *Filesystem {
	return &Filesystem{vol: vol}
}

func (fsys *Filesystem) Open(name string) (fs.File, error) {
	ino, err := fsys.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: mapError(err)}
	}

	st, err := fsys.vol.Stat(ino)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: mapError(err)}
	}

	if st.IsDir() {
		return &dirFile{fsys: fsys, name: name, ino: ino}, nil
	}

	r, err := fsys.vol.FileReader(ino)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: mapError(err)}
	}

	return &file{name: name, ino: ino, st: st, r: r}, nil
}

func (fsys *Filesystem) ReadDir(name string) ([]fs.DirEntry, error) {
	ino, err := fsys.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: mapError(err)}
	}

	dirents, err := fsys.readDirSorted(ino)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: mapError(err)}
	}

	return dirents, nil
}

// readDirSorted collects a directory's entries in the name order io/fs
// promises; the engine itself only guarantees slot order.
func (fsys *Filesystem) readDirSorted(ino uint32) ([]fs.DirEntry, error) {
	var dirents []fs.DirEntry
	err := fsys.vol.Readdir(ino, 2, func(de DirEnt) bool {
		dirents = append(dirents, &dirEntry{fsys: fsys, de: de})
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name() < dirents[j].Name() })
	return dirents, nil
}

func (fsys *Filesystem) Stat(name string) (fs.FileInfo, error) {
	ino, err := fsys.resolve(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: mapError(err)}
	}

	st, err := fsys.vol.Stat(ino)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: mapError(err)}
	}

	return &fileInfo{name: baseName(name), ino: ino, st: st}, nil
}

func (fsys *Filesystem) resolve(name string) (uint32, error) {
	if !fs.ValidPath(name) {
		return 0, fs.ErrInvalid
	}

	ino := fsys.vol.Root()
	for _, comp := range splitPath(name) {
		child, err := fsys.vol.Lookup(ino, comp)
		if err != nil {
			return 0, err
		}

		ino = child
	}

	return ino, nil
}

// mapError translates engine sentinels into their io/fs equivalents so that
// errors.Is(err, fs.ErrNotExist) behaves as callers of an fs.FS expect.
func mapError(err error) error {
	switch err {
	case ErrNotFound:
		return fs.ErrNotExist
	case ErrNameExists:
		return fs.ErrExist
	default:
		return err
	}
}

func baseName(name string) string {
	if name == "." {
		return "."
	}

	return filepath.Base(name)
}

type file struct {
	name string
	ino  uint32
	st   Inode
	r    io.Reader
}

func (f *file) Read(p []byte) (int, error) {
	return f.r.Read(p)
}

func (f *file) Close() error {
	return nil
}

func (f *file) Stat() (fs.FileInfo, error) {
	return &fileInfo{name: baseName(f.name), ino: f.ino, st: f.st}, nil
}

type dirFile struct {
	fsys    *Filesystem
	name    string
	ino     uint32
	entries []fs.DirEntry
	pos     int
}

func (d *dirFile) Read(p []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: ErrIsDirectory}
}

func (d *dirFile) Close() error {
	return nil
}

func (d *dirFile) Stat() (fs.FileInfo, error) {
	st, err := d.fsys.vol.Stat(d.ino)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: d.name, Err: mapError(err)}
	}

	return &fileInfo{name: baseName(d.name), ino: d.ino, st: st}, nil
}

func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		entries, err := d.fsys.readDirSorted(d.ino)
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: d.name, Err: mapError(err)}
		}
		if entries == nil {
			entries = []fs.DirEntry{}
		}
		d.entries = entries
	}

	rest := d.entries[d.pos:]
	if n <= 0 {
		d.pos = len(d.entries)
		return rest, nil
	}

	if len(rest) == 0 {
		return nil, io.EOF
	}
	if len(rest) > n {
		rest = rest[:n]
	}

	d.pos += len(rest)
	return rest, nil
}

type dirEntry struct {
	fsys *Filesystem
	de   DirEnt
}

func (de *dirEntry) Name() string {
	return de.de.Name
}

func (de *dirEntry) IsDir() bool {
	return de.de.Type == FTDir
}

func (de *dirEntry) Type() fs.FileMode {
	info, err := de.Info()
	if err != nil {
		return 0
	}

	return info.Mode().Type()
}

func (de *dirEntry) Info() (fs.FileInfo, error) {
	st, err := de.fsys.vol.Stat(de.de.Ino)
	if err != nil {
		return nil, mapError(err)
	}

	return &fileInfo{name: de.de.Name, ino: de.de.Ino, st: st}, nil
}

type fileInfo struct {
	name string
	ino  uint32
	st   Inode
}

func (fi *fileInfo) Name() string {
	return fi.name
}

func (fi *fileInfo) Size() int64 {
	return int64(fi.st.Size)
}

func (fi *fileInfo) Mode() fs.FileMode {
	return fileModeFromStatMode(fi.st.Mode)
}

// ModTime returns the zero time: the format stores no timestamps.
func (fi *fileInfo) ModTime() time.Time {
	return time.Time{}
}

func (fi *fileInfo) IsDir() bool {
	return fi.st.IsDir()
}

func (fi *fileInfo) Sys() any {
	return &fi.st
}

func splitPath(path string) []string {
	var components []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." {
			components = append(components, part)
		}
	}
	return components
}
