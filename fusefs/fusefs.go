// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2026 Killian Valverde.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package fusefs exposes a mounted pnlfs volume to the host kernel through
// FUSE. It is a thin translation layer: every operation delegates to the
// volume's namespace API and maps the engine's sentinel errors onto errnos.
package fusefs

import (
	"context"
	"errors"
	"io"
	"syscall"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/killianvalverde/pnlfs"
)

var (
	_ = (gofs.NodeLookuper)((*Node)(nil))
	_ = (gofs.NodeReaddirer)((*Node)(nil))
	_ = (gofs.NodeGetattrer)((*Node)(nil))
	_ = (gofs.NodeSetattrer)((*Node)(nil))
	_ = (gofs.NodeCreater)((*Node)(nil))
	_ = (gofs.NodeMkdirer)((*Node)(nil))
	_ = (gofs.NodeUnlinker)((*Node)(nil))
	_ = (gofs.NodeRmdirer)((*Node)(nil))
	_ = (gofs.NodeRenamer)((*Node)(nil))
	_ = (gofs.NodeOpener)((*Node)(nil))
	_ = (gofs.NodeReader)((*Node)(nil))
	_ = (gofs.NodeWriter)((*Node)(nil))
	_ = (gofs.NodeFsyncer)((*Node)(nil))
)

// Node maps one pnlfs inode onto the FUSE node tree.
type Node struct {
	gofs.Inode

	vol *pnlfs.Volume
	ino uint32
}

// NewRoot returns the root node for a mounted volume.
func NewRoot(vol *pnlfs.Volume) *Node {
	return &Node{vol: vol, ino: vol.Root()}
}

// Mount exposes the volume at dir until the returned server is unmounted.
func Mount(dir string, vol *pnlfs.Volume, opts *gofs.Options) (*fuse.Server, error) {
	if opts == nil {
		opts = &gofs.Options{}
	}
	if opts.MountOptions.FsName == "" {
		opts.MountOptions.FsName = "pnlfs"
	}
	if opts.MountOptions.Name == "" {
		opts.MountOptions.Name = "pnlfs"
	}

	return gofs.Mount(dir, NewRoot(vol), opts)
}

// fuseIno shifts inode numbers by one: pnlfs numbers from 0, FUSE reserves 0.
func fuseIno(ino uint32) uint64 {
	return uint64(ino) + 1
}

func errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pnlfs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, pnlfs.ErrNameExists):
		return syscall.EEXIST
	case errors.Is(err, pnlfs.ErrNameTooLong):
		return syscall.ENAMETOOLONG
	case errors.Is(err, pnlfs.ErrDirFull),
		errors.Is(err, pnlfs.ErrNoFreeInode),
		errors.Is(err, pnlfs.ErrNoFreeBlock):
		return syscall.ENOSPC
	case errors.Is(err, pnlfs.ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, pnlfs.ErrIsDirectory):
		return syscall.EISDIR
	case errors.Is(err, pnlfs.ErrNotDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, pnlfs.ErrFileTooLarge):
		return syscall.EFBIG
	default:
		return syscall.EIO
	}
}

func (n *Node) fillAttr(st pnlfs.Inode, out *fuse.Attr, ino uint32) {
	out.Ino = fuseIno(ino)
	out.Mode = st.Mode
	out.Size = uint64(st.Size)
	out.Blocks = uint64(st.NrEntries)
	out.Blksize = pnlfs.BlockSize
	out.Nlink = 1
}

func (n *Node) newChild(ctx context.Context, ino uint32, st pnlfs.Inode) *gofs.Inode {
	return n.NewInode(ctx, &Node{vol: n.vol, ino: ino}, gofs.StableAttr{
		Mode: st.Mode,
		Ino:  fuseIno(ino),
	})
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	child, err := n.vol.Lookup(n.ino, name)
	if err != nil {
		return nil, errno(err)
	}

	st, err := n.vol.Stat(child)
	if err != nil {
		return nil, errno(err)
	}

	n.fillAttr(st, &out.Attr, child)
	return n.newChild(ctx, child, st), 0
}

func (n *Node) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	st, err := n.vol.Stat(n.ino)
	if err != nil {
		return errno(err)
	}

	n.fillAttr(st, &out.Attr, n.ino)
	return 0
}

func (n *Node) Setattr(ctx context.Context, f gofs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := n.vol.Truncate(n.ino, int64(size)); err != nil {
			return errno(err)
		}
	}

	return n.Getattr(ctx, f, out)
}

func (n *Node) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	var entries []fuse.DirEntry
	err := n.vol.Readdir(n.ino, 2, func(de pnlfs.DirEnt) bool {
		var mode uint32
		switch de.Type {
		case pnlfs.FTDir:
			mode = syscall.S_IFDIR
		case pnlfs.FTRegFile:
			mode = syscall.S_IFREG
		}

		entries = append(entries, fuse.DirEntry{
			Name: de.Name,
			Ino:  fuseIno(de.Ino),
			Mode: mode,
		})
		return true
	})
	if err != nil {
		return nil, errno(err)
	}

	return gofs.NewListDirStream(entries), 0
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofs.Inode, gofs.FileHandle, uint32, syscall.Errno) {
	child, err := n.vol.Create(n.ino, name, mode)
	if err != nil {
		return nil, nil, 0, errno(err)
	}

	st, err := n.vol.Stat(child)
	if err != nil {
		return nil, nil, 0, errno(err)
	}

	n.fillAttr(st, &out.Attr, child)
	return n.newChild(ctx, child, st), nil, 0, 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	child, err := n.vol.Mkdir(n.ino, name, mode)
	if err != nil {
		return nil, errno(err)
	}

	st, err := n.vol.Stat(child)
	if err != nil {
		return nil, errno(err)
	}

	n.fillAttr(st, &out.Attr, child)
	return n.newChild(ctx, child, st), 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return errno(n.vol.Unlink(n.ino, name))
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return errno(n.vol.Rmdir(n.ino, name))
}

func (n *Node) Rename(ctx context.Context, name string, newParent gofs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	np, ok := newParent.(*Node)
	if !ok {
		return syscall.EXDEV
	}

	return errno(n.vol.Rename(n.ino, name, np.ino, newName, flags))
}

func (n *Node) Open(ctx context.Context, flags uint32) (gofs.FileHandle, uint32, syscall.Errno) {
	if flags&uint32(syscall.O_TRUNC) != 0 {
		if err := n.vol.Truncate(n.ino, 0); err != nil {
			return nil, 0, errno(err)
		}
	}

	return nil, 0, 0
}

func (n *Node) Read(ctx context.Context, f gofs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	cnt, err := n.vol.ReadFileAt(n.ino, dest, off)
	if err != nil && err != io.EOF {
		return nil, errno(err)
	}

	return fuse.ReadResultData(dest[:cnt]), 0
}

func (n *Node) Write(ctx context.Context, f gofs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	cnt, err := n.vol.WriteFileAt(n.ino, data, off)
	if err != nil {
		return uint32(cnt), errno(err)
	}

	return uint32(cnt), 0
}

func (n *Node) Fsync(ctx context.Context, f gofs.FileHandle, flags uint32) syscall.Errno {
	return errno(n.vol.Sync())
}
