// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2026 Killian Valverde.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pnlfs

// DirEnt is one entry emitted by Readdir.
type DirEnt struct {
	Name string
	Ino  uint32
	Type uint8
}

// Lookup resolves name within the directory dir to an inode number.
func (v *Volume) Lookup(dir uint32, name string) (uint32, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return 0, ErrVolumeClosed
	}

	d, err := v.loadInode(dir)
	if err != nil {
		return 0, err
	}
	if !d.IsDir() {
		return 0, ErrNotDirectory
	}

	return v.lookupDir(d, name)
}

// Stat returns a copy of the live in-memory record for ino, which may not yet
// have been written back to the inode store.
func (v *Volume) Stat(ino uint32) (Inode, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return Inode{}, ErrVolumeClosed
	}

	ii, err := v.loadInode(ino)
	if err != nil {
		return Inode{}, err
	}

	return ii.Inode, nil
}

// Create makes a new regular file entry under dir and returns its inode
// number.
func (v *Volume) Create(dir uint32, name string, mode uint32) (uint32, error) {
	return v.newEntry(dir, name, mode&^S_IFMT|S_IFREG)
}

// Mkdir makes a new directory entry under dir and returns its inode number.
func (v *Volume) Mkdir(dir uint32, name string, mode uint32) (uint32, error) {
	return v.newEntry(dir, name, mode&^S_IFMT|S_IFDIR)
}

func (v *Volume) newEntry(dir uint32, name string, mode uint32) (uint32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return 0, ErrVolumeClosed
	}

	d, err := v.loadInode(dir)
	if err != nil {
		return 0, err
	}

	switch {
	case !d.IsDir():
		return 0, ErrNotDirectory
	case len(name) > FilenameLen:
		return 0, ErrNameTooLong
	case d.NrEntries >= MaxDirEntries:
		return 0, ErrDirFull
	}

	if _, err := v.lookupDir(d, name); err == nil {
		return 0, ErrNameExists
	} else if err != ErrNotFound {
		return 0, err
	}

	ino, err := v.allocInode()
	if err != nil {
		return 0, err
	}

	idx, err := v.allocBlock()
	if err != nil {
		v.freeInode(ino)
		return 0, err
	}

	ii := &inodeInfo{
		ino: ino,
		Inode: Inode{
			Mode:       mode,
			IndexBlock: idx,
			Size:       0,
			NrEntries:  0,
		},
	}
	v.cacheInode(ii)
	v.markInodeDirty(ii)

	if err := v.insertDir(d, name, ino); err != nil {
		v.forgetInode(ino)
		v.freeBlock(idx)
		v.freeInode(ino)
		return 0, err
	}

	return ino, nil
}

// Unlink removes the regular file entry name from dir and returns the
// target's resources to the free bitmaps. The directory-entry removal commits
// before the target is freed, so a crash leaves at worst leaked blocks, never
// an entry referencing a freed inode.
func (v *Volume) Unlink(dir uint32, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVolumeClosed
	}

	d, err := v.loadInode(dir)
	if err != nil {
		return err
	}
	if !d.IsDir() {
		return ErrNotDirectory
	}

	ino, err := v.lookupDir(d, name)
	if err != nil {
		return err
	}

	target, err := v.loadInode(ino)
	if err != nil {
		return err
	}
	if target.IsDir() {
		return ErrIsDirectory
	}

	if err := v.removeDir(d, name); err != nil {
		return err
	}

	return v.freeInodeResources(target)
}

// Rmdir removes the empty directory entry name from dir.
func (v *Volume) Rmdir(dir uint32, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVolumeClosed
	}

	d, err := v.loadInode(dir)
	if err != nil {
		return err
	}
	if !d.IsDir() {
		return ErrNotDirectory
	}

	ino, err := v.lookupDir(d, name)
	if err != nil {
		return err
	}

	if ino == RootIno {
		return ErrNotEmpty
	}

	target, err := v.loadInode(ino)
	if err != nil {
		return err
	}
	if !target.IsDir() {
		return ErrNotDirectory
	}
	if target.NrEntries != 0 {
		return ErrNotEmpty
	}

	if err := v.removeDir(d, name); err != nil {
		return err
	}

	return v.freeInodeResources(target)
}

// freeInodeResources returns an inode's index block, any data blocks it
// addresses, and the inode itself to the free bitmaps.
func (v *Volume) freeInodeResources(ii *inodeInfo) error {
	if ii.IsRegular() {
		b, err := v.dev.ReadBlock(ii.IndexBlock)
		if err != nil {
			return err
		}

		fib := decodeFileIndexBlock(b.Data)
		for k := uint32(0); k < ii.NrEntries && k < MaxFileIndexEntries; k++ {
			v.freeBlock(fib.Blocks[k])
		}
	}

	v.freeBlock(ii.IndexBlock)
	v.freeInode(ii.ino)
	v.forgetInode(ii.ino)

	return nil
}

// Rename moves the entry oldName in oldDir to newName in newDir. An existing
// entry under newName is replaced and its resources freed; replacing a
// non-empty directory fails with ErrNotEmpty. Renaming an entry onto itself
// is a no-op.
func (v *Volume) Rename(oldDir uint32, oldName string, newDir uint32, newName string, flags uint32) error {
	_ = flags // no rename flags are defined for this format

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVolumeClosed
	}

	od, err := v.loadInode(oldDir)
	if err != nil {
		return err
	}
	if !od.IsDir() {
		return ErrNotDirectory
	}

	src, err := v.lookupDir(od, oldName)
	if err != nil {
		return err
	}

	if oldDir == newDir && oldName == newName {
		return nil
	}

	if len(newName) > FilenameLen {
		return ErrNameTooLong
	}

	nd, err := v.loadInode(newDir)
	if err != nil {
		return err
	}
	if !nd.IsDir() {
		return ErrNotDirectory
	}

	if displaced, err := v.lookupDir(nd, newName); err == nil {
		target, err := v.loadInode(displaced)
		if err != nil {
			return err
		}
		if target.IsDir() && target.NrEntries != 0 {
			return ErrNotEmpty
		}

		if err := v.removeDir(nd, newName); err != nil {
			return err
		}
		if err := v.freeInodeResources(target); err != nil {
			return err
		}
	} else if err != ErrNotFound {
		return err
	} else if nd.NrEntries >= MaxDirEntries {
		return ErrDirFull
	}

	if err := v.removeDir(od, oldName); err != nil {
		return err
	}

	return v.insertDir(nd, newName, src)
}

// Readdir emits the directory's entries starting at cursor. Positions 0 and 1
// are the implicit self and parent entries; position n+2 is directory-block
// entry n. Enumeration is snapshot-style over the entry count at call time:
// interleaved mutation may skip or duplicate an entry, and no ordering is
// promised to the caller beyond slot order.
func (v *Volume) Readdir(dir uint32, cursor int, emit func(DirEnt) bool) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return ErrVolumeClosed
	}

	d, err := v.loadInode(dir)
	if err != nil {
		return err
	}
	if !d.IsDir() {
		return ErrNotDirectory
	}

	// Parent linkage is not persisted; the host's dentry cache owns it. The
	// directory's own number stands in for both implicit entries.
	implicit := []DirEnt{
		{Name: ".", Ino: dir, Type: FTDir},
		{Name: "..", Ino: dir, Type: FTDir},
	}
	for ; cursor < len(implicit); cursor++ {
		if !emit(implicit[cursor]) {
			return nil
		}
	}

	b, err := v.dev.ReadBlock(d.IndexBlock)
	if err != nil {
		return err
	}

	nrEntries := int(d.NrEntries)
	for k := cursor - 2; k < nrEntries; k++ {
		de := dirEntryAt(b.Data, k)

		typ := uint8(FTUnknown)
		if child, err := v.loadInode(de.Ino); err == nil {
			typ = fileTypeFromMode(child.Mode)
		}

		if !emit(DirEnt{Name: de.Name(), Ino: de.Ino, Type: typ}) {
			return nil
		}
	}

	return nil
}
