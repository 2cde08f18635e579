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
	"bytes"
	"encoding/binary"
	"fmt"
)

// SuperBlock represents the on-disk superblock stored in block 0. All scalars
// are little-endian; the remainder of the block is zero on a valid image.
type SuperBlock struct {
	Magic          uint32 // Filesystem magic number
	NrBlocks       uint32 // Total addressable blocks on the device
	NrInodes       uint32 // Total inode slots
	NrIstoreBlocks uint32 // Inode store length in blocks
	NrIfreeBlocks  uint32 // Inode free-bitmap length in blocks
	NrBfreeBlocks  uint32 // Block free-bitmap length in blocks
	NrFreeInodes   uint32 // Running free-inode counter
	NrFreeBlocks   uint32 // Running free-block counter
}

var superBlockSize = binary.Size(SuperBlock{})

// Inode represents the fixed 16-byte on-disk inode record. IndexBlock points
// at a directory block or a file-index block depending on Mode. For regular
// files Size is the byte length and NrEntries the number of used data blocks;
// for directories Size is zero and NrEntries the live entry count.
type Inode struct {
	Mode       uint32
	IndexBlock uint32
	Size       uint32
	NrEntries  uint32
}

// DirEntry represents an on-disk directory entry. Filename is null-padded; a
// name of exactly FilenameLen bytes has no terminator.
type DirEntry struct {
	Ino      uint32
	Filename [FilenameLen]byte
}

// Name returns the valid prefix of the stored filename.
func (de *DirEntry) Name() string {
	n := bytes.IndexByte(de.Filename[:], 0)
	if n == -1 {
		n = FilenameLen
	}
	return string(de.Filename[:n])
}

// matches reports whether name refers to this entry, comparing at most
// FilenameLen bytes with null-termination treated as end-of-name.
func (de *DirEntry) matches(name string) bool {
	if len(name) >= FilenameLen {
		return string(de.Filename[:]) == name[:FilenameLen]
	}

	return string(de.Filename[:len(name)]) == name && de.Filename[len(name)] == 0
}

// DirBlock is the decoded form of a directory block: an ordered array of
// MaxDirEntries entries filling the block exactly. Only the first nr_entries
// slots of the owning inode are live; trailing slots are garbage and
// round-trip unchanged.
type DirBlock struct {
	Entries [MaxDirEntries]DirEntry
}

// FileIndexBlock is the decoded form of a regular file's index block: an
// array of data block numbers, of which the first nr_entries are valid.
type FileIndexBlock struct {
	Blocks [MaxFileIndexEntries]uint32
}

// decodeSuperBlock decodes block 0. Unknown magic numbers are rejected.
func decodeSuperBlock(data []byte) (SuperBlock, error) {
	var sb SuperBlock
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &sb); err != nil {
		return SuperBlock{}, fmt.Errorf("decoding superblock: %w", err)
	}

	if sb.Magic != Magic {
		return SuperBlock{}, fmt.Errorf("%w: unknown magic: 0x%x", ErrBadImage, sb.Magic)
	}

	return sb, nil
}

// encode writes the superblock into the head of a block buffer, leaving the
// tail untouched.
func (sb *SuperBlock) encode(data []byte) {
	binary.LittleEndian.PutUint32(data[0:], sb.Magic)
	binary.LittleEndian.PutUint32(data[4:], sb.NrBlocks)
	binary.LittleEndian.PutUint32(data[8:], sb.NrInodes)
	binary.LittleEndian.PutUint32(data[12:], sb.NrIstoreBlocks)
	binary.LittleEndian.PutUint32(data[16:], sb.NrIfreeBlocks)
	binary.LittleEndian.PutUint32(data[20:], sb.NrBfreeBlocks)
	binary.LittleEndian.PutUint32(data[24:], sb.NrFreeInodes)
	binary.LittleEndian.PutUint32(data[28:], sb.NrFreeBlocks)
}

// validate sanity-checks the layout the superblock describes against the
// device size.
func (sb *SuperBlock) validate(nrBlocks uint32) error {
	reserved := uint64(1) + uint64(sb.NrIstoreBlocks) + uint64(sb.NrIfreeBlocks) + uint64(sb.NrBfreeBlocks)

	switch {
	case sb.NrBlocks == 0 || sb.NrInodes == 0:
		return fmt.Errorf("%w: empty geometry", ErrBadImage)
	case uint64(sb.NrBlocks) < reserved+1:
		return fmt.Errorf("%w: %d blocks cannot hold %d metadata blocks", ErrBadImage, sb.NrBlocks, reserved)
	case sb.NrBlocks > nrBlocks:
		return fmt.Errorf("%w: superblock claims %d blocks, device has %d", ErrBadImage, sb.NrBlocks, nrBlocks)
	case uint64(sb.NrInodes) > uint64(sb.NrIstoreBlocks)*InodesPerBlock:
		return fmt.Errorf("%w: inode store too small for %d inodes", ErrBadImage, sb.NrInodes)
	case uint64(sb.NrInodes) > uint64(sb.NrIfreeBlocks)*BlockSize*8:
		return fmt.Errorf("%w: inode bitmap too small for %d inodes", ErrBadImage, sb.NrInodes)
	case uint64(sb.NrBlocks) > uint64(sb.NrBfreeBlocks)*BlockSize*8:
		return fmt.Errorf("%w: block bitmap too small for %d blocks", ErrBadImage, sb.NrBlocks)
	case sb.NrFreeInodes >= sb.NrInodes:
		return fmt.Errorf("%w: free inode counter %d out of range", ErrBadImage, sb.NrFreeInodes)
	case sb.NrFreeBlocks > sb.NrBlocks:
		return fmt.Errorf("%w: free block counter %d out of range", ErrBadImage, sb.NrFreeBlocks)
	}

	return nil
}

// istoreBlock returns the inode-store block and slot holding inode ino.
func istoreBlock(ino uint32) (blk uint32, slot int) {
	return 1 + ino/InodesPerBlock, int(ino % InodesPerBlock)
}

// decodeInode decodes the inode record at the given slot of an inode-store
// block.
func decodeInode(data []byte, slot int) Inode {
	off := slot * InodeSize

	return Inode{
		Mode:       binary.LittleEndian.Uint32(data[off:]),
		IndexBlock: binary.LittleEndian.Uint32(data[off+4:]),
		Size:       binary.LittleEndian.Uint32(data[off+8:]),
		NrEntries:  binary.LittleEndian.Uint32(data[off+12:]),
	}
}

// encode writes the inode record into the given slot of an inode-store block.
func (ino *Inode) encode(data []byte, slot int) {
	off := slot * InodeSize

	binary.LittleEndian.PutUint32(data[off:], ino.Mode)
	binary.LittleEndian.PutUint32(data[off+4:], ino.IndexBlock)
	binary.LittleEndian.PutUint32(data[off+8:], ino.Size)
	binary.LittleEndian.PutUint32(data[off+12:], ino.NrEntries)
}

// IsDir indicates whether the record describes a directory.
func (ino *Inode) IsDir() bool {
	return ino.Mode&S_IFMT == S_IFDIR
}

// IsRegular indicates whether the record describes a regular file.
func (ino *Inode) IsRegular() bool {
	return ino.Mode&S_IFMT == S_IFREG
}

func decodeDirBlock(data []byte) (*DirBlock, error) {
	db := &DirBlock{}
	r := bytes.NewReader(data)

	for i := range db.Entries {
		if err := binary.Read(r, binary.LittleEndian, &db.Entries[i]); err != nil {
			return nil, fmt.Errorf("decoding directory block: %w", err)
		}
	}

	return db, nil
}

func (db *DirBlock) encode(data []byte) {
	var buf bytes.Buffer
	for i := range db.Entries {
		// Writing fixed-width fields to a bytes.Buffer cannot fail.
		_ = binary.Write(&buf, binary.LittleEndian, &db.Entries[i])
	}

	copy(data, buf.Bytes())
}

func decodeFileIndexBlock(data []byte) *FileIndexBlock {
	fib := &FileIndexBlock{}
	for i := range fib.Blocks {
		fib.Blocks[i] = binary.LittleEndian.Uint32(data[i*4:])
	}

	return fib
}

func (fib *FileIndexBlock) encode(data []byte) {
	for i, blk := range fib.Blocks {
		binary.LittleEndian.PutUint32(data[i*4:], blk)
	}
}
