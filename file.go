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
	"io"
)

// ReadFileAt reads from the regular file ino starting at offset off, mapping
// logical blocks through the file-index block. It returns io.EOF once the
// stored file size is reached.
func (v *Volume) ReadFileAt(ino uint32, p []byte, off int64) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return 0, ErrVolumeClosed
	}

	ii, err := v.loadInode(ino)
	if err != nil {
		return 0, err
	}
	if ii.IsDir() {
		return 0, ErrIsDirectory
	}

	size := int64(ii.Size)
	if off >= size {
		return 0, io.EOF
	}
	if max := size - off; int64(len(p)) > max {
		p = p[:max]
	}

	b, err := v.dev.ReadBlock(ii.IndexBlock)
	if err != nil {
		return 0, err
	}
	fib := decodeFileIndexBlock(b.Data)

	var n int
	for n < len(p) {
		lb := uint32((off + int64(n)) / BlockSize)
		bo := int((off + int64(n)) % BlockSize)

		if lb >= ii.NrEntries {
			return n, io.EOF
		}

		db, err := v.dev.ReadBlock(fib.Blocks[lb])
		if err != nil {
			return n, err
		}

		n += copy(p[n:], db.Data[bo:])
	}

	if off+int64(n) >= size {
		return n, io.EOF
	}

	return n, nil
}

// WriteFileAt writes into the regular file ino at offset off, allocating and
// zero-filling data blocks through the bitmap allocator as the file grows.
// Blocks allocated by a write that then runs out of space are returned before
// the error surfaces.
func (v *Volume) WriteFileAt(ino uint32, p []byte, off int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return 0, ErrVolumeClosed
	}

	ii, err := v.loadInode(ino)
	if err != nil {
		return 0, err
	}
	if ii.IsDir() {
		return 0, ErrIsDirectory
	}

	end := off + int64(len(p))
	if end > MaxFileSize {
		return 0, ErrFileTooLarge
	}

	b, err := v.dev.ReadBlock(ii.IndexBlock)
	if err != nil {
		return 0, err
	}
	fib := decodeFileIndexBlock(b.Data)

	needed := uint32((end + BlockSize - 1) / BlockSize)
	if err := v.growFile(ii, fib, b, needed); err != nil {
		return 0, err
	}

	var n int
	for n < len(p) {
		lb := uint32((off + int64(n)) / BlockSize)
		bo := int((off + int64(n)) % BlockSize)

		db, err := v.dev.ReadBlock(fib.Blocks[lb])
		if err != nil {
			return n, err
		}

		c := copy(db.Data[bo:], p[n:])
		v.dev.MarkDirty(db.Nr)
		n += c
	}

	if end > int64(ii.Size) {
		ii.Size = uint32(end)
		v.markInodeDirty(ii)
	}

	return n, nil
}

// growFile extends the file's block mapping to needed blocks, zero-filling
// each new block.
func (v *Volume) growFile(ii *inodeInfo, fib *FileIndexBlock, idx *Block, needed uint32) error {
	if needed <= ii.NrEntries {
		return nil
	}

	first := ii.NrEntries
	for lb := first; lb < needed; lb++ {
		blk, err := v.allocBlock()
		if err != nil {
			for u := first; u < lb; u++ {
				v.freeBlock(fib.Blocks[u])
			}
			return err
		}

		db, err := v.dev.ReadBlock(blk)
		if err != nil {
			v.freeBlock(blk)
			for u := first; u < lb; u++ {
				v.freeBlock(fib.Blocks[u])
			}
			return err
		}

		clear(db.Data)
		v.dev.MarkDirty(blk)
		fib.Blocks[lb] = blk
	}

	fib.encode(idx.Data)
	v.dev.MarkDirty(idx.Nr)

	ii.NrEntries = needed
	v.markInodeDirty(ii)

	return nil
}

// Truncate resizes the regular file ino. Shrinking returns the trailing data
// blocks to the bitmap; growing allocates zero-filled blocks.
func (v *Volume) Truncate(ino uint32, size int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVolumeClosed
	}

	ii, err := v.loadInode(ino)
	if err != nil {
		return err
	}
	if ii.IsDir() {
		return ErrIsDirectory
	}

	if size < 0 || size > MaxFileSize {
		return ErrFileTooLarge
	}

	b, err := v.dev.ReadBlock(ii.IndexBlock)
	if err != nil {
		return err
	}
	fib := decodeFileIndexBlock(b.Data)

	needed := uint32((size + BlockSize - 1) / BlockSize)
	switch {
	case needed < ii.NrEntries:
		for lb := needed; lb < ii.NrEntries; lb++ {
			v.freeBlock(fib.Blocks[lb])
		}

		ii.NrEntries = needed

	case needed > ii.NrEntries:
		if err := v.growFile(ii, fib, b, needed); err != nil {
			return err
		}
	}

	ii.Size = uint32(size)
	v.markInodeDirty(ii)

	return nil
}

// FileReader returns a sequential reader over the file's content.
func (v *Volume) FileReader(ino uint32) (io.Reader, error) {
	st, err := v.Stat(ino)
	if err != nil {
		return nil, err
	}
	if st.Mode&S_IFMT == S_IFDIR {
		return nil, ErrIsDirectory
	}

	return &fileReader{v: v, ino: ino}, nil
}

type fileReader struct {
	v   *Volume
	ino uint32
	pos int64
}

func (r *fileReader) Read(p []byte) (int, error) {
	n, err := r.v.ReadFileAt(r.ino, p, r.pos)
	r.pos += int64(n)

	return n, err
}
