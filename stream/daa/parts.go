// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of mirage.
//
// mirage is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// mirage is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with mirage.  If not, see <https://www.gnu.org/licenses/>.

package daa

import (
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"mirage/stream"
)

const partHeaderSize = 40

var (
	daaPartSignature = [8]byte{'D', 'A', 'A', ' ', 'V', 'O', 'L', 0}
	gbiPartSignature = [8]byte{'G', 'B', 'I', ' ', 'V', 'O', 'L', 0}
)

// part describes one volume file's byte range within the logical,
// concatenated chunk-data stream.
type part struct {
	filename        string
	chunkDataOffset int64
	start           int64 // inclusive offset into the logical chunk-data stream
	end             int64 // exclusive
}

// partTable resolves logical chunk-data offsets to (filename, in-file
// offset) pairs across a split archive, and caches open file handles.
type partTable struct {
	fs     afero.Fs
	format Format
	parts  []part
	cache  *lru.Cache[string, afero.File]
}

// openHandleCacheSize bounds how many split-volume file handles stay open
// at once; bigger archives reopen the least-recently-used part on demand.
const openHandleCacheSize = 8

func newPartTable(fs afero.Fs, format Format) *partTable {
	cache, _ := lru.NewWithEvict[string, afero.File](openHandleCacheSize, func(_ string, f afero.File) {
		_ = f.Close()
	})
	return &partTable{fs: fs, format: format, cache: cache}
}

// buildParts constructs the part table for a (possibly) split archive. main
// is part 0, already known to start at h.ChunkDataOffset and whose total
// logical size is known once all other parts have been measured.
func buildParts(fs afero.Fs, format Format, mainName string, h *Header, split *SplitInfo) (*partTable, error) {
	pt := newPartTable(fs, format)

	mainSize, err := fileSize(fs, mainName)
	if err != nil {
		return nil, err
	}
	pt.parts = append(pt.parts, part{
		filename:        mainName,
		chunkDataOffset: int64(h.ChunkDataOffset),
		start:           0,
		end:             mainSize - int64(h.ChunkDataOffset),
	})

	if split == nil {
		return pt, nil
	}

	cursor := pt.parts[0].end
	for i := 1; i < split.NumVolumes; i++ {
		name := PartFilename(mainName, i, split.Fingerprint)
		size, err := fileSize(fs, name)
		if err != nil {
			return nil, fmt.Errorf("%w: missing split volume %q", stream.ErrCorrupt, name)
		}

		f, err := fs.Open(name)
		if err != nil {
			return nil, err
		}
		hdr := make([]byte, partHeaderSize)
		if _, err := f.ReadAt(hdr, 0); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: reading part header of %q: %v", stream.ErrCorrupt, name, err)
		}
		_ = f.Close()

		if !sniffPartSignature(hdr, format) {
			return nil, fmt.Errorf("%w: bad part signature in %q", stream.ErrCorrupt, name)
		}
		partOffset := int64(binary.LittleEndian.Uint32(hdr[16:20]))

		dataSize := size - partOffset
		pt.parts = append(pt.parts, part{
			filename:        name,
			chunkDataOffset: partOffset,
			start:           cursor,
			end:             cursor + dataSize,
		})
		cursor += dataSize
	}

	return pt, nil
}

func sniffPartSignature(hdr []byte, format Format) bool {
	sig := daaPartSignature
	if format == FormatGBI {
		sig = gbiPartSignature
	}
	for i := 0; i < 8; i++ {
		if hdr[i] != sig[i] {
			return false
		}
	}
	return true
}

func fileSize(fs afero.Fs, name string) (int64, error) {
	info, err := fs.Stat(name)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// locate finds the part covering logical offset pos in the chunk-data
// stream and returns it plus the offset within that part's own file.
func (pt *partTable) locate(pos int64) (part, int64, error) {
	for _, p := range pt.parts {
		if pos >= p.start && pos < p.end {
			return p, p.chunkDataOffset + (pos - p.start), nil
		}
	}
	return part{}, 0, fmt.Errorf("%w: chunk-data offset %d out of range", stream.ErrCorrupt, pos)
}

// readAt reads length bytes at logical chunk-data offset pos, which must
// not straddle a part boundary (callers read whole chunks, and chunks
// never span volumes in this container format).
func (pt *partTable) readAt(pos int64, length int) ([]byte, error) {
	p, fileOff, err := pt.locate(pos)
	if err != nil {
		return nil, err
	}

	f, err := pt.handle(p.filename)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, fileOff); err != nil {
		return nil, fmt.Errorf("%w: reading %q at %d: %v", stream.ErrCorrupt, p.filename, fileOff, err)
	}
	return buf, nil
}

func (pt *partTable) handle(filename string) (afero.File, error) {
	if f, ok := pt.cache.Get(filename); ok {
		return f, nil
	}
	f, err := pt.fs.Open(filename)
	if err != nil {
		return nil, err
	}
	pt.cache.Add(filename, f)
	return f, nil
}

func (pt *partTable) totalSize() int64 {
	if len(pt.parts) == 0 {
		return 0
	}
	return pt.parts[len(pt.parts)-1].end
}

func (pt *partTable) close() {
	for _, key := range pt.cache.Keys() {
		if f, ok := pt.cache.Get(key); ok {
			_ = f.Close()
		}
	}
	pt.cache.Purge()
}
