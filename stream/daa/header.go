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

// Package daa implements the DAA (PowerISO) and GBI (gBurner) chunked,
// optionally split and password-encrypted disc-image containers as a
// stream.FilterStream: a worked example of the filter-stream chain.
package daa

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"mirage/stream"
)

// Format distinguishes the two wire-compatible container families; they
// differ only in signature bytes and chunk-table obfuscation.
type Format int

const (
	FormatDAA Format = iota
	FormatGBI
)

func (f Format) String() string {
	if f == FormatGBI {
		return "GBI"
	}
	return "DAA"
}

// Header versions.
const (
	versionV1 = 0x100
	versionV2 = 0x110
)

var (
	daaSignature = [4]byte{'D', 'A', 'A', 0}
	gbiSignature = [4]byte{'G', 'B', 'I', 0}
)

// mainHeaderSize is the fixed 76-byte main header described in the
// container's wire format.
const mainHeaderSize = 76

// Header is the parsed 76-byte main header.
type Header struct {
	Format Format

	ChunkTableOffset uint32
	FormatVersion    uint32
	ChunkDataOffset  uint32
	ChunkSize        uint32 // resolved chunk size, not the raw packed field
	ISOSize          uint64
	DAASize          uint64

	// format-2 (0x110) sub-header fields, zero for v1.
	LZMAProps             [5]byte
	ChunkTableBitSettings uint8
	CompressedChunkTable  bool
	ObfuscatedBits        bool
	ObfuscatedChunkTable  bool
	BitSwapType           uint8
	LZMAFilter            uint8
}

func sniffFormat(buf []byte) (Format, bool) {
	if len(buf) < 4 {
		return 0, false
	}
	if buf[0] == daaSignature[0] && buf[1] == daaSignature[1] && buf[2] == daaSignature[2] && buf[3] == daaSignature[3] {
		return FormatDAA, true
	}
	if buf[0] == gbiSignature[0] && buf[1] == gbiSignature[1] && buf[2] == gbiSignature[2] && buf[3] == gbiSignature[3] {
		return FormatGBI, true
	}
	return 0, false
}

// parseHeader parses the 76-byte main header (little-endian) at the start
// of buf, which must be at least mainHeaderSize long.
func parseHeader(buf []byte) (*Header, error) {
	if len(buf) < mainHeaderSize {
		return nil, fmt.Errorf("%w: header truncated", stream.ErrCorrupt)
	}

	format, ok := sniffFormat(buf[0:16])
	if !ok {
		return nil, stream.ErrCannotHandle
	}

	h := &Header{Format: format}
	h.ChunkTableOffset = binary.LittleEndian.Uint32(buf[16:20])
	h.FormatVersion = binary.LittleEndian.Uint32(buf[20:24])
	h.ChunkDataOffset = binary.LittleEndian.Uint32(buf[24:28])
	// buf[28:36] reserved dwords.
	rawChunkSize := binary.LittleEndian.Uint32(buf[36:40])
	h.ISOSize = binary.LittleEndian.Uint64(buf[40:48])
	h.DAASize = binary.LittleEndian.Uint64(buf[48:56])
	copy(h.LZMAProps[:], buf[56:61])
	h.ChunkTableBitSettings = buf[61]
	// buf[62:72] remaining format-2 sub-header bytes (flags folded into rawChunkSize below).
	storedCRC := binary.LittleEndian.Uint32(buf[72:76])

	computed := crc32.ChecksumIEEE(buf[0:72])
	if computed != storedCRC {
		return nil, fmt.Errorf("%w: main header CRC mismatch", stream.ErrCorrupt)
	}

	switch h.FormatVersion {
	case versionV1:
		h.ChunkSize = rawChunkSize
	case versionV2:
		h.ChunkSize = (rawChunkSize & 0xFFF) << 14
		h.CompressedChunkTable = rawChunkSize&0x4000 != 0
		h.ObfuscatedBits = rawChunkSize&0x20000 != 0
		h.ObfuscatedChunkTable = rawChunkSize&0x8000000 != 0
		h.BitSwapType = uint8((rawChunkSize >> 23) & 3)
		if format == FormatGBI {
			h.BitSwapType ^= 1
		}
		if h.CompressedChunkTable || h.BitSwapType != 0 {
			return nil, fmt.Errorf("%w: compressed or bit-swapped chunk table", errUnsupported)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format version %#x", stream.ErrCorrupt, h.FormatVersion)
	}

	return h, nil
}

var errUnsupported = errors.New("daa: unsupported container feature")
