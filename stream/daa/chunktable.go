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
	"bytes"
	"math/bits"

	"github.com/icza/bitio"
)

// ChunkKind tags how one chunk's bytes must be decoded.
type ChunkKind int

const (
	ChunkUncompressed ChunkKind = iota
	ChunkLZMA
	ChunkZlib
)

// ChunkEntry is one resolved chunk-table record: its length in the
// compressed stream and how to decompress it.
type ChunkEntry struct {
	Length uint32
	Kind   ChunkKind
}

const lzmaPropsSize = 5

// obfuscateGBI reverses the GBI chunk-table scramble in place, given the
// main header's stored CRC and the table's byte length.
func obfuscateGBI(data []byte, crc uint32, length int) {
	k := byte(length / 4) //nolint:gosec // length is bounded by the chunk-table size
	c := byte(crc & 0xff)
	for i := range data {
		data[i] = (data[i] - c) ^ k
	}
}

// obfuscateDAA reverses the DAA chunk-table scramble in place, deriving its
// running key from the ISO size in 2048-byte (CD sector) units.
func obfuscateDAA(data []byte, isoSize uint64) {
	units := isoSize / 2048
	a := byte((units >> 8) & 0xff) //nolint:gosec // intentional truncation per container format
	c := byte(units & 0xff)        //nolint:gosec // intentional truncation per container format
	for i := range data {
		data[i] -= c
		c += a
	}
}

// deobfuscateChunkTable applies the header-indicated obfuscation to a raw
// chunk-table buffer read from the image.
func deobfuscateChunkTable(h *Header, raw []byte, storedCRC uint32) {
	if h.Format == FormatGBI {
		obfuscateGBI(raw, storedCRC, len(raw))
		return
	}
	if h.ObfuscatedChunkTable {
		obfuscateDAA(raw, h.ISOSize)
	}
}

// parseChunkTableV1 decodes the fixed 3-byte little-endian-with-byte-2/1-
// swapped length records used by format version 0x100. All v1 chunks are
// zlib-compressed.
func parseChunkTableV1(raw []byte, numChunks int) []ChunkEntry {
	entries := make([]ChunkEntry, numChunks)
	for i := 0; i < numChunks; i++ {
		b := raw[i*3 : i*3+3]
		length := uint32(b[0])<<16 | uint32(b[2])<<8 | uint32(b[1])
		entries[i] = ChunkEntry{Length: length, Kind: ChunkZlib}
	}
	return entries
}

// chunkTableV2BitSizes resolves (lengthBits, typeBits) from the header's
// packed chunk_table_bit_settings byte, per the container's v2 bit-packed
// table layout.
func chunkTableV2BitSizes(h *Header) (lengthBits, typeBits uint) {
	bsizeType := h.ChunkTableBitSettings & 7
	bsizeLen := h.ChunkTableBitSettings >> 3
	if bsizeLen > 0 {
		bsizeLen += 10
	} else if bsizeType > 0 {
		// ceil(log2(chunk_size / bsize_type))
		ratio := h.ChunkSize / uint32(bsizeType)
		bsizeLen = uint8(bits.Len32(ratio - 1)) //nolint:gosec // small bit-width derived value
	}
	return uint(bsizeLen), uint(bsizeType)
}

// obfuscationMask is the XOR mask table used by read_bits when a v2
// chunk-table read is also obfuscated-bits protected.
var obfuscationMask = [8]byte{0x0A, 0x35, 0x2D, 0x3F, 0x08, 0x33, 0x09, 0x15}

// bitFieldReader wraps icza/bitio's reader to additionally apply the
// container's per-field XOR obfuscation, mirroring the source's
// read_bits(n_bits, buffer, bit_pos, obfuscate, counter) contract.
type bitFieldReader struct {
	r         *bitio.Reader
	obfuscate bool
	counter   uint32
}

func newBitFieldReader(data []byte, obfuscate bool) *bitFieldReader {
	return &bitFieldReader{r: bitio.NewReader(bytes.NewReader(data)), obfuscate: obfuscate}
}

func (b *bitFieldReader) readBits(n uint) (uint32, error) {
	v, err := b.r.ReadBits(uint8(n)) //nolint:gosec // n bounded well under 64
	if err != nil {
		return 0, err
	}
	val := uint32(v)
	if b.obfuscate {
		mask := (b.counter ^ uint32(obfuscationMask[b.counter&7])) & 0xff
		val ^= mask * 0x01010101
		b.counter++
		if n < 32 {
			val &= (1 << n) - 1
		}
	}
	return val, nil
}

// parseChunkTableV2 decodes the bit-packed chunk-table records used by
// format version 0x110.
func parseChunkTableV2(h *Header, raw []byte, numChunks int) ([]ChunkEntry, error) {
	lengthBits, typeBits := chunkTableV2BitSizes(h)
	r := newBitFieldReader(raw, h.ObfuscatedBits)

	entries := make([]ChunkEntry, numChunks)
	for i := 0; i < numChunks; i++ {
		rawLen, err := r.readBits(lengthBits)
		if err != nil {
			return nil, err
		}
		rawType, err := r.readBits(typeBits)
		if err != nil {
			return nil, err
		}

		length := rawLen - lzmaPropsSize
		var kind ChunkKind
		switch {
		case rawLen >= uint32(h.ChunkSize):
			kind = ChunkUncompressed
			length = rawLen
		case rawType == 0:
			kind = ChunkLZMA
		default:
			kind = ChunkZlib
		}
		entries[i] = ChunkEntry{Length: length, Kind: kind}
	}
	return entries, nil
}
