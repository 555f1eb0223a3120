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

package stream

// ChunkCache holds exactly one decompressed chunk: the "one-chunk LRU"
// every compressed FilterStream in this package uses, since a sector-disc
// image is read close to sequentially and a bigger cache buys little. A
// read at logical position p maps to chunk p/chunkSize; if that chunk
// isn't the cached one, the caller must decompress it and call Store.
type ChunkCache struct {
	chunkSize  int64
	numChunks  int64
	streamSize int64

	cachedIndex int64
	cachedLen   int
	buf         []byte
	valid       bool
}

// NewChunkCache describes a logical stream of chunkSize*numChunks bytes
// (the last chunk may be shorter; streamSize is the true logical size).
func NewChunkCache(chunkSize int64, numChunks int64, streamSize int64) *ChunkCache {
	return &ChunkCache{chunkSize: chunkSize, numChunks: numChunks, streamSize: streamSize, cachedIndex: -1}
}

// StreamSize returns the logical size of the stream the cache covers.
func (c *ChunkCache) StreamSize() int64 { return c.streamSize }

// ChunkForPosition returns the chunk index and in-chunk byte offset for a
// logical read position.
func (c *ChunkCache) ChunkForPosition(pos int64) (index int64, offset int64) {
	return pos / c.chunkSize, pos % c.chunkSize
}

// Lookup reports whether index is the currently cached chunk, and if so
// returns its decompressed bytes.
func (c *ChunkCache) Lookup(index int64) ([]byte, bool) {
	if c.valid && c.cachedIndex == index {
		return c.buf[:c.cachedLen], true
	}
	return nil, false
}

// Store records data as the decompressed contents of chunk index, evicting
// whatever chunk was previously cached.
func (c *ChunkCache) Store(index int64, data []byte) {
	if cap(c.buf) < len(data) {
		c.buf = make([]byte, len(data))
	}
	c.buf = c.buf[:len(data)]
	copy(c.buf, data)
	c.cachedIndex = index
	c.cachedLen = len(data)
	c.valid = true
}

// PartialRead copies min(len(dst), remaining-in-chunk) bytes from the
// cached chunk at offset, returning the count copied. Callers loop this
// across chunk boundaries the way the compressed filters' Read does.
func (c *ChunkCache) PartialRead(dst []byte, offset int64) int {
	if !c.valid {
		return 0
	}
	remaining := int64(c.cachedLen) - offset
	if remaining <= 0 {
		return 0
	}
	n := int64(len(dst))
	if n > remaining {
		n = remaining
	}
	copy(dst[:n], c.buf[offset:offset+n])
	return int(n)
}
