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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz/lzma"

	"mirage/stream"
)

func init() {
	stream.Register("daa", func() stream.FilterStream { return &DAAStream{} })
}

// PasswordProvider is asked for the archive password lazily, the first
// time an encrypted chunk is actually read.
type PasswordProvider func() ([]byte, error)

// DAAStream implements stream.FilterStream over a DAA or GBI container,
// presenting the concatenated, decompressed, decrypted ISO data as one
// flat seekable stream.
type DAAStream struct {
	underlying stream.Stream

	header      *Header
	descriptors *descriptors
	chunks      []ChunkEntry
	chunkBase   int64 // logical chunk-data offset of chunks[0]
	parts       *partTable

	password PasswordProvider
	cache    *stream.ChunkCache

	pos int64
}

// SetPasswordProvider installs the callback used to obtain a password for
// an encrypted archive. Must be called before the first Read if the
// archive turns out to be encrypted.
func (d *DAAStream) SetPasswordProvider(p PasswordProvider) { d.password = p }

func (d *DAAStream) Underlying() stream.Stream { return d.underlying }

func (d *DAAStream) Filename() string { return d.underlying.Filename() }

func (d *DAAStream) IsWritable() bool { return false }

// Open parses the main header, descriptors, and chunk table of underlying
// and, for split archives, the sibling volume files found alongside it.
func (d *DAAStream) Open(underlying stream.Stream) error {
	whole, err := io.ReadAll(&sectionReader{s: underlying})
	if err != nil {
		return err
	}

	h, err := parseHeader(whole)
	if err != nil {
		return err
	}
	d.header = h
	d.underlying = underlying

	descEnd := int(h.ChunkTableOffset) - mainHeaderSize
	if descEnd < 0 || mainHeaderSize+descEnd > len(whole) {
		return fmt.Errorf("%w: chunk table offset out of range", stream.ErrCorrupt)
	}
	descs, err := parseDescriptors(whole[mainHeaderSize:h.ChunkTableOffset], descEnd)
	if err != nil {
		return err
	}
	d.descriptors = descs

	if descs.encryption != nil && d.password == nil {
		return fmt.Errorf("%w: encrypted archive requires a password provider", stream.ErrCorrupt)
	}

	numChunks := int((h.ISOSize + uint64(h.ChunkSize) - 1) / uint64(h.ChunkSize))
	tableEnd := int(h.ChunkDataOffset)
	if tableEnd > len(whole) {
		tableEnd = len(whole)
	}
	rawTable := whole[h.ChunkTableOffset:tableEnd]

	storedCRC := binary.LittleEndian.Uint32(whole[72:76])
	deobfuscateChunkTable(h, rawTable, storedCRC)

	switch h.FormatVersion {
	case versionV1:
		d.chunks = parseChunkTableV1(rawTable, numChunks)
	case versionV2:
		chunks, err := parseChunkTableV2(h, rawTable, numChunks)
		if err != nil {
			return err
		}
		d.chunks = chunks
	}

	fs := fsFromStream(underlying)
	pt, err := buildParts(fs, h.Format, underlying.Filename(), h, descs.split)
	if err != nil {
		return err
	}
	d.parts = pt

	d.cache = stream.NewChunkCache(int64(h.ChunkSize), int64(len(d.chunks)), int64(h.ISOSize))
	return nil
}

// fsFromStream recovers the afero.Fs backing a FileStream so sibling
// split-volume parts can be opened the same way, falling back to the real
// OS filesystem for any other Stream implementation.
func fsFromStream(s stream.Stream) afero.Fs {
	if fileStream, ok := s.(*stream.FileStream); ok {
		return fileStream.Fs()
	}
	return afero.NewOsFs()
}

// sectionReader adapts a stream.Stream (which is seeked independently of
// any read position we hold) into an io.Reader reading from its current
// start, used only for the one-shot header/table slurp in Open.
type sectionReader struct{ s stream.Stream }

func (r *sectionReader) Read(p []byte) (int, error) { return r.s.Read(p) }

func (d *DAAStream) Read(p []byte) (int, error) {
	if d.pos >= int64(d.header.ISOSize) {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && d.pos < int64(d.header.ISOSize) {
		chunkIdx, chunkOff := d.cache.ChunkForPosition(d.pos)
		data, ok := d.cache.Lookup(chunkIdx)
		if !ok {
			decoded, err := d.decodeChunk(int(chunkIdx))
			if err != nil {
				return n, err
			}
			d.cache.Store(chunkIdx, decoded)
			data, _ = d.cache.Lookup(chunkIdx)
		}

		avail := data[chunkOff:]
		want := len(p) - n
		if want > len(avail) {
			want = len(avail)
		}
		copy(p[n:n+want], avail[:want])
		n += want
		d.pos += int64(want)
	}
	return n, nil
}

// decodeChunk reads, decrypts, and decompresses chunk i from the
// underlying volume file(s).
func (d *DAAStream) decodeChunk(i int) ([]byte, error) {
	entry := d.chunks[i]

	logicalOffset := d.chunkBase
	for j := 0; j < i; j++ {
		logicalOffset += int64(d.chunks[j].Length)
	}

	raw, err := d.parts.readAt(logicalOffset, int(entry.Length))
	if err != nil {
		return nil, err
	}

	if d.descriptors.encryption != nil {
		password, err := d.password()
		if err != nil {
			return nil, err
		}
		if err := decryptChunk(d.descriptors.encryption, password, raw); err != nil {
			return nil, err
		}
	}

	switch entry.Kind {
	case ChunkUncompressed:
		return raw, nil
	case ChunkZlib:
		zr := flate.NewReader(bytes.NewReader(raw))
		defer func() { _ = zr.Close() }()
		return io.ReadAll(zr)
	case ChunkLZMA:
		return d.decodeLZMAChunk(raw)
	default:
		return nil, fmt.Errorf("%w: unknown chunk kind", stream.ErrCorrupt)
	}
}

// decodeLZMAChunk decompresses a chunk using the header's 5-byte LZMA
// properties, synthesizing the classic .lzma stream header (props + an
// unknown-size marker) that ulikunitz/xz/lzma expects, then reverses the
// x86 BCJ filter if the header indicates it was applied.
func (d *DAAStream) decodeLZMAChunk(raw []byte) ([]byte, error) {
	var header bytes.Buffer
	header.Write(d.header.LZMAProps[:])
	header.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	header.Write(raw)

	lr, err := lzma.NewReader(&header)
	if err != nil {
		return nil, fmt.Errorf("%w: lzma stream: %v", stream.ErrCorrupt, err)
	}
	out, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("%w: lzma decode: %v", stream.ErrCorrupt, err)
	}

	if d.header.LZMAFilter == 1 {
		x86BCJDecode(out, 0)
	}
	return out, nil
}

func (d *DAAStream) Write(p []byte) (int, error) { return 0, stream.ErrReadOnly }

func (d *DAAStream) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = d.pos + offset
	case io.SeekEnd:
		newPos = int64(d.header.ISOSize) + offset
	default:
		return 0, fmt.Errorf("daa: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("daa: negative seek position")
	}
	d.pos = newPos
	return d.pos, nil
}

func (d *DAAStream) Tell() (int64, error) { return d.pos, nil }

func (d *DAAStream) Close() error {
	if d.parts != nil {
		d.parts.close()
	}
	return d.underlying.Close()
}
