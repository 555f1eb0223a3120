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

package mirage

import (
	"mirage/sector"
	"mirage/stream"
)

// MainDataFormat identifies the layout of a fragment's main data stream.
type MainDataFormat int

// Main data formats. AudioSwap indicates 16-bit samples stored big-endian
// that must be byte-swapped to little-endian on read.
const (
	MainDataFormatNone MainDataFormat = iota
	MainDataFormatData
	MainDataFormatAudio
	MainDataFormatAudioSwap
)

// SubchannelDataFormat identifies the layout and placement of a fragment's
// subchannel data. The Internal/External bits determine which stream
// (main or dedicated subchannel) the subchannel bytes are read from; the
// PW96Linear/PW96Interleaved/Q16 bits determine their wire shape.
type SubchannelDataFormat int

// Subchannel data format bits, combined with bitwise OR (e.g.
// SubchannelDataFormatExternal|SubchannelDataFormatPW96Interleaved).
const (
	SubchannelDataFormatNone SubchannelDataFormat = 0

	SubchannelDataFormatInternal SubchannelDataFormat = 1 << iota
	SubchannelDataFormatExternal

	SubchannelDataFormatPW96Interleaved
	SubchannelDataFormatPW96Linear
	SubchannelDataFormatQ16
)

// Fragment is the interface between a Track and the data stream(s) holding
// its sector bytes. A Fragment with no main stream set acts as a "NULL"
// fragment representing a zero-filled pregap or postgap.
type Fragment struct {
	address int
	length  int

	mainStream stream.Stream
	mainSize   int
	mainFormat MainDataFormat
	mainOffset int64

	subchannelStream stream.Stream
	subchannelSize   int
	subchannelFormat SubchannelDataFormat
	subchannelOffset int64

	onLayoutChanged func()
}

// NewFragment constructs an empty Fragment with zero address and length.
func NewFragment() *Fragment {
	return &Fragment{}
}

// SetOnLayoutChanged installs the callback invoked whenever a bottom-up
// layout change occurs on this fragment (its length is set). Intended for
// internal use by the owning Track, which wires it when the fragment is
// appended.
func (f *Fragment) SetOnLayoutChanged(fn func()) {
	f.onLayoutChanged = fn
}

func (f *Fragment) commitBottomUp() {
	if f.onLayoutChanged != nil {
		f.onLayoutChanged()
	}
}

// SetAddress sets the fragment's start address, relative to its owning
// track's start, in sectors. Intended for internal use by Track.
func (f *Fragment) SetAddress(address int) { f.address = address }

// Address returns the fragment's track-relative start address, in sectors.
func (f *Fragment) Address() int { return f.address }

// SetLength sets the fragment's length in sectors. Causes a bottom-up
// layout change on the owning track.
func (f *Fragment) SetLength(length int) {
	f.length = length
	f.commitBottomUp()
}

// Length returns the fragment's length in sectors.
func (f *Fragment) Length() int { return f.length }

// ContainsAddress reports whether address falls within [Address, Address+Length).
func (f *Fragment) ContainsAddress(address int) bool {
	return address >= f.address && address < f.address+f.length
}

// UseRestOfFile computes and sets the fragment's length from the size of
// the remaining bytes in the main data stream following mainOffset,
// dividing by the combined main+internal-subchannel sector size.
func (f *Fragment) UseRestOfFile() error {
	if f.mainStream == nil {
		return newError(KindFragment, "main channel data input stream not set", nil)
	}
	fileSize, err := f.mainStream.Seek(0, 2)
	if err != nil {
		return newError(KindFragment, "failed to seek to the end of main channel data input stream", err)
	}

	fullSize := f.mainSize
	if f.subchannelFormat&SubchannelDataFormatInternal != 0 {
		fullSize += f.subchannelSize
	}
	if fullSize == 0 {
		return newError(KindFragment, "cannot derive fragment length: combined sector size is zero", nil)
	}

	f.SetLength(int((fileSize - f.mainOffset) / int64(fullSize)))
	return nil
}

// SetMainStream sets the main channel data stream.
func (f *Fragment) SetMainStream(s stream.Stream) { f.mainStream = s }

// MainFilename returns the main channel data stream's filename, or "" if
// no stream is set.
func (f *Fragment) MainFilename() string {
	if f.mainStream == nil {
		return ""
	}
	return f.mainStream.Filename()
}

// SetMainOffset sets the byte offset of sector 0 within the main data file.
func (f *Fragment) SetMainOffset(offset int64) { f.mainOffset = offset }

// MainOffset returns the byte offset of sector 0 within the main data file.
func (f *Fragment) MainOffset() int64 { return f.mainOffset }

// SetMainSize sets the main data sector size, in bytes.
func (f *Fragment) SetMainSize(size int) { f.mainSize = size }

// MainSize returns the main data sector size, in bytes.
func (f *Fragment) MainSize() int { return f.mainSize }

// SetMainFormat sets the main data format.
func (f *Fragment) SetMainFormat(format MainDataFormat) { f.mainFormat = format }

// MainFormat returns the main data format.
func (f *Fragment) MainFormat() MainDataFormat { return f.mainFormat }

// mainPosition computes the byte position, within the main data file, of
// the sector at fragment-relative address.
func (f *Fragment) mainPosition(address int) int64 {
	sizeFull := f.mainSize
	if f.subchannelFormat&SubchannelDataFormatInternal != 0 {
		sizeFull += f.subchannelSize
	}
	return f.mainOffset + int64(address)*int64(sizeFull)
}

// ReadMainData reads the main channel data for the sector at
// fragment-relative address. If no main stream is set, it returns a nil
// slice and no error: a NULL fragment reads as absent data, never a
// failure, so callers fall back to sector synthesis.
func (f *Fragment) ReadMainData(address int) ([]byte, error) {
	if f.mainStream == nil {
		return nil, nil
	}

	position := f.mainPosition(address)
	buf := make([]byte, f.mainSize)

	// Truncated mini-images are tolerated: seek/read errors here are not
	// fatal, matching read_main_data's "ignore all errors" comment.
	if _, err := f.mainStream.Seek(position, 0); err == nil {
		n, _ := f.mainStream.Read(buf)
		buf = buf[:n]
		if n < f.mainSize {
			buf = append(buf, make([]byte, f.mainSize-n)...)
		}
	} else {
		buf = make([]byte, f.mainSize)
	}

	if f.mainFormat == MainDataFormatAudioSwap {
		for i := 0; i+1 < len(buf); i += 2 {
			buf[i], buf[i+1] = buf[i+1], buf[i]
		}
	}

	return buf, nil
}

// WriteMainData writes buffer as the main channel data for the sector at
// fragment-relative address. buffer's length must equal the fragment's
// main sector size. If no main stream is set, the call is a silent no-op.
func (f *Fragment) WriteMainData(address int, buffer []byte) error {
	if len(buffer) == 0 {
		return nil
	}
	if len(buffer) != f.mainSize {
		return newError(KindFragment, "mismatch between given data and set main channel data size", nil)
	}
	if f.mainStream == nil {
		return nil
	}
	if !f.mainStream.IsWritable() {
		return newError(KindFragment, "main channel data stream is not writable", nil)
	}

	// Audio data swapping on write is not implemented; the source carries
	// the same limitation (raw bytes written as-is).

	position := f.mainPosition(address)
	if _, err := f.mainStream.Seek(position, 0); err != nil {
		return newError(KindFragment, "failed to seek to main data position", err)
	}
	if _, err := f.mainStream.Write(buffer); err != nil {
		return newError(KindFragment, "failed to write main channel data", err)
	}
	return nil
}

// SetSubchannelStream sets the dedicated subchannel data stream. Unused
// when the subchannel format is Internal (the main stream is read
// instead).
func (f *Fragment) SetSubchannelStream(s stream.Stream) { f.subchannelStream = s }

// SubchannelFilename returns the subchannel data stream's filename, or ""
// if none is set.
func (f *Fragment) SubchannelFilename() string {
	if f.subchannelStream == nil {
		return ""
	}
	return f.subchannelStream.Filename()
}

// SetSubchannelOffset sets the byte offset of sector 0 within the external
// subchannel data file.
func (f *Fragment) SetSubchannelOffset(offset int64) { f.subchannelOffset = offset }

// SubchannelOffset returns the byte offset of sector 0 within the external
// subchannel data file.
func (f *Fragment) SubchannelOffset() int64 { return f.subchannelOffset }

// SetSubchannelSize sets the on-disk subchannel sector size, in bytes (0
// if the fragment carries no subchannel).
func (f *Fragment) SetSubchannelSize(size int) { f.subchannelSize = size }

// SubchannelSize returns the on-disk subchannel sector size, in bytes.
func (f *Fragment) SubchannelSize() int { return f.subchannelSize }

// SetSubchannelFormat sets the subchannel data format, a bitwise
// combination of a placement bit (Internal/External) and a wire-shape bit
// (PW96Interleaved/PW96Linear/Q16).
func (f *Fragment) SetSubchannelFormat(format SubchannelDataFormat) { f.subchannelFormat = format }

// SubchannelFormat returns the subchannel data format.
func (f *Fragment) SubchannelFormat() SubchannelDataFormat { return f.subchannelFormat }

func (f *Fragment) subchannelPosition(address int) int64 {
	switch {
	case f.subchannelFormat&SubchannelDataFormatInternal != 0:
		return f.mainPosition(address) + int64(f.mainSize)
	case f.subchannelFormat&SubchannelDataFormatExternal != 0:
		return f.subchannelOffset + int64(address)*int64(f.subchannelSize)
	default:
		return 0
	}
}

// ReadSubchannelData reads the subchannel data for the sector at
// fragment-relative address, always returning it normalized to 96-byte
// interleaved P-W regardless of the on-disk format. Returns a nil slice,
// no error, if the fragment carries no subchannel or no applicable stream
// is set.
func (f *Fragment) ReadSubchannelData(address int) ([]byte, error) {
	if f.subchannelSize == 0 {
		return nil, nil
	}

	var src stream.Stream
	if f.subchannelFormat&SubchannelDataFormatInternal != 0 {
		src = f.mainStream
	} else {
		src = f.subchannelStream
	}
	if src == nil {
		return nil, nil
	}

	position := f.subchannelPosition(address)
	raw := make([]byte, f.subchannelSize)
	if _, err := src.Seek(position, 0); err == nil {
		n, _ := src.Read(raw)
		raw = raw[:n]
		if n < f.subchannelSize {
			raw = append(raw, make([]byte, f.subchannelSize-n)...)
		}
	}

	out := make([]byte, 96)
	switch {
	case f.subchannelFormat&SubchannelDataFormatPW96Linear != 0:
		// Linear P-W is stored as eight consecutive 12-byte channels,
		// ordered P..W (stream index i goes to subchannel bit 7-i, so P
		// lands in bit 7).
		for i := 0; i < 8; i++ {
			sector.InterleaveChannel(7-i, raw[i*12:i*12+12], out)
		}
	case f.subchannelFormat&SubchannelDataFormatPW96Interleaved != 0:
		copy(out, raw)
	case f.subchannelFormat&SubchannelDataFormatQ16 != 0:
		sector.InterleaveChannel(subchannelQ, raw, out)
	}

	return out, nil
}

// subchannelQ is the Q subchannel's bit index within an interleaved P-W
// byte, matching the source's SUBCHANNEL_Q enumerator.
const subchannelQ = 6

// WriteSubchannelData writes buffer, which must be 96 bytes of
// interleaved P-W subchannel data, for the sector at fragment-relative
// address. If the on-disk subchannel format is not already
// PW96Interleaved, it is written through unconverted, matching the
// source's own unfinished write-side conversion.
func (f *Fragment) WriteSubchannelData(address int, buffer []byte) error {
	if len(buffer) == 0 {
		return nil
	}
	if len(buffer) != 96 {
		return newError(KindFragment, "mismatch between given data and accepted subchannel size of 96", nil)
	}

	var dst stream.Stream
	if f.subchannelFormat&SubchannelDataFormatInternal != 0 {
		dst = f.mainStream
	} else {
		dst = f.subchannelStream
	}
	if dst == nil {
		return nil
	}
	if !dst.IsWritable() {
		return newError(KindFragment, "subchannel data stream is not writable", nil)
	}

	// Subchannel data conversion on write is not implemented when the
	// on-disk format isn't already interleaved; the source carries the
	// same limitation.

	position := f.subchannelPosition(address)
	if _, err := dst.Seek(position, 0); err != nil {
		return newError(KindFragment, "failed to seek to subchannel data position", err)
	}
	if _, err := dst.Write(buffer[:f.subchannelSize]); err != nil {
		return newError(KindFragment, "failed to write subchannel data", err)
	}
	return nil
}

// IsWritable reports whether the fragment's main stream accepts writes.
func (f *Fragment) IsWritable() bool {
	return f.mainStream != nil && f.mainStream.IsWritable()
}
