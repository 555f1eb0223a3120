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

package cdtext

import (
	"sort"

	"mirage/internal/crc"
)

type rawRecord struct {
	packType byte
	track    byte
	data     []byte
}

type encoderBlock struct {
	code, charset, copyright int
	firstTrack, lastTrack    byte
	records                  []rawRecord
	seqCount                 int
	packCount                [16]int
	sizeInfoIndex            int // index into Encoder.packs of the first reserved size-info pack, -1 if none
}

// Encoder builds a CD-TEXT pack stream from per-language-block records.
// Construct one with NewEncoder; the zero value lacks the initial pack and
// is not ready to use.
type Encoder struct {
	blocks [numBlocks]encoderBlock
	packs  []encodedPack
	cur    int
	fill   int
}

// NewEncoder returns a ready-to-use Encoder.
func NewEncoder() *Encoder {
	e := &Encoder{packs: []encodedPack{{}}}
	for i := range e.blocks {
		e.blocks[i].sizeInfoIndex = -1
	}
	return e
}

// SetBlockInfo assigns a language code, charset, and copyright flag to
// block (0..7).
func (e *Encoder) SetBlockInfo(block, code, charset, copyright int) error {
	if block < 0 || block >= numBlocks {
		return &Error{Kind: ErrInvalidBlock, Msg: "block number out of range"}
	}
	e.blocks[block].code = code
	e.blocks[block].charset = charset
	e.blocks[block].copyright = copyright
	return nil
}

// lang2block finds the block index carrying code, or -1 if no block has
// been assigned that language code yet.
func (e *Encoder) lang2block(code int) int {
	for i := range e.blocks {
		if e.blocks[i].code == code {
			return i
		}
	}
	return -1
}

// AddData appends one logical data record (a pack type + track + payload)
// to the block registered for code. The block must have been set up with
// SetBlockInfo first.
func (e *Encoder) AddData(code int, packType byte, track byte, data []byte) error {
	block := e.lang2block(code)
	if block < 0 {
		return &Error{Kind: ErrUnknownLanguage, Msg: "no block registered for language code"}
	}

	b := &e.blocks[block]
	rec := rawRecord{packType: packType, track: track, data: append([]byte(nil), data...)}
	b.records = append(b.records, rec)
	sort.SliceStable(b.records, func(i, j int) bool {
		if b.records[i].packType != b.records[j].packType {
			return b.records[i].packType < b.records[j].packType
		}
		return b.records[i].track < b.records[j].track
	})

	if b.firstTrack == 0 {
		b.firstTrack = track
	}
	b.lastTrack = track
	return nil
}

// ensure grows e.packs so that index idx is valid.
func (e *Encoder) ensure(idx int) {
	for idx >= len(e.packs) {
		e.packs = append(e.packs, encodedPack{})
	}
}

func (e *Encoder) initializePack(block int, typ byte, track byte, carryLen int) {
	p := &e.packs[e.cur]
	if p.Type != 0 {
		return
	}
	p.Type = typ
	b := &e.blocks[block]
	if typ != PackSizeInfo {
		p.Track = track
		p.Seq = byte(b.seqCount) //nolint:gosec // seqCount bounded by pack counts well under 256
		carry := carryLen
		if carry > 15 {
			carry = 15
		}
		p.BlockWithCarry = byte(block<<4) | byte(carry) //nolint:gosec // block < 8, carry <= 15
	} else {
		p.Track = byte(b.packCount[typ-0x80]) //nolint:gosec // pack counts stay small in practice
		p.Seq = byte(b.seqCount)              //nolint:gosec // see above
		p.BlockWithCarry = byte(block << 4)   //nolint:gosec // block < 8
		if b.sizeInfoIndex < 0 {
			b.sizeInfoIndex = e.cur
		}
	}
	b.seqCount++
	b.packCount[typ-0x80]++
}

// encodePack copies data into consecutive packs, opening a new pack
// whenever the current one is full or its type differs.
func (e *Encoder) encodePack(block int, typ byte, track byte, data []byte) {
	if e.packs[e.cur].Type != 0 && typ != e.packs[e.cur].Type {
		e.cur++
		e.ensure(e.cur)
		e.fill = 0
	}

	curLen := len(data)
	ptr := 0
	carryLen := 0
	for curLen > 0 {
		if e.fill == 12 {
			e.cur++
			e.ensure(e.cur)
			e.fill = 0
		}

		e.initializePack(block, typ, track, carryLen)

		copyLen := 12 - e.fill
		if copyLen > curLen {
			copyLen = curLen
		}
		copy(e.packs[e.cur].Data[e.fill:e.fill+copyLen], data[ptr:ptr+copyLen])

		e.fill += copyLen
		curLen -= copyLen
		ptr += copyLen
		carryLen += copyLen
	}
}

func (e *Encoder) generateSizeInfo(block int) sizeInfo {
	b := &e.blocks[block]
	var s sizeInfo
	s.Charset = byte(b.charset)     //nolint:gosec // charset fits a byte
	s.FirstTrack = b.firstTrack
	s.LastTrack = b.lastTrack
	s.Copyright = byte(b.copyright) //nolint:gosec // copyright is a flag byte
	for i := 0; i < 16; i++ {
		s.PackCount[i] = byte(b.packCount[i]) //nolint:gosec // pack counts stay small in practice
	}
	for i := 0; i < numBlocks; i++ {
		if e.blocks[i].seqCount > 0 {
			s.LastSeqNum[i] = byte(e.blocks[i].seqCount - 1) //nolint:gosec // seqCount bounded
			s.LanguageCodes[i] = byte(e.blocks[i].code)      //nolint:gosec // language codes are small ints
		}
	}
	return s
}

// Encode renders the accumulated blocks into a flat CD-TEXT pack buffer.
func (e *Encoder) Encode() []byte {
	for i := 0; i < numBlocks; i++ {
		b := &e.blocks[i]
		if b.code == 0 {
			continue
		}
		for _, rec := range b.records {
			e.encodePack(i, rec.packType, rec.track, rec.data)
		}

		var zero sizeInfo
		data := zero.marshal()
		e.encodePack(i, PackSizeInfo, 0, data[:])
	}

	for i := 0; i < numBlocks; i++ {
		b := &e.blocks[i]
		if b.sizeInfoIndex < 0 {
			continue
		}
		info := e.generateSizeInfo(i)
		data := info.marshal()

		e.cur = b.sizeInfoIndex
		e.fill = 0
		e.encodePack(i, PackSizeInfo, 0, data[:])
	}

	out := make([]byte, 0, len(e.packs)*packLen)
	for i := range e.packs {
		p := &e.packs[i]
		buf := p.marshal()
		sum := crc.CRC16(buf[0:16])
		buf[16] = byte(sum >> 8)
		buf[17] = byte(sum)
		out = append(out, buf[:]...)
	}
	return out
}
