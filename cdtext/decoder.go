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

import "sort"

// DecodedRecord is one reassembled CD-TEXT data record.
type DecodedRecord struct {
	PackType byte
	Track    byte
	Data     []byte
}

type decoderBlock struct {
	code, charset, copyright int
	firstTrack, lastTrack    byte
	seqCount                 int
	packCount                [16]int
	sizeInfoIndex            int // -1 if block absent
	records                  []DecodedRecord
}

// Decoder reassembles a CD-TEXT pack stream into per-block data records.
type Decoder struct {
	packs  []encodedPack
	blocks [numBlocks]decoderBlock
}

// NewDecoder parses buf (a whole number of 18-byte packs) and reassembles
// every block's data records.
func NewDecoder(buf []byte) (*Decoder, error) {
	if len(buf)%packLen != 0 {
		return nil, &Error{Kind: ErrMalformed, Msg: "buffer length is not a multiple of 18"}
	}

	d := &Decoder{}
	for i := range d.blocks {
		d.blocks[i].sizeInfoIndex = -1
	}

	numPacks := len(buf) / packLen
	d.packs = make([]encodedPack, numPacks)
	for i := 0; i < numPacks; i++ {
		d.packs[i] = unmarshalPack(buf[i*packLen : (i+1)*packLen])
	}

	d.readSizeInfoPacks(numPacks)
	d.reassembleBlocks()
	return d, nil
}

func (d *Decoder) readSizeInfoPacks(numPacks int) {
	i := 0
	for i < numPacks {
		if d.packs[i].Type == PackSizeInfo {
			block := int(d.packs[i].BlockWithCarry>>4) & 0x7
			if i+3 > numPacks {
				i++
				continue
			}
			var raw [sizeInfoPackCount * packDataLen]byte
			copy(raw[0:12], d.packs[i].Data[:])
			copy(raw[12:24], d.packs[i+1].Data[:])
			copy(raw[24:36], d.packs[i+2].Data[:])
			info := unmarshalSizeInfo(raw[:])

			b := &d.blocks[block]
			b.sizeInfoIndex = i
			b.code = int(info.LanguageCodes[block])
			b.charset = int(info.Charset)
			b.copyright = int(info.Copyright)
			b.firstTrack = info.FirstTrack
			b.lastTrack = info.LastTrack
			b.seqCount = int(info.LastSeqNum[block]) + 1
			for j := 0; j < 16; j++ {
				b.packCount[j] = int(info.PackCount[j])
			}

			i += 3
		} else {
			i++
		}
	}
}

func (d *Decoder) reassembleBlocks() {
	for block := 0; block < numBlocks; block++ {
		b := &d.blocks[block]
		if b.seqCount == 0 {
			continue
		}

		var scratch [256 * packDataLen]byte
		fillScratch(scratch[:])
		tmpLen := 0
		curTrack := 0
		curPackFill := 0

		cur := b.sizeInfoIndex - (b.seqCount - 3)
		for cur < b.sizeInfoIndex {
			if curPackFill == 0 && cur > 0 && d.packs[cur].Type != d.packs[cur-1].Type {
				fillScratch(scratch[:])
				tmpLen = 0
				curPackFill = 0
			}

			curData := d.packs[cur].Data[curPackFill:]
			copyLen := cStrLen(curData) + 1
			if max := packDataLen - curPackFill; copyLen > max {
				copyLen = max
			}
			copy(scratch[tmpLen:tmpLen+copyLen], d.packs[cur].Data[curPackFill:curPackFill+copyLen])
			curPackFill += copyLen
			tmpLen += copyLen

			if tmpLen > 0 && scratch[tmpLen-1] == 0 && scratch[0] != 0 {
				data := append([]byte(nil), scratch[:tmpLen]...)
				b.records = append(b.records, DecodedRecord{
					PackType: d.packs[cur].Type,
					Track:    byte(curTrack), //nolint:gosec // track numbers stay under 100
					Data:     data,
				})
				fillScratch(scratch[:])
				tmpLen = 0
				curTrack++
			}

			if curPackFill == packDataLen {
				curPackFill = 0
				cur++
				if cur < len(d.packs) {
					curTrack = int(d.packs[cur].Track)
				}
			}
		}

		sort.SliceStable(b.records, func(i, j int) bool {
			if b.records[i].PackType != b.records[j].PackType {
				return b.records[i].PackType < b.records[j].PackType
			}
			return b.records[i].Track < b.records[j].Track
		})
	}
}

func fillScratch(buf []byte) {
	for i := range buf {
		buf[i] = 0xFF
	}
}

// BlockInfo returns the language code, charset, and copyright flag
// registered for block, or an error if the block is empty.
func (d *Decoder) BlockInfo(block int) (code, charset, copyright int, err error) {
	if block < 0 || block >= numBlocks {
		return 0, 0, 0, &Error{Kind: ErrInvalidBlock, Msg: "block number out of range"}
	}
	b := &d.blocks[block]
	if b.code == 0 {
		return 0, 0, 0, &Error{Kind: ErrInvalidBlock, Msg: "block has no language code set"}
	}
	return b.code, b.charset, b.copyright, nil
}

// GetData walks block's decoded records in (pack type, track) order,
// invoking fn for each. Iteration stops early if fn returns false.
func (d *Decoder) GetData(block int, fn func(code int, packType byte, track byte, data []byte) bool) error {
	if block < 0 || block >= numBlocks {
		return &Error{Kind: ErrInvalidBlock, Msg: "block number out of range"}
	}
	b := &d.blocks[block]
	for _, rec := range b.records {
		if !fn(b.code, rec.PackType, rec.Track, rec.Data) {
			break
		}
	}
	return nil
}
