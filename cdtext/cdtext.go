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

// Package cdtext implements the CD-TEXT pack encoder/decoder: up to 8
// language blocks of textual disc/track metadata, wire-encoded as a
// sequence of 18-byte packs with per-pack CRC-16 and 3-pack size-info
// records.
package cdtext

import "fmt"

// PackType enumerates the CD-TEXT pack type byte.
const (
	PackTitle         = 0x80
	PackPerformer     = 0x81
	PackSongwriter    = 0x82
	PackComposer      = 0x83
	PackArranger      = 0x84
	PackMessage       = 0x85
	PackDiscID        = 0x86
	PackGenre         = 0x87
	PackTOC           = 0x88
	PackTOC2          = 0x89
	PackReserved1     = 0x8A
	PackReserved2     = 0x8B
	PackReserved3     = 0x8C
	PackClosedInfo    = 0x8D
	PackUPCISRC       = 0x8E
	PackSizeInfo      = 0x8F
	packDataLen       = 12
	packLen           = 18
	numBlocks         = 8
	sizeInfoPackCount = 3
)

// ErrorKind classifies the failure cause of a cdtext operation.
type ErrorKind int

const (
	ErrInvalidBlock ErrorKind = iota
	ErrUnknownLanguage
	ErrMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidBlock:
		return "invalid block"
	case ErrUnknownLanguage:
		return "unknown language"
	case ErrMalformed:
		return "malformed CD-TEXT data"
	default:
		return "unknown"
	}
}

// Error reports a CD-TEXT codec failure.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("cdtext: %s: %s", e.Kind, e.Msg) }

// encodedPack is the 18-byte on-wire record.
type encodedPack struct {
	Type           byte
	Track          byte
	Seq            byte
	BlockWithCarry byte
	Data           [packDataLen]byte
	CRC            [2]byte
}

func (p *encodedPack) marshal() [packLen]byte {
	var out [packLen]byte
	out[0] = p.Type
	out[1] = p.Track
	out[2] = p.Seq
	out[3] = p.BlockWithCarry
	copy(out[4:16], p.Data[:])
	out[16], out[17] = p.CRC[0], p.CRC[1]
	return out
}

func unmarshalPack(buf []byte) encodedPack {
	var p encodedPack
	p.Type = buf[0]
	p.Track = buf[1]
	p.Seq = buf[2]
	p.BlockWithCarry = buf[3]
	copy(p.Data[:], buf[4:16])
	p.CRC[0], p.CRC[1] = buf[16], buf[17]
	return p
}

// sizeInfo is the 36-byte record carried across 3 consecutive 0x8F packs.
type sizeInfo struct {
	Charset       byte
	FirstTrack    byte
	LastTrack     byte
	Copyright     byte
	PackCount     [16]byte
	LastSeqNum    [8]byte
	LanguageCodes [8]byte
}

func (s *sizeInfo) marshal() [sizeInfoPackCount * packDataLen]byte {
	var out [sizeInfoPackCount * packDataLen]byte
	out[0], out[1], out[2], out[3] = s.Charset, s.FirstTrack, s.LastTrack, s.Copyright
	copy(out[4:20], s.PackCount[:])
	copy(out[20:28], s.LastSeqNum[:])
	copy(out[28:36], s.LanguageCodes[:])
	return out
}

func unmarshalSizeInfo(buf []byte) sizeInfo {
	var s sizeInfo
	s.Charset, s.FirstTrack, s.LastTrack, s.Copyright = buf[0], buf[1], buf[2], buf[3]
	copy(s.PackCount[:], buf[4:20])
	copy(s.LastSeqNum[:], buf[20:28])
	copy(s.LanguageCodes[:], buf[28:36])
	return s
}

func cStrLen(b []byte) int {
	for i, v := range b {
		if v == 0 {
			return i
		}
	}
	return len(b)
}
