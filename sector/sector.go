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

// Package sector implements the Red Book / Yellow Book sector codec: on
// demand synthesis of sync, header, subheader, EDC/ECC and P/Q subchannel
// data from whatever subset of a 2352-byte raw sector an image actually
// stores, and the inverse extraction of any prefix-aligned slice.
package sector

import (
	"fmt"
)

// Kind identifies the sector's data-sector type (or, for input-only hints,
// the wrapper format the feed data arrived in).
type Kind int

const (
	Audio Kind = iota
	Mode0
	Mode1
	Mode2Formless
	Mode2Form1
	Mode2Form2

	// Mode2Mixed, Raw and RawScrambled are feed-only hints: feedData
	// resolves them to one of the kinds above before returning.
	Mode2Mixed
	Raw
	RawScrambled
)

func (k Kind) String() string {
	switch k {
	case Audio:
		return "Audio"
	case Mode0:
		return "Mode0"
	case Mode1:
		return "Mode1"
	case Mode2Formless:
		return "Mode2Formless"
	case Mode2Form1:
		return "Mode2Form1"
	case Mode2Form2:
		return "Mode2Form2"
	case Mode2Mixed:
		return "Mode2Mixed"
	case Raw:
		return "Raw"
	case RawScrambled:
		return "RawScrambled"
	default:
		return "Unknown"
	}
}

// Field is one bit of a sector's real/valid bitset.
type Field int

const (
	FieldSync Field = 1 << iota
	FieldHeader
	FieldSubheader
	FieldUserData
	FieldEdcEcc
	FieldSubchannel
)

// layout describes, for one Kind, the byte ranges of each structural field
// within the 2352-byte main-channel buffer. A zero-length range means the
// field does not exist for this kind.
type layout struct {
	syncOff, syncLen           int
	headerOff, headerLen       int
	subheaderOff, subheaderLen int
	dataOff, dataLen           int
	edcEccOff, edcEccLen       int
	fields                     Field // fields this kind is capable of carrying
}

var layouts = map[Kind]layout{
	Audio: {
		dataOff: 0, dataLen: 2352,
		fields: FieldUserData,
	},
	Mode0: {
		syncOff: 0, syncLen: 12,
		headerOff: 12, headerLen: 4,
		dataOff: 16, dataLen: 2336,
		fields: FieldSync | FieldHeader | FieldUserData,
	},
	Mode1: {
		syncOff: 0, syncLen: 12,
		headerOff: 12, headerLen: 4,
		dataOff: 16, dataLen: 2048,
		edcEccOff: 2064, edcEccLen: 288,
		fields: FieldSync | FieldHeader | FieldUserData | FieldEdcEcc,
	},
	Mode2Formless: {
		syncOff: 0, syncLen: 12,
		headerOff: 12, headerLen: 4,
		dataOff: 16, dataLen: 2336,
		fields: FieldSync | FieldHeader | FieldUserData,
	},
	Mode2Form1: {
		syncOff: 0, syncLen: 12,
		headerOff: 12, headerLen: 4,
		subheaderOff: 16, subheaderLen: 8,
		dataOff: 24, dataLen: 2048,
		edcEccOff: 2072, edcEccLen: 280,
		fields: FieldSync | FieldHeader | FieldSubheader | FieldUserData | FieldEdcEcc,
	},
	Mode2Form2: {
		syncOff: 0, syncLen: 12,
		headerOff: 12, headerLen: 4,
		subheaderOff: 16, subheaderLen: 8,
		dataOff: 24, dataLen: 2324,
		edcEccOff: 2348, edcEccLen: 4,
		fields: FieldSync | FieldHeader | FieldSubheader | FieldUserData | FieldEdcEcc,
	},
}

const mainSize = 2352
const subchanSize = 96

var syncPattern = [12]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// Error reports a field not available for a sector's kind, or a malformed
// feed/extract request. It always carries a Kind so callers can log context.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sector: %s: %s", e.Kind, e.Msg)
}

// Sector represents a single 2352-byte logical sector at an absolute LBA.
// Fields are synthesized lazily: Real tracks what the image actually
// supplied, Valid tracks what has been filled in (either real or
// synthesized so far). Real is always a subset of Valid.
type Sector struct {
	kind Kind
	lba  int32

	main []byte // always len 2352
	sub  []byte // always len 96, interleaved PW

	real  Field
	valid Field

	subInfo    SubchannelInfo
	hasSubInfo bool
}

// New constructs an empty sector of the given kind at absolute LBA lba.
// Nothing is marked real or valid; fields are synthesized on first access.
func New(kind Kind, lba int32) *Sector {
	return &Sector{
		kind: kind,
		lba:  lba,
		main: make([]byte, mainSize),
		sub:  make([]byte, subchanSize),
	}
}

// Kind returns the sector's data-sector type.
func (s *Sector) Kind() Kind { return s.kind }

// LBA returns the sector's absolute logical block address.
func (s *Sector) LBA() int32 { return s.lba }

func (s *Sector) layout() layout {
	k := s.kind
	if k == Mode2Mixed || k == Raw || k == RawScrambled {
		k = Mode1 // placeholder, resolved during FeedData before use
	}
	return layouts[k]
}

func (s *Sector) resolvedKind() Kind {
	switch s.kind {
	case Mode2Mixed, Raw, RawScrambled:
		panic("sector: resolvedKind called before FeedData resolved the kind")
	default:
		return s.kind
	}
}
