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

package sector

import "bytes"

// SubchannelFormat identifies the on-disk shape of subchannel data handed to
// FeedData, before it is normalized to the canonical 96-byte interleaved PW
// form that Sector stores internally.
type SubchannelFormat int

const (
	// SubchannelNone means no subchannel data was supplied.
	SubchannelNone SubchannelFormat = iota
	// SubchannelPW96 is, as a feed format, eight 12-byte runs, one per
	// channel, concatenated. ExtractSubchannel returns the canonical
	// 96-byte interleaved buffer for it, as for SubchannelInterleavedPW.
	SubchannelPW96
	// SubchannelInterleavedPW is already the canonical 96-byte interleaved form.
	SubchannelInterleavedPW
	// SubchannelQ16 is 16 bytes containing only the deinterleaved Q channel.
	SubchannelQ16
)

// feedShape is what feedShapeFor returns for a (kind, buffer length): the
// main-channel layout it
// implies, per the table in the sector codec's feed contract: for a given
// kind, only specific lengths are legal, and each implies both a byte
// offset into the canonical 2352-byte buffer and which fields came in real.
type feedShape struct {
	offset int
	real   Field
}

func feedShapeFor(kind Kind, length int) (feedShape, bool) {
	switch kind {
	case Audio:
		if length == 2352 {
			return feedShape{offset: 0, real: FieldUserData}, true
		}
	case Mode0:
		switch length {
		case 2336:
			// Data only.
			return feedShape{offset: 16, real: FieldUserData}, true
		case 2340:
			// Header + data.
			return feedShape{offset: 12, real: FieldHeader | FieldUserData}, true
		case 2352:
			// Sync + header + data.
			return feedShape{offset: 0, real: FieldSync | FieldHeader | FieldUserData}, true
		}
	case Mode1:
		switch length {
		case 2048:
			// Data only.
			return feedShape{offset: 16, real: FieldUserData}, true
		case 2052:
			// Header + data.
			return feedShape{offset: 12, real: FieldHeader | FieldUserData}, true
		case 2064:
			// Sync + header + data.
			return feedShape{offset: 0, real: FieldSync | FieldHeader | FieldUserData}, true
		case 2336:
			// Data + EDC/ECC.
			return feedShape{offset: 16, real: FieldUserData | FieldEdcEcc}, true
		case 2340:
			// Header + data + EDC/ECC.
			return feedShape{offset: 12, real: FieldHeader | FieldUserData | FieldEdcEcc}, true
		case 2352:
			// Sync + header + data + EDC/ECC.
			return feedShape{offset: 0, real: FieldSync | FieldHeader | FieldUserData | FieldEdcEcc}, true
		}
	case Mode2Formless:
		switch length {
		case 2336:
			// Data only.
			return feedShape{offset: 16, real: FieldUserData}, true
		case 2340:
			// Header + data.
			return feedShape{offset: 12, real: FieldHeader | FieldUserData}, true
		case 2352:
			// Sync + header + data.
			return feedShape{offset: 0, real: FieldSync | FieldHeader | FieldUserData}, true
		}
	case Mode2Form1:
		switch length {
		case 2048:
			// Data only.
			return feedShape{offset: 24, real: FieldUserData}, true
		case 2056:
			// Subheader + data.
			return feedShape{offset: 16, real: FieldSubheader | FieldUserData}, true
		case 2060:
			// Header + subheader + data.
			return feedShape{offset: 12, real: FieldHeader | FieldSubheader | FieldUserData}, true
		case 2072:
			// Sync + header + subheader + data.
			return feedShape{offset: 0, real: FieldSync | FieldHeader | FieldSubheader | FieldUserData}, true
		case 2328:
			// Data + EDC/ECC.
			return feedShape{offset: 24, real: FieldUserData | FieldEdcEcc}, true
		case 2336:
			// Subheader + data + EDC/ECC.
			return feedShape{offset: 16, real: FieldSubheader | FieldUserData | FieldEdcEcc}, true
		case 2340:
			// Header + subheader + data + EDC/ECC.
			return feedShape{offset: 12, real: FieldHeader | FieldSubheader | FieldUserData | FieldEdcEcc}, true
		case 2352:
			// Sync + header + subheader + data + EDC/ECC.
			return feedShape{offset: 0, real: FieldSync | FieldHeader | FieldSubheader | FieldUserData | FieldEdcEcc}, true
		}
	case Mode2Form2:
		switch length {
		case 2324:
			// Data only.
			return feedShape{offset: 24, real: FieldUserData}, true
		case 2332:
			// Subheader + data.
			return feedShape{offset: 16, real: FieldSubheader | FieldUserData}, true
		case 2348:
			// Sync + header + subheader + data.
			return feedShape{offset: 0, real: FieldSync | FieldHeader | FieldSubheader | FieldUserData}, true
		case 2328:
			// Data + EDC/ECC.
			return feedShape{offset: 24, real: FieldUserData | FieldEdcEcc}, true
		case 2336:
			// Subheader + data + EDC/ECC.
			return feedShape{offset: 16, real: FieldSubheader | FieldUserData | FieldEdcEcc}, true
		case 2340:
			// Header + subheader + data + EDC/ECC.
			return feedShape{offset: 12, real: FieldHeader | FieldSubheader | FieldUserData | FieldEdcEcc}, true
		case 2352:
			// Sync + header + subheader + data + EDC/ECC.
			return feedShape{offset: 0, real: FieldSync | FieldHeader | FieldSubheader | FieldUserData | FieldEdcEcc}, true
		}
	}
	return feedShape{}, false
}

// FeedData copies main into the sector's canonical buffer according to kind
// and declared length, resolving Raw/RawScrambled/Mode2Mixed hints to a
// concrete Kind, and records sub (if any) as the subchannel. ignore fields
// are treated as absent even if the declared length would otherwise mark
// them real, for callers that know part of the image is untrustworthy.
func (s *Sector) FeedData(kind Kind, main []byte, sub []byte, subFormat SubchannelFormat, ignore Field) error {
	switch kind {
	case Raw, RawScrambled:
		if len(main) != 2352 {
			return &Error{Kind: kind, Msg: "raw feed requires a 2352-byte buffer"}
		}
		copy(s.main, main)
		if kind == RawScrambled {
			scramble(s.main)
		}
		if bytes.Equal(s.main[0:12], syncPattern[:]) {
			switch s.main[15] {
			case 0:
				s.kind = Mode0
			case 1:
				s.kind = Mode1
			case 2:
				s.kind = Mode2Mixed
			default:
				s.kind = Mode0
			}
			s.real = FieldSync | FieldHeader | FieldUserData
			if s.kind == Mode1 {
				s.real |= FieldEdcEcc
			}
		} else {
			s.kind = Audio
			s.real = FieldUserData
		}
		if s.kind == Mode2Mixed {
			if s.main[16+2]&0x20 != 0 {
				s.kind = Mode2Form2
			} else {
				s.kind = Mode2Form1
			}
			s.real |= FieldSubheader | FieldEdcEcc
		}
		s.real &^= ignore
		s.valid = s.real
	default:
		shape, ok := feedShapeFor(kind, len(main))
		if !ok {
			return &Error{Kind: kind, Msg: "illegal main-channel buffer length for this kind"}
		}
		s.kind = kind
		copy(s.main[shape.offset:], main)
		s.real = shape.real &^ ignore
		s.valid = s.real
	}

	if sub != nil {
		s.feedSubchannel(sub, subFormat)
		s.real |= FieldSubchannel &^ ignore
		s.valid |= FieldSubchannel &^ ignore
	}
	return nil
}

func (s *Sector) feedSubchannel(sub []byte, format SubchannelFormat) {
	switch format {
	case SubchannelInterleavedPW:
		copy(s.sub, sub)
	case SubchannelPW96:
		// eight 12-byte runs in P,Q,R,S,T,U,V,W order, already linear.
		var channels [8][]byte
		for c := 0; c < 8; c++ {
			channels[c] = sub[c*12 : c*12+12]
		}
		interleave(channels, s.sub)
	case SubchannelQ16:
		for i := range s.sub {
			s.sub[i] = 0
		}
		interleaveChannel(chQ, sub[0:12], s.sub)
	}
}
