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

// extractShapeFor mirrors feedShapeFor: given a kind and a requested output
// length, returns the byte offset into the canonical buffer and the set of
// fields that must be valid to satisfy the request.
func extractShapeFor(kind Kind, length int) (feedShape, bool) {
	return feedShapeFor(kind, length)
}

// ExtractData returns the length-byte slice of the main-channel buffer that
// a request of this length implies for the sector's kind, synthesizing any
// field that is required but not yet valid. The returned slice aliases the
// sector's internal buffer and must not be retained past the next mutation.
func (s *Sector) ExtractData(length int) ([]byte, error) {
	shape, ok := extractShapeFor(s.resolvedKind(), length)
	if !ok {
		return nil, &Error{Kind: s.kind, Msg: "illegal extract length for this kind"}
	}
	s.ensure(shape.real)
	return s.main[shape.offset : shape.offset+length], nil
}

// ExtractSubchannel returns subchannel data in the requested format,
// synthesizing the canonical PW buffer first if it was never fed.
func (s *Sector) ExtractSubchannel(format SubchannelFormat) []byte {
	if s.valid&FieldSubchannel == 0 {
		s.generateSubchannel()
	}
	switch format {
	case SubchannelNone:
		return nil
	case SubchannelPW96, SubchannelInterleavedPW:
		out := make([]byte, 96)
		copy(out, s.sub)
		return out
	case SubchannelQ16:
		out := make([]byte, 16)
		deinterleaveChannel(chQ, s.sub, out[0:12])
		return out
	default:
		return nil
	}
}
