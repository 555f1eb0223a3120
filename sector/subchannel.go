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

import (
	"mirage/internal/crc"
	"mirage/internal/msf"
)

// SubchannelInfo carries the track-level context the Q subchannel synthesis
// needs but that a standalone Sector does not own: it is populated by
// whichever Track/Fragment produced this sector before subchannel data is
// requested. RelativeAddress and TrackStart are both track-relative (i.e.
// address 0 is the first frame of the track's pregap, if any).
type SubchannelInfo struct {
	RelativeAddress int32
	TrackStart      int32
	TrackNumber     int
	IndexNumber     int
	CTL             uint8
	MCN             *[13]byte
	ISRC            *[12]byte
}

// SetSubchannelInfo attaches the track context used to synthesize P/Q
// subchannel data on next access. It must be called before the first
// ExtractSubchannel/FeedData call that needs synthesis.
func (s *Sector) SetSubchannelInfo(info SubchannelInfo) {
	s.subInfo = info
	s.hasSubInfo = true
}

func (s *Sector) generateSubchannel() {
	p := s.generateP()
	q := s.generateQ()
	var channels [8][]byte
	zero := make([]byte, 12)
	for c := range channels {
		channels[c] = zero
	}
	channels[0] = p // chP position
	channels[1] = q // chQ position
	interleave(channels, s.sub)
	s.valid |= FieldSubchannel
}

func (s *Sector) generateP() []byte {
	p := make([]byte, 12)
	if s.subInfo.RelativeAddress < s.subInfo.TrackStart {
		for i := range p {
			p[i] = 0xFF
		}
	}
	return p
}

func (s *Sector) generateQ() []byte {
	q := make([]byte, 12)
	q[0] = (s.subInfo.CTL << 4) | s.modeQ()

	rel := s.subInfo.RelativeAddress % 100
	switch {
	case rel == 25 && s.subInfo.MCN != nil:
		s.fillQMode2(q)
	case rel == 50 && s.subInfo.ISRC != nil && s.resolvedKind() == Audio:
		s.fillQMode3(q)
	default:
		s.fillQMode1(q)
	}

	crcVal := crc.CRC16(q[0:10])
	q[10] = byte(crcVal >> 8)
	q[11] = byte(crcVal)
	return q
}

// modeQ returns the low nibble of Q byte 0: which of the three payload
// layouts (track/index, MCN, ISRC) this sector's Q channel carries.
func (s *Sector) modeQ() byte {
	rel := s.subInfo.RelativeAddress % 100
	switch {
	case rel == 25 && s.subInfo.MCN != nil:
		return 2
	case rel == 50 && s.subInfo.ISRC != nil && s.resolvedKind() == Audio:
		return 3
	default:
		return 1
	}
}

func (s *Sector) fillQMode1(q []byte) {
	relMSF := msf.MSFToBCD(msf.LBAToMSF(s.subInfo.RelativeAddress-s.subInfo.TrackStart, false))
	absMSF := msf.MSFToBCD(msf.LBAToMSF(s.lba, true))

	q[1] = msf.HexToBCD(uint8(s.subInfo.TrackNumber))
	q[2] = msf.HexToBCD(uint8(s.subInfo.IndexNumber))
	q[3], q[4], q[5] = relMSF[0], relMSF[1], relMSF[2]
	q[6] = 0
	q[7], q[8], q[9] = absMSF[0], absMSF[1], absMSF[2]
}

func (s *Sector) fillQMode2(q []byte) {
	mcn := msf.EncodeMCN(*s.subInfo.MCN)
	copy(q[1:8], mcn[:])
	q[8] = 0
	absMSF := msf.MSFToBCD(msf.LBAToMSF(s.lba, true))
	q[9] = absMSF[2]
}

func (s *Sector) fillQMode3(q []byte) {
	isrc := msf.EncodeISRC(*s.subInfo.ISRC)
	copy(q[1:9], isrc[:])
	absMSF := msf.MSFToBCD(msf.LBAToMSF(s.lba, true))
	q[9] = absMSF[2]
}
