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

// channel index constants for subchannel interleaving: the bit position a
// channel's data occupies in each interleaved byte (P highest, W lowest).
const (
	chW = 0
	chV = 1
	chU = 2
	chT = 3
	chS = 4
	chR = 5
	chQ = 6
	chP = 7
)

// interleaveChannel interleaves one 12-byte subchannel stream into its bit
// position (subchan) across the 96-byte PW buffer.
func interleaveChannel(subchan int, channel12 []byte, channel96 []byte) {
	for i := 0; i < 12; i++ {
		for j := 0; j < 8; j++ {
			val := (channel12[i] >> uint(j)) & 1
			channel96[i*8+(7-j)] |= val << uint(subchan)
		}
	}
}

// deinterleaveChannel extracts one bit-position's worth of data out of the
// 96-byte PW buffer back into a 12-byte stream.
func deinterleaveChannel(subchan int, channel96 []byte, channel12 []byte) {
	for i := 0; i < 12; i++ {
		for j := 0; j < 8; j++ {
			val := (channel96[i*8+j] >> uint(subchan)) & 1
			channel12[i] |= val << uint(7-j)
		}
	}
}

// interleave packs all eight 12-byte channel streams (indexed P,Q,R,S,T,U,V,W)
// into a fresh 96-byte interleaved buffer.
func interleave(channels [8][]byte, out []byte) {
	for i := range out {
		out[i] = 0
	}
	bitForIndex := [8]int{chP, chQ, chR, chS, chT, chU, chV, chW}
	for idx, ch := range channels {
		interleaveChannel(bitForIndex[idx], ch, out)
	}
}

// InterleaveChannel exports interleaveChannel for the Fragment layer, which
// reassembles a linear (non-interleaved) P-W subchannel buffer read from an
// image file into the canonical 96-byte interleaved form.
func InterleaveChannel(subchan int, channel12 []byte, channel96 []byte) {
	interleaveChannel(subchan, channel12, channel96)
}

// DeinterleaveChannel exports deinterleaveChannel for the Fragment layer.
func DeinterleaveChannel(subchan int, channel96 []byte, channel12 []byte) {
	deinterleaveChannel(subchan, channel96, channel12)
}
