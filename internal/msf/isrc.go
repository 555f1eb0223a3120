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

package msf

// AsciiToISRC converts an ASCII character of an ISRC string into its 6-bit
// ISRC alphabet code: digits map to 0-9, letters (either case) map to 17-42.
// Any other character maps to 0.
func AsciiToISRC(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return (c - '0') & 0x3F
	case c >= 'A' && c <= 'Z':
		return (c - 'A' + 17) & 0x3F
	case c >= 'a' && c <= 'z':
		return (c - 'a' + 17) & 0x3F
	default:
		return 0
	}
}

// ISRCToAscii converts a 6-bit ISRC alphabet code back to its ASCII
// character, or 0 if the code is out of range.
func ISRCToAscii(c uint8) byte {
	switch {
	case c <= 9:
		return '0' + c
	case c >= 17 && c <= 42:
		return 'A' + (c - 17)
	default:
		return 0
	}
}

// EncodeISRC packs a 12-character ISRC string into the 8-byte Q subchannel
// Mode-3 representation: the 5-character country+owner prefix each get a
// 6-bit ISRC alphabet code (30 bits, followed by 2 zero padding bits), and
// the remaining 7 decimal digits are packed one per nibble as BCD (28 bits,
// followed by 4 zero padding bits), filling the 8 bytes.
func EncodeISRC(isrc [12]byte) [8]byte {
	var buf [8]byte

	buf[0] = AsciiToISRC(isrc[0]) << 2

	d := AsciiToISRC(isrc[1])
	buf[0] |= d >> 4
	buf[1] = d << 4

	d = AsciiToISRC(isrc[2])
	buf[1] |= d >> 2
	buf[2] = d << 6

	buf[2] |= AsciiToISRC(isrc[3])

	buf[3] = AsciiToISRC(isrc[4]) << 2

	buf[4] = ((isrc[5] - '0') << 4) | ((isrc[6] - '0') & 0x0F)
	buf[5] = ((isrc[7] - '0') << 4) | ((isrc[8] - '0') & 0x0F)
	buf[6] = ((isrc[9] - '0') << 4) | ((isrc[10] - '0') & 0x0F)
	buf[7] = (isrc[11] - '0') << 4

	return buf
}

// DecodeISRC unpacks the 8-byte Q subchannel Mode-3 representation back
// into a 12-character ISRC string.
func DecodeISRC(buf [8]byte) [12]byte {
	var isrc [12]byte

	d := (buf[0] >> 2) & 0x3F
	isrc[0] = ISRCToAscii(d)

	d = ((buf[0] & 0x03) << 4) | ((buf[1] >> 4) & 0x0F)
	isrc[1] = ISRCToAscii(d)

	d = ((buf[1] & 0x0F) << 2) | ((buf[2] >> 6) & 0x03)
	isrc[2] = ISRCToAscii(d)

	d = buf[2] & 0x3F
	isrc[3] = ISRCToAscii(d)

	d = (buf[3] >> 2) & 0x3F
	isrc[4] = ISRCToAscii(d)

	isrc[5] = '0' + (buf[4]>>4)&0x0F
	isrc[6] = '0' + buf[4]&0x0F
	isrc[7] = '0' + (buf[5]>>4)&0x0F
	isrc[8] = '0' + buf[5]&0x0F
	isrc[9] = '0' + (buf[6]>>4)&0x0F
	isrc[10] = '0' + buf[6]&0x0F
	isrc[11] = '0' + (buf[7]>>4)&0x0F

	return isrc
}

// EncodeMCN packs a 13-digit MCN string into the 7-byte Q subchannel Mode-2
// representation: two BCD digits per byte, with the final odd digit left
// in the high nibble of the 7th byte.
func EncodeMCN(mcn [13]byte) [7]byte {
	var buf [7]byte
	m := 0
	for i := range 6 {
		buf[i] = ((mcn[m] - '0') << 4) | ((mcn[m+1] - '0') & 0x0F)
		m += 2
	}
	buf[6] = (mcn[m] - '0') << 4
	return buf
}

// DecodeMCN unpacks the 7-byte Q subchannel Mode-2 representation back into
// a 13-digit MCN string.
func DecodeMCN(buf [7]byte) [13]byte {
	var mcn [13]byte
	m := 0
	for i := range 6 {
		mcn[m] = '0' + (buf[i]>>4)&0x0F
		mcn[m+1] = '0' + buf[i]&0x0F
		m += 2
	}
	mcn[m] = '0' + (buf[6]>>4)&0x0F
	return mcn
}
