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

// HexToBCD packs a two-digit decimal value (0..99) into a single
// binary-coded-decimal byte: the tens digit in the high nibble, the ones
// digit in the low nibble.
func HexToBCD(hex uint8) uint8 {
	return ((hex / 10) << 4) | (hex % 10)
}

// BCDToHex unpacks a binary-coded-decimal byte back into its two-digit
// decimal value.
func BCDToHex(bcd uint8) uint8 {
	return (bcd>>4)*10 + (bcd & 0x0F)
}

// MSFToBCD returns the MSF triplet with each field packed as BCD, the form
// actually stored in a sector header and in Q subchannel payloads.
func MSFToBCD(m MSF) [3]uint8 {
	return [3]uint8{HexToBCD(m.Min), HexToBCD(m.Sec), HexToBCD(m.Frame)}
}

// BCDToMSF unpacks a BCD-encoded MSF triplet.
func BCDToMSF(bcd [3]uint8) MSF {
	return MSF{Min: BCDToHex(bcd[0]), Sec: BCDToHex(bcd[1]), Frame: BCDToHex(bcd[2])}
}
