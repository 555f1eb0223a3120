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

package daa

// x86BCJDecode reverses the x86 branch/call/jump filter some LZMA-
// compressed chunks are additionally passed through before compression:
// CALL/JMP (0xE8/0xE9) relative 32-bit operands were rewritten to
// absolute addresses at encode time, and must be converted back to
// relative here. No library in this module's dependency set exposes this
// as a standalone buffer transform, so it is reimplemented directly from
// the well-known x86 BCJ filter algorithm (the same one used by 7-Zip and
// xz's x86 delta filter).
func x86BCJDecode(data []byte, startOffset uint32) {
	if len(data) < 5 {
		return
	}

	maskToBitNumber := [8]byte{0, 1, 2, 2, 3, 3, 3, 3}
	prevMask := uint32(0)
	prevPos := -1

	i := 0
	limit := len(data) - 4
	for i < limit {
		if data[i]&0xFE != 0xE8 {
			i++
			continue
		}

		offset := i - prevPos
		prevPos = i
		if offset > 3 {
			prevMask = 0
		} else {
			prevMask = (prevMask << uint(offset-1)) & 7
			if prevMask != 0 {
				b := data[i+4-int(maskToBitNumber[prevMask])]
				if maskToBitNumber[prevMask] > 0 && (b == 0x00 || b == 0xFF) {
					prevMask = (prevMask >> 1) | 4
					i++
					continue
				}
			}
		}

		if data[i+4] == 0x00 || data[i+4] == 0xFF {
			src := uint32(data[i+1]) | uint32(data[i+2])<<8 | uint32(data[i+3])<<16 | uint32(data[i+4])<<24
			var dest uint32
			for {
				dest = src - (startOffset + uint32(i) + 5) //nolint:gosec // wraps intentionally, mirrors the reference filter
				if prevMask == 0 {
					break
				}
				idx := maskToBitNumber[prevMask] * 8
				b := byte(dest >> (24 - idx))
				if b != 0x00 && b != 0xFF {
					break
				}
				src = dest ^ (uint32(1)<<(32-idx) - 1)
			}
			data[i+4] = byte(0 - ((dest >> 24) & 1)) //nolint:gosec // intentional truncation, sign-extend top bit
			data[i+3] = byte(dest >> 16)
			data[i+2] = byte(dest >> 8)
			data[i+1] = byte(dest)
			i += 5
		} else {
			prevMask = (prevMask >> 1) | 4
			i++
		}
	}
}
