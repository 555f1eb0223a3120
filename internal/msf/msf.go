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

// Package msf provides MSF/LBA address conversion, BCD encoding, and the
// ISRC 6-bit alphabet shared by the sector codec and the CD-TEXT/subchannel
// layers. These are pure, table-free helpers in the spirit of the teacher
// repo's internal/binary reader: small and dependency-free.
package msf

// FramesPerSecond is the number of CD frames (sectors) per second of audio.
const FramesPerSecond = 75

// SecondsPerMinute is the number of seconds per MSF minute.
const SecondsPerMinute = 60

// PregapFrames is the 2-second lead-in pregap folded into "absolute" MSF
// addresses (the difference between an LBA and its on-disc MSF).
const PregapFrames = 150

// MSF is a Minute/Second/Frame address.
type MSF struct {
	Min, Sec, Frame uint8
}

// LBAToMSF converts a logical block address to an MSF triplet. When diff is
// true, the conversion accounts for the 150-frame pregap offset (i.e. it
// produces the on-disc MSF as burned into a sector header); when false it
// treats lba as already being in MSF-frame units with no pregap bias.
func LBAToMSF(lba int32, diff bool) MSF {
	if diff {
		lba += PregapFrames
	}
	if lba < 0 {
		lba = 0
	}
	m := lba / (SecondsPerMinute * FramesPerSecond)
	s := (lba / FramesPerSecond) % SecondsPerMinute
	f := lba % FramesPerSecond
	return MSF{Min: uint8(m), Sec: uint8(s), Frame: uint8(f)} //nolint:gosec // bounded by disc capacity
}

// MSFToLBA converts an MSF triplet to a logical block address, inverting
// LBAToMSF for the same diff setting.
func MSFToLBA(m, s, f uint8, diff bool) int32 {
	lba := int32(m)*SecondsPerMinute*FramesPerSecond + int32(s)*FramesPerSecond + int32(f)
	if diff {
		lba -= PregapFrames
	}
	return lba
}
