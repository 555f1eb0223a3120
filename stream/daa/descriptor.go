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

import (
	"encoding/binary"
	"fmt"

	"mirage/stream"
)

const (
	descriptorTypePart      = 1
	descriptorTypeSplit     = 2
	descriptorTypeEncrypted = 3
	descriptorTypeComment   = 4
)

// SplitInfo describes a multi-volume DAA/GBI archive: how many parts exist
// and which filename fingerprint generates the part N filename from the
// main (part 0) filename.
type SplitInfo struct {
	NumVolumes  int
	Fingerprint int // 99, 512, or 101; see Fingerprint* constants.
}

const (
	FingerprintPartNN  = 99  // vol.part01.daa, vol.part02.daa, ...
	FingerprintPartNNN = 512 // vol.part001.daa, ...
	FingerprintDNN     = 101 // vol.daa, vol.d00, vol.d01, ...
)

// EncryptionInfo describes the password-protection descriptor.
type EncryptionInfo struct {
	EncryptionType uint32
	PasswordCRC    uint32
	StoredKey      [128]byte
}

// descriptors holds the parsed variable-length records found between the
// main header and the chunk table.
type descriptors struct {
	split      *SplitInfo
	encryption *EncryptionInfo
}

// parseDescriptors walks {u32 type, u32 length, payload} records starting
// at buf[0], where length includes the 8-byte type+length prefix, until end
// bytes have been consumed. Unknown types are skipped.
func parseDescriptors(buf []byte, end int) (*descriptors, error) {
	d := &descriptors{}
	pos := 0
	for pos < end {
		if pos+8 > len(buf) {
			return nil, fmt.Errorf("%w: truncated descriptor record", stream.ErrCorrupt)
		}
		typ := binary.LittleEndian.Uint32(buf[pos : pos+4])
		length := binary.LittleEndian.Uint32(buf[pos+4 : pos+8])
		if length < 8 || pos+int(length) > len(buf) {
			return nil, fmt.Errorf("%w: invalid descriptor length", stream.ErrCorrupt)
		}
		payload := buf[pos+8 : pos+int(length)]

		switch typ {
		case descriptorTypeSplit:
			if len(payload) < 4 {
				return nil, fmt.Errorf("%w: truncated split descriptor", stream.ErrCorrupt)
			}
			numVolumes := int(binary.LittleEndian.Uint16(payload[0:2]))
			// The sub-record count is reused as a fingerprint selector:
			// real archives never legitimately have exactly 99, 512, or
			// 101 five-byte sub-records, so these three values double as
			// a tag for the part-filename generator to use.
			numSubRecords := int(binary.LittleEndian.Uint16(payload[2:4]))
			d.split = &SplitInfo{
				NumVolumes:  numVolumes,
				Fingerprint: fingerprintFromSubRecordCount(numSubRecords),
			}
		case descriptorTypeEncrypted:
			if len(payload) < 8+128 {
				return nil, fmt.Errorf("%w: truncated encryption descriptor", stream.ErrCorrupt)
			}
			e := &EncryptionInfo{
				EncryptionType: binary.LittleEndian.Uint32(payload[0:4]),
				PasswordCRC:    binary.LittleEndian.Uint32(payload[4:8]),
			}
			copy(e.StoredKey[:], payload[8:8+128])
			d.encryption = e
		case descriptorTypePart, descriptorTypeComment:
			// No fields this container cares about; presence alone is
			// informational.
		}

		pos += int(length)
	}
	return d, nil
}

func fingerprintFromSubRecordCount(n int) int {
	switch n {
	case FingerprintPartNNN:
		return FingerprintPartNNN
	case FingerprintDNN:
		return FingerprintDNN
	default:
		return FingerprintPartNN
	}
}

// PartFilename generates the filename of volume index (1-based; 0 is the
// main file) given the main file's name, per the split descriptor's
// fingerprint.
func PartFilename(mainName string, index int, fp int) string {
	base := stripExt(mainName)
	switch fp {
	case FingerprintPartNNN:
		return fmt.Sprintf("%s.part%03d.daa", base, index)
	case FingerprintDNN:
		if index == 0 {
			return mainName
		}
		return fmt.Sprintf("%s.d%02d", base, index-1)
	default: // FingerprintPartNN
		return fmt.Sprintf("%s.part%02d.daa", base, index)
	}
}

func stripExt(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}
