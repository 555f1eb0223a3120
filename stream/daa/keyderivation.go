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
	"fmt"
	"hash/crc32"

	"mirage/stream"
)

// blockSize is the size of one encrypted chunk-data block.
const blockSize = 128

// keyTable is one block-size-specific substitution table: for a block of
// n bytes, tab[2*i] and tab[2*i+1] give the destination nibble slots for
// the low and high nibble of input byte i, packed as (slot<<1)|highNibble.
type keyTable [256]byte

// decryptionTables holds the 128 size-specific tables (block sizes 1..128)
// derived from one password. The container's cipher needs a distinct table
// per block length rather than a single fixed-size one, since the trailing
// partial block of a chunk is decrypted with its own short-block table.
type decryptionTables struct {
	tabs [128]keyTable
}

func buildDecryptionTables(password []byte) *decryptionTables {
	dt := &decryptionTables{}
	for n := 1; n <= 128; n++ {
		dt.tabs[n-1] = createDecryptionTable(password, n)
	}
	return dt
}

// createDecryptionTable builds the substitution table for block size num
// (d = num*2 live slots), walking a ring of slots 0..d-1 and consuming one
// on each step; the step length and starting point are both derived from
// the password bytes, cycling through them as needed.
func createDecryptionTable(pass []byte, num int) keyTable {
	var tab keyTable
	var tmp [256]int16
	for i := range tmp {
		tmp[i] = int16(i) //nolint:gosec // i < 256
	}

	d := num << 1
	passLen := len(pass)
	first := int16(0)
	if passLen > 0 {
		first = int16(int8(pass[0])) //nolint:gosec // deliberate sign-extension, matches a signed char source type
	}

	if d <= 64 {
		a := first >> 5
		if a < 0 {
			a = 0
		}
		if int(a) >= d {
			a = int16(d - 1) //nolint:gosec // d <= 64
		}
		for c := 0; c < d; c++ {
			for s := 0; s != 11; {
				a++
				if int(a) == d {
					a = 0
				}
				if tmp[a] != -1 {
					s++
				}
			}
			tab[c] = byte(a) //nolint:gosec // a stays within [0,d)
			tmp[a] = -1
		}
		return tab
	}

	a := first >> 5
	if a < 0 {
		a = 0
	}
	b := d - 32
	tmp[a+32] = -1
	tab[0] = byte(a + 32) //nolint:gosec // a+32 stays within [0,d)
	p := 1

	for s := 1; s < b; s++ {
		c := 11
		if p < passLen {
			c = int(pass[p])
			p++
			if c == 0 {
				c = 11
			}
		}
		for i := 0; i != c; {
			a++
			if int(a) == d {
				a = 32
			}
			if tmp[a] != -1 {
				i++
			}
		}
		tmp[a] = -1
		tab[s] = byte(a) //nolint:gosec // a stays within [0,d)
	}

	i := int(first) & 7
	if i == 0 {
		i = 7
	}
	for s := b; s < d; s++ {
		c := 0
		for c != i {
			a++
			if int(a) == d {
				a = 0
			}
			if tmp[a] != -1 {
				c++
			}
		}
		tmp[a] = -1
		tab[s] = byte(a) //nolint:gosec // a stays within [0,d)
	}

	for i := 0; i < d; i++ {
		tmp[i] = int16(tab[i])
	}

	secondPassStep := int(first) & 24
	if secondPassStep != 0 {
		a = 0
		for s := 0; s < d; s++ {
			c := 0
			for c != secondPassStep {
				a++
				if int(a) == d {
					a = 0
				}
				if tmp[a] != -1 {
					c++
				}
			}
			tab[s] = byte(tmp[a]) //nolint:gosec // tmp[a] holds a previously stored tab byte value
			tmp[a] = -1
		}
	}

	return tab
}

// decryptBlock substitutes each nibble of data through tab, producing a
// same-length output block.
func decryptBlock(tab *keyTable, data []byte) []byte {
	size := len(data)
	ret := make([]byte, size)
	for i := 0; i < size; i++ {
		c := data[i] & 15
		t := tab[i*2]
		if t&1 != 0 {
			c <<= 4
		}
		ret[t>>1] |= c

		c = data[i] >> 4
		t = tab[i*2+1]
		if t&1 != 0 {
			c <<= 4
		}
		ret[t>>1] |= c
	}
	return ret
}

// decryptBuffer decrypts data in place, splitting it into 128-byte blocks
// plus a residual block of size mod 128, each decoded with its own
// block-size-specific table.
func (dt *decryptionTables) decryptBuffer(data []byte) {
	blocks := len(data) / blockSize
	for i := 0; i < blocks; i++ {
		p := data[i*blockSize : (i+1)*blockSize]
		copy(p, decryptBlock(&dt.tabs[blockSize-1], p))
	}
	if rem := len(data) % blockSize; rem > 0 {
		p := data[blocks*blockSize:]
		copy(p, decryptBlock(&dt.tabs[rem-1], p))
	}
}

// verifyPassword derives the password-specific decryption tables and
// checks the password against the encryption descriptor's stored key and
// CRC, returning the tables for use on subsequent chunk reads.
func verifyPassword(enc *EncryptionInfo, password []byte) (*decryptionTables, error) {
	dt := buildDecryptionTables(password)
	key := decryptBlock(&dt.tabs[blockSize-1], enc.StoredKey[:])
	if crc32.ChecksumIEEE(key) != enc.PasswordCRC {
		return nil, fmt.Errorf("%w: incorrect password", stream.ErrCorrupt)
	}
	return dt, nil
}

// decryptChunk verifies password against enc and decrypts data in place.
func decryptChunk(enc *EncryptionInfo, password []byte, data []byte) error {
	dt, err := verifyPassword(enc, password)
	if err != nil {
		return err
	}
	dt.decryptBuffer(data)
	return nil
}
