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

package cdtext

import (
	"bytes"
	"testing"

	"mirage/internal/crc"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewEncoder()
	if err := enc.SetBlockInfo(0, 9, 0, 0); err != nil {
		t.Fatalf("SetBlockInfo: %v", err)
	}
	if err := enc.AddData(9, PackTitle, 1, []byte("HELLO\x00")); err != nil {
		t.Fatalf("AddData: %v", err)
	}
	if err := enc.AddData(9, PackTitle, 2, []byte("WORLD\x00")); err != nil {
		t.Fatalf("AddData: %v", err)
	}

	buf := enc.Encode()
	if len(buf)%packLen != 0 {
		t.Fatalf("encoded buffer length %d is not a multiple of %d", len(buf), packLen)
	}

	dec, err := NewDecoder(buf)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	code, _, _, err := dec.BlockInfo(0)
	if err != nil {
		t.Fatalf("BlockInfo: %v", err)
	}
	if code != 9 {
		t.Fatalf("got language code %d, want 9", code)
	}

	var got []string
	err = dec.GetData(0, func(code int, packType byte, track byte, data []byte) bool {
		if code != 9 || packType != PackTitle {
			t.Fatalf("unexpected record code=%d type=%#x", code, packType)
		}
		got = append(got, string(bytes.TrimRight(data, "\x00")))
		return true
	})
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if len(got) != 2 || got[0] != "HELLO" || got[1] != "WORLD" {
		t.Fatalf("got records %v, want [HELLO WORLD]", got)
	}
}

func TestAddDataUnknownLanguageIsError(t *testing.T) {
	enc := NewEncoder()
	if err := enc.AddData(9, PackTitle, 1, []byte("X\x00")); err == nil {
		t.Fatalf("expected error for unregistered language code")
	}
}

func TestSetBlockInfoInvalidBlock(t *testing.T) {
	enc := NewEncoder()
	if err := enc.SetBlockInfo(8, 9, 0, 0); err == nil {
		t.Fatalf("expected error for block number 8 (>= 8 is invalid)")
	}
	if err := enc.SetBlockInfo(7, 9, 0, 0); err != nil {
		t.Fatalf("block 7 should be valid: %v", err)
	}
}

func TestPackCRCIsVerifiable(t *testing.T) {
	enc := NewEncoder()
	_ = enc.SetBlockInfo(0, 9, 0, 0)
	_ = enc.AddData(9, PackTitle, 1, []byte("X\x00"))
	buf := enc.Encode()

	for i := 0; i+packLen <= len(buf); i += packLen {
		p := unmarshalPack(buf[i : i+packLen])
		marshaled := p.marshal()
		if !bytes.Equal(marshaled[:], buf[i:i+packLen]) {
			t.Fatalf("pack %d did not round-trip through marshal/unmarshal", i/packLen)
		}
		sum := crc.CRC16(buf[i : i+16])
		if buf[i+16] != byte(sum>>8) || buf[i+17] != byte(sum) {
			t.Fatalf("pack %d CRC mismatch", i/packLen)
		}
	}
}

func TestMultiBlockRoundTrip(t *testing.T) {
	enc := NewEncoder()
	_ = enc.SetBlockInfo(0, 9, 0, 0)  // English
	_ = enc.SetBlockInfo(1, 17, 1, 0) // some other language code

	_ = enc.AddData(9, PackTitle, 1, []byte("ALBUM ONE\x00"))
	_ = enc.AddData(17, PackTitle, 1, []byte("ALBUM UNO\x00"))

	buf := enc.Encode()
	dec, err := NewDecoder(buf)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	code0, _, _, err := dec.BlockInfo(0)
	if err != nil || code0 != 9 {
		t.Fatalf("block 0: code=%d err=%v", code0, err)
	}
	code1, _, _, err := dec.BlockInfo(1)
	if err != nil || code1 != 17 {
		t.Fatalf("block 1: code=%d err=%v", code1, err)
	}

	var block0Data, block1Data string
	_ = dec.GetData(0, func(_ int, _ byte, _ byte, data []byte) bool {
		block0Data = string(bytes.TrimRight(data, "\x00"))
		return true
	})
	_ = dec.GetData(1, func(_ int, _ byte, _ byte, data []byte) bool {
		block1Data = string(bytes.TrimRight(data, "\x00"))
		return true
	})
	if block0Data != "ALBUM ONE" || block1Data != "ALBUM UNO" {
		t.Fatalf("got block0=%q block1=%q", block0Data, block1Data)
	}
}
