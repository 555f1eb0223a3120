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
	"testing"

	"mirage/internal/crc"
)

func TestFeedDataMode1Full(t *testing.T) {
	main := make([]byte, 2352)
	copy(main[0:12], syncPattern[:])
	main[15] = 1 // mode 1

	s := New(Mode1, 16)
	if err := s.FeedData(Mode1, main, nil, SubchannelNone, 0); err != nil {
		t.Fatalf("FeedData: %v", err)
	}
	if s.valid&(FieldSync|FieldHeader|FieldUserData|FieldEdcEcc) == 0 {
		t.Fatalf("expected full field set to be valid, got %b", s.valid)
	}
}

func TestGenerateSyncAndHeader(t *testing.T) {
	s := New(Mode1, 0)
	data, err := s.ExtractData(2352)
	if err != nil {
		t.Fatalf("ExtractData: %v", err)
	}
	if string(data[0:12]) != string(syncPattern[:]) {
		t.Fatalf("sync pattern mismatch: % x", data[0:12])
	}
	if data[15] != 1 {
		t.Fatalf("expected mode byte 1, got %d", data[15])
	}
}

func TestEdcEccRoundTrip(t *testing.T) {
	s := New(Mode1, 100)
	_, err := s.ExtractData(2352)
	if err != nil {
		t.Fatalf("ExtractData: %v", err)
	}
	if !s.VerifyLEC() {
		t.Fatalf("freshly synthesized EDC should verify")
	}

	// corrupt the EDC field; verification must now fail.
	s.main[0x810] ^= 0xFF
	if s.VerifyLEC() {
		t.Fatalf("corrupted EDC unexpectedly verified")
	}
}

func TestMode2Form1EdcEcc(t *testing.T) {
	s := New(Mode2Form1, 42)
	_, err := s.ExtractData(2352)
	if err != nil {
		t.Fatalf("ExtractData: %v", err)
	}
	if !s.VerifyLEC() {
		t.Fatalf("Mode2Form1 EDC should verify after synthesis")
	}
}

func TestMode2Form2NoECC(t *testing.T) {
	s := New(Mode2Form2, 7)
	if !s.VerifyLEC() {
		// triggers synthesis via VerifyLEC's own field reads? No: VerifyLEC
		// does not synthesize. Ensure data first.
	}
	_, err := s.ExtractData(2352)
	if err != nil {
		t.Fatalf("ExtractData: %v", err)
	}
	if !s.VerifyLEC() {
		t.Fatalf("Mode2Form2 EDC should verify after synthesis")
	}
}

func TestAudioSectorHasNoSyncOrHeader(t *testing.T) {
	s := New(Audio, 0)
	if _, err := s.ExtractData(2353); err == nil {
		t.Fatalf("expected error for illegal extract length")
	}
	data, err := s.ExtractData(2352)
	if err != nil {
		t.Fatalf("ExtractData: %v", err)
	}
	if len(data) != 2352 {
		t.Fatalf("expected 2352 bytes, got %d", len(data))
	}
	if string(data[0:12]) == string(syncPattern[:]) {
		t.Fatalf("audio sector unexpectedly carries a sync pattern")
	}
}

func TestFeedRawScrambledRoundTrip(t *testing.T) {
	orig := New(Mode1, 5)
	raw, err := orig.ExtractData(2352)
	if err != nil {
		t.Fatalf("ExtractData: %v", err)
	}
	rawCopy := append([]byte(nil), raw...)
	scramble(rawCopy)

	s := New(Mode1, 5)
	if err := s.FeedData(RawScrambled, rawCopy, nil, SubchannelNone, 0); err != nil {
		t.Fatalf("FeedData RawScrambled: %v", err)
	}
	if s.kind != Mode1 {
		t.Fatalf("expected resolved kind Mode1, got %v", s.kind)
	}
	for i, b := range s.main {
		if b != raw[i] {
			t.Fatalf("byte %d mismatch after unscramble: got %#x want %#x", i, b, raw[i])
		}
	}
}

func TestScrambleIsInvolution(t *testing.T) {
	buf := make([]byte, 2352)
	for i := range buf {
		buf[i] = byte(i)
	}
	orig := append([]byte(nil), buf...)
	scramble(buf)
	scramble(buf)
	for i := range buf {
		if buf[i] != orig[i] {
			t.Fatalf("scramble not involutive at byte %d", i)
		}
	}
}

func TestSubchannelQCRC(t *testing.T) {
	s := New(Mode1, 200)
	s.SetSubchannelInfo(SubchannelInfo{
		RelativeAddress: 10,
		TrackStart:      0,
		TrackNumber:     1,
		IndexNumber:     1,
	})
	q := s.ExtractSubchannel(SubchannelQ16)
	if len(q) != 16 {
		t.Fatalf("expected 16-byte Q buffer, got %d", len(q))
	}
	sum := crc.CRC16(q[0:10])
	if q[10] != byte(sum>>8) || q[11] != byte(sum) {
		t.Fatalf("Q CRC mismatch: got %02x%02x, want %04x", q[10], q[11], sum)
	}
}

func TestPSubchannelPregap(t *testing.T) {
	s := New(Mode1, 0)
	s.SetSubchannelInfo(SubchannelInfo{RelativeAddress: 5, TrackStart: 10})
	p := s.generateP()
	for _, b := range p {
		if b != 0xFF {
			t.Fatalf("expected pregap P subchannel to be all 0xFF, got %#x", b)
		}
	}

	s2 := New(Mode1, 0)
	s2.SetSubchannelInfo(SubchannelInfo{RelativeAddress: 15, TrackStart: 10})
	p2 := s2.generateP()
	for _, b := range p2 {
		if b != 0x00 {
			t.Fatalf("expected post-pregap P subchannel to be all zero, got %#x", b)
		}
	}
}

func TestSubchannelInterleaveRoundTrip(t *testing.T) {
	q := make([]byte, 12)
	for i := range q {
		q[i] = byte(i * 7)
	}
	pw := make([]byte, 96)
	interleaveChannel(chQ, q, pw)

	out := make([]byte, 12)
	deinterleaveChannel(chQ, pw, out)
	for i := range q {
		if out[i] != q[i] {
			t.Fatalf("interleave round trip mismatch at %d: got %#x want %#x", i, out[i], q[i])
		}
	}
}

func TestIllegalFeedLength(t *testing.T) {
	s := New(Mode1, 0)
	if err := s.FeedData(Mode1, make([]byte, 123), nil, SubchannelNone, 0); err == nil {
		t.Fatalf("expected error for illegal main-channel length")
	}
}

func TestFeedShapeForAllKindLengths(t *testing.T) {
	cases := []struct {
		kind   Kind
		length int
	}{
		{Audio, 2352},
		{Mode0, 2336},
		{Mode0, 2340},
		{Mode0, 2352},
		{Mode1, 2048},
		{Mode1, 2052},
		{Mode1, 2064},
		{Mode1, 2336},
		{Mode1, 2340},
		{Mode1, 2352},
		{Mode2Formless, 2336},
		{Mode2Formless, 2340},
		{Mode2Formless, 2352},
		{Mode2Form1, 2048},
		{Mode2Form1, 2056},
		{Mode2Form1, 2060},
		{Mode2Form1, 2072},
		{Mode2Form1, 2328},
		{Mode2Form1, 2336},
		{Mode2Form1, 2340},
		{Mode2Form1, 2352},
		{Mode2Form2, 2324},
		{Mode2Form2, 2328},
		{Mode2Form2, 2332},
		{Mode2Form2, 2336},
		{Mode2Form2, 2340},
		{Mode2Form2, 2348},
		{Mode2Form2, 2352},
	}
	for _, c := range cases {
		shape, ok := feedShapeFor(c.kind, c.length)
		if !ok {
			t.Errorf("feedShapeFor(%v, %d): expected a legal shape, got none", c.kind, c.length)
			continue
		}
		if shape.offset < 0 || shape.offset+c.length > 2352 {
			t.Errorf("feedShapeFor(%v, %d): offset %d doesn't fit a 2352-byte sector", c.kind, c.length, shape.offset)
		}
		if shape.real&FieldUserData == 0 {
			t.Errorf("feedShapeFor(%v, %d): every legal shape should mark user data real", c.kind, c.length)
		}

		main := make([]byte, c.length)
		s := New(c.kind, 0)
		if err := s.FeedData(c.kind, main, nil, SubchannelNone, 0); err != nil {
			t.Errorf("FeedData(%v, len=%d): %v", c.kind, c.length, err)
		}
	}
}

func TestFeedShapeForRejectsUnknownLength(t *testing.T) {
	if _, ok := feedShapeFor(Mode2Form1, 2067); ok {
		t.Fatalf("expected 2067 to be an illegal Mode2Form1 length")
	}
}
