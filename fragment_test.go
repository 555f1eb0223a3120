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

package mirage

import (
	"testing"

	"github.com/spf13/afero"

	"mirage/stream"
)

func newMemFragment(t *testing.T, mainSize int, byteCount int) (*Fragment, stream.Stream) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "main.bin", make([]byte, byteCount), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	s, err := stream.OpenFile(fs, "main.bin", true)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	f := NewFragment()
	f.SetMainStream(s)
	f.SetMainSize(mainSize)
	return f, s
}

func TestFragmentUseRestOfFile(t *testing.T) {
	f, _ := newMemFragment(t, 2352, 2352*10)
	if err := f.UseRestOfFile(); err != nil {
		t.Fatalf("UseRestOfFile: %v", err)
	}
	if f.Length() != 10 {
		t.Fatalf("expected length 10, got %d", f.Length())
	}
}

func TestFragmentUseRestOfFileNoStream(t *testing.T) {
	f := NewFragment()
	if err := f.UseRestOfFile(); err == nil {
		t.Fatalf("expected error with no main stream set")
	}
}

func TestFragmentReadMainDataRoundTrip(t *testing.T) {
	f, _ := newMemFragment(t, 16, 16*4)
	payload := []byte("0123456789ABCDEF")
	if err := f.WriteMainData(2, payload); err != nil {
		t.Fatalf("WriteMainData: %v", err)
	}
	got, err := f.ReadMainData(2)
	if err != nil {
		t.Fatalf("ReadMainData: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("round trip mismatch: got %q want %q", got, payload)
	}
}

func TestFragmentNullMainReadsAsZero(t *testing.T) {
	f := NewFragment()
	f.SetMainSize(2352)
	got, err := f.ReadMainData(0)
	if err != nil {
		t.Fatalf("ReadMainData on NULL fragment: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil data from a NULL fragment, got %d bytes", len(got))
	}
}

func TestFragmentAudioSwapByteOrder(t *testing.T) {
	f, _ := newMemFragment(t, 4, 4)
	f.SetMainFormat(MainDataFormatAudioSwap)
	if err := f.WriteMainData(0, []byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatalf("WriteMainData: %v", err)
	}
	got, err := f.ReadMainData(0)
	if err != nil {
		t.Fatalf("ReadMainData: %v", err)
	}
	want := []byte{0x02, 0x01, 0x04, 0x03}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got 0x%02x want 0x%02x", i, got[i], want[i])
		}
	}
}

func TestFragmentSubchannelNormalizesToInterleavedPW(t *testing.T) {
	fs := afero.NewMemMapFs()
	raw := make([]byte, 2352+96)
	// Mark the subchannel region (internal, appended after main data) with
	// a recognizable pattern in the synthetic interleaved-PW case.
	if err := afero.WriteFile(fs, "main.bin", raw, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	s, err := stream.OpenFile(fs, "main.bin", true)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	f := NewFragment()
	f.SetMainStream(s)
	f.SetMainSize(2352)
	f.SetSubchannelSize(96)
	f.SetSubchannelFormat(SubchannelDataFormatInternal | SubchannelDataFormatPW96Interleaved)

	payload := make([]byte, 96)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := f.WriteSubchannelData(0, payload); err != nil {
		t.Fatalf("WriteSubchannelData: %v", err)
	}
	got, err := f.ReadSubchannelData(0)
	if err != nil {
		t.Fatalf("ReadSubchannelData: %v", err)
	}
	if len(got) != 96 {
		t.Fatalf("expected 96 bytes of normalized subchannel, got %d", len(got))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d: got 0x%02x want 0x%02x", i, got[i], payload[i])
		}
	}
}

func TestFragmentNoSubchannelReturnsNil(t *testing.T) {
	f, _ := newMemFragment(t, 2352, 2352)
	got, err := f.ReadSubchannelData(0)
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) with no subchannel, got (%v, %v)", got, err)
	}
}
