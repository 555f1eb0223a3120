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

	"mirage/internal/msf"
	"mirage/sector"
)

func fragmentOfLength(n int) *Fragment {
	f := NewFragment()
	f.SetLength(n)
	return f
}

func TestTrackFragmentBottomUpLength(t *testing.T) {
	tr := NewTrack(sector.Mode1)
	tr.AddFragment(-1, fragmentOfLength(10))
	tr.AddFragment(-1, fragmentOfLength(20))

	if tr.Length() != 30 {
		t.Fatalf("expected track length 30, got %d", tr.Length())
	}
	if tr.NumFragments() != 2 {
		t.Fatalf("expected 2 fragments, got %d", tr.NumFragments())
	}

	f0, err := tr.FragmentByIndex(0)
	if err != nil || f0.Address() != 0 {
		t.Fatalf("expected first fragment at address 0, got %+v err=%v", f0, err)
	}
	f1, err := tr.FragmentByIndex(1)
	if err != nil || f1.Address() != 10 {
		t.Fatalf("expected second fragment at address 10, got %+v err=%v", f1, err)
	}
}

func TestTrackFragmentLengthChangePropagates(t *testing.T) {
	tr := NewTrack(sector.Mode1)
	a := fragmentOfLength(10)
	b := fragmentOfLength(20)
	tr.AddFragment(-1, a)
	tr.AddFragment(-1, b)

	// Growing the first fragment must push the second one's address
	// forward and recompute the track's total length: the bottom-up
	// invariant.
	a.SetLength(15)
	if tr.Length() != 35 {
		t.Fatalf("expected track length 35 after fragment grew, got %d", tr.Length())
	}
	if b.Address() != 15 {
		t.Fatalf("expected second fragment pushed to address 15, got %d", b.Address())
	}
}

func TestTrackRemoveFragment(t *testing.T) {
	tr := NewTrack(sector.Mode1)
	a := fragmentOfLength(10)
	tr.AddFragment(-1, a)
	tr.AddFragment(-1, fragmentOfLength(20))

	tr.RemoveFragment(a)
	if tr.NumFragments() != 1 {
		t.Fatalf("expected 1 fragment after removal, got %d", tr.NumFragments())
	}
	if tr.Length() != 20 {
		t.Fatalf("expected track length 20 after removal, got %d", tr.Length())
	}

	remaining, err := tr.FragmentByIndex(0)
	if err != nil || remaining.Address() != 0 {
		t.Fatalf("expected remaining fragment renumbered to address 0, got %+v err=%v", remaining, err)
	}
}

func TestTrackFragmentByAddress(t *testing.T) {
	tr := NewTrack(sector.Mode1)
	tr.AddFragment(-1, fragmentOfLength(10))
	tr.AddFragment(-1, fragmentOfLength(20))

	f, err := tr.FragmentByAddress(15)
	if err != nil || f.Address() != 10 {
		t.Fatalf("expected fragment at address 10 to contain 15, got %+v err=%v", f, err)
	}

	if _, err := tr.FragmentByAddress(100); err == nil {
		t.Fatalf("expected error for out-of-range address")
	}
}

func TestTrackCTLRoundTrip(t *testing.T) {
	tr := NewTrack(sector.Mode1)
	tr.SetCTL(0x0B) // four-channel | copy permitted | preemphasis; data bit comes from mode
	if tr.Flags()&int(TrackFlagCopyPermitted) == 0 {
		t.Fatalf("expected copy-permitted flag set")
	}
	if tr.Flags()&int(TrackFlagPreemphasis) == 0 {
		t.Fatalf("expected preemphasis flag set")
	}
	if ctl := tr.CTL(); ctl&0x4 == 0 {
		t.Fatalf("expected data bit in CTL for non-audio mode, got 0x%x", ctl)
	}
}

func TestTrackISRCSetAndGet(t *testing.T) {
	tr := NewTrack(sector.Audio)
	tr.SetISRC("US-S1Z-99-00001")
	if got := tr.ISRC(); got != "US-S1Z-99-00" {
		t.Fatalf("expected ISRC truncated to 12 chars, got %q", got)
	}
}

func TestTrackAddFragmentNegativeIndexClamping(t *testing.T) {
	tr := NewTrack(sector.Mode1)
	a := fragmentOfLength(5)
	b := fragmentOfLength(5)
	tr.AddFragment(-100, a) // too-negative clamps to 0 (only element so far)
	tr.AddFragment(0, b)    // insert before a
	first, _ := tr.FragmentByIndex(0)
	if first != b {
		t.Fatalf("expected fragment b first after insert-at-0")
	}
}

// TestTrackSectorSynthesizesSubchannel exercises Track.Sector through a real
// Session/Track/Fragment wiring: the owning session's MCN and the track's
// number/index/CTL must reach the synthesized Q subchannel, not a zero-value
// SubchannelInfo.
func TestTrackSectorSynthesizesSubchannel(t *testing.T) {
	const mcn = "1234567890123"

	sess := NewSession()
	sess.SetMCN(mcn)

	tr := NewTrack(sector.Mode1)
	tr.SetTrackStart(10)
	if err := tr.AddIndex(50); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}

	f, _ := newMemFragment(t, 2352, 2352*100)
	if err := f.UseRestOfFile(); err != nil {
		t.Fatalf("UseRestOfFile: %v", err)
	}
	tr.AddFragment(-1, f)
	if tr.Length() != 100 {
		t.Fatalf("expected track length 100, got %d", tr.Length())
	}

	sess.AddTrackByIndex(-1, tr)
	wantCTL := uint8(tr.CTL())

	// Within the pregap: index 0, P channel all 0xFF.
	pregap, err := tr.Sector(5, false)
	if err != nil {
		t.Fatalf("Sector(5): %v", err)
	}
	q := pregap.ExtractSubchannel(sector.SubchannelQ16)
	if got := msf.BCDToHex(q[2]); got != 0 {
		t.Fatalf("expected index 0 in pregap, got %d", got)
	}
	if got := msf.BCDToHex(q[1]); got != uint8(tr.Number()) {
		t.Fatalf("expected track number %d in pregap Q, got %d", tr.Number(), got)
	}
	if q[0]>>4 != wantCTL {
		t.Fatalf("expected CTL %#x in pregap Q, got %#x", wantCTL, q[0]>>4)
	}

	// rel%100==25 with a real MCN: Q must carry mode 2 and decode back to it.
	mcnSector, err := tr.Sector(25, false)
	if err != nil {
		t.Fatalf("Sector(25): %v", err)
	}
	q = mcnSector.ExtractSubchannel(sector.SubchannelQ16)
	if q[0]&0x0F != 2 {
		t.Fatalf("expected Q mode 2 at rel=25, got mode %d", q[0]&0x0F)
	}
	var packed [7]byte
	copy(packed[:], q[1:8])
	got := msf.DecodeMCN(packed)
	if string(got[:]) != mcn {
		t.Fatalf("expected decoded MCN %q, got %q", mcn, string(got[:]))
	}

	// Past the added index (address 50): index number 2, still index 1
	// just before it.
	beforeIdx, err := tr.Sector(49, false)
	if err != nil {
		t.Fatalf("Sector(49): %v", err)
	}
	q = beforeIdx.ExtractSubchannel(sector.SubchannelQ16)
	if got := msf.BCDToHex(q[2]); got != 1 {
		t.Fatalf("expected index 1 just before the added index, got %d", got)
	}

	afterIdx, err := tr.Sector(60, false)
	if err != nil {
		t.Fatalf("Sector(60): %v", err)
	}
	q = afterIdx.ExtractSubchannel(sector.SubchannelQ16)
	if got := msf.BCDToHex(q[2]); got != 2 {
		t.Fatalf("expected index 2 past the added index, got %d", got)
	}
}
