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

	"mirage/sector"
)

func trackOfLength(n int) *Track {
	tr := NewTrack(sector.Audio)
	tr.AddFragment(-1, fragmentOfLength(n))
	return tr
}

func TestSessionTrackTopDownNumbering(t *testing.T) {
	s := NewSession()
	s.SetFirstTrack(1)
	s.SetStartSector(0)

	s.AddTrackByIndex(-1, trackOfLength(100))
	s.AddTrackByIndex(-1, trackOfLength(200))

	t1, err := s.TrackByNumber(1)
	if err != nil || t1.StartSector() != 0 {
		t.Fatalf("expected track 1 at sector 0, got %+v err=%v", t1, err)
	}
	t2, err := s.TrackByNumber(2)
	if err != nil || t2.StartSector() != 100 {
		t.Fatalf("expected track 2 at sector 100, got %+v err=%v", t2, err)
	}
	if s.Length() != 300 {
		t.Fatalf("expected session length 300, got %d", s.Length())
	}
}

func TestSessionRemoveTrackRenumbers(t *testing.T) {
	s := NewSession()
	s.SetFirstTrack(1)

	tA := trackOfLength(50)
	tB := trackOfLength(50)
	s.AddTrackByIndex(-1, tA)
	s.AddTrackByIndex(-1, tB)

	s.RemoveTrack(tA)
	if s.NumTracks() != 1 {
		t.Fatalf("expected 1 track after removal, got %d", s.NumTracks())
	}
	remaining, err := s.TrackByNumber(1)
	if err != nil || remaining != tB {
		t.Fatalf("expected surviving track renumbered to 1, got %+v err=%v", remaining, err)
	}
}

func TestSessionAddTrackByNumberRejectsDuplicate(t *testing.T) {
	s := NewSession()
	s.SetFirstTrack(3)
	if err := s.AddTrackByNumber(3, trackOfLength(10)); err != nil {
		t.Fatalf("AddTrackByNumber: %v", err)
	}
	if err := s.AddTrackByNumber(3, trackOfLength(10)); err == nil {
		t.Fatalf("expected error adding duplicate track number")
	}
}

func TestSessionMCNSetAndGet(t *testing.T) {
	s := NewSession()
	s.SetMCN("1234567890123")
	if got := s.MCN(); got != "1234567890123" {
		t.Fatalf("unexpected MCN: %q", got)
	}
}

func TestSessionTrackByAddress(t *testing.T) {
	s := NewSession()
	s.AddTrackByIndex(-1, trackOfLength(100))
	s.AddTrackByIndex(-1, trackOfLength(100))

	tr, err := s.TrackByAddress(150)
	if err != nil {
		t.Fatalf("TrackByAddress: %v", err)
	}
	if tr.StartSector() != 100 {
		t.Fatalf("expected second track at sector 100, got %d", tr.StartSector())
	}
}
