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

func TestTrackIndexRenumberOnTrackStartChange(t *testing.T) {
	tr := NewTrack(sector.Audio)
	tr.SetTrackStart(0)

	if err := tr.AddIndex(100); err != nil {
		t.Fatalf("AddIndex(100): %v", err)
	}
	if err := tr.AddIndex(200); err != nil {
		t.Fatalf("AddIndex(200): %v", err)
	}
	if tr.NumIndices() != 2 {
		t.Fatalf("expected 2 indices, got %d", tr.NumIndices())
	}
	idx2, err := tr.IndexByNumber(0)
	if err != nil || idx2.Number() != 2 {
		t.Fatalf("expected first index numbered 2, got %+v err=%v", idx2, err)
	}

	// Raising track start past the first index drops it and renumbers the
	// survivor back down to 2.
	tr.SetTrackStart(150)
	tr.rearrangeIndices()
	if tr.NumIndices() != 1 {
		t.Fatalf("expected 1 surviving index after track start change, got %d", tr.NumIndices())
	}
	survivor, err := tr.IndexByNumber(0)
	if err != nil || survivor.Number() != 2 || survivor.Address() != 200 {
		t.Fatalf("unexpected survivor: %+v err=%v", survivor, err)
	}
}

func TestIndexByAddress(t *testing.T) {
	tr := NewTrack(sector.Audio)
	_ = tr.AddIndex(50)
	_ = tr.AddIndex(100)

	idx, err := tr.IndexByAddress(75)
	if err != nil || idx.Address() != 50 {
		t.Fatalf("expected index at 50, got %+v err=%v", idx, err)
	}

	if _, err := tr.IndexByAddress(10); err == nil {
		t.Fatalf("expected error for address before any index")
	}
}
