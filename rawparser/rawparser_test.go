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

package rawparser

import (
	"testing"

	"github.com/spf13/afero"

	"mirage"
)

func TestLoadImageMode1ISO(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "game.iso", make([]byte, 2048*10), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	ctx := mirage.NewContext(fs)
	disc, err := ctx.LoadImage([]string{"game.iso"})
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if disc.NumSessions() != 1 {
		t.Fatalf("expected 1 session, got %d", disc.NumSessions())
	}
	if disc.NumTracks() != 1 {
		t.Fatalf("expected 1 track, got %d", disc.NumTracks())
	}
	tr, err := disc.TrackByNumber(1)
	if err != nil {
		t.Fatalf("TrackByNumber: %v", err)
	}
	if tr.Length() != 10 {
		t.Fatalf("expected track length 10 sectors, got %d", tr.Length())
	}
}

func TestLoadImageDeclinesUnknownSuffix(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "notes.txt", []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	ctx := mirage.NewContext(fs)
	if _, err := ctx.LoadImage([]string{"notes.txt"}); err == nil {
		t.Fatalf("expected no parser to handle a .txt file")
	}
}

func TestLoadImageDeclinesMisalignedSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "bad.iso", make([]byte, 100), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	ctx := mirage.NewContext(fs)
	if _, err := ctx.LoadImage([]string{"bad.iso"}); err == nil {
		t.Fatalf("expected error for a size not aligned to any known sector size")
	}
}
