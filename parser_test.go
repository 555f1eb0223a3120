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

type stubParser struct {
	id      string
	disc    *Disc
	err     error
	invoked bool
}

func (p *stubParser) Info() ParserInfo { return ParserInfo{ID: p.id} }

func (p *stubParser) LoadImage(ctx *Context, streams []stream.Stream) (*Disc, error) {
	p.invoked = true
	return p.disc, p.err
}

func TestLoadImageTriesNextParserOnCannotHandle(t *testing.T) {
	saved := parserRegistry
	defer func() { parserRegistry = saved }()
	parserRegistry = nil

	declines := &stubParser{id: "declines", err: ErrCannotHandle}
	accepts := &stubParser{id: "accepts", disc: NewDisc()}
	RegisterParser(declines)
	RegisterParser(accepts)

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "image.bin", []byte("data"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	ctx := NewContext(fs)

	disc, err := ctx.LoadImage([]string{"image.bin"})
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if disc == nil {
		t.Fatalf("expected a disc from the accepting parser")
	}
	if !declines.invoked || !accepts.invoked {
		t.Fatalf("expected both parsers to be tried")
	}
}

func TestLoadImagePropagatesNonCannotHandleError(t *testing.T) {
	saved := parserRegistry
	defer func() { parserRegistry = saved }()
	parserRegistry = nil

	boom := newError(KindParser, "corrupt header", nil)
	failing := &stubParser{id: "failing", err: boom}
	neverReached := &stubParser{id: "never-reached", disc: NewDisc()}
	RegisterParser(failing)
	RegisterParser(neverReached)

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "image.bin", []byte("data"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	ctx := NewContext(fs)

	if _, err := ctx.LoadImage([]string{"image.bin"}); err != boom {
		t.Fatalf("expected the propagated error, got %v", err)
	}
	if neverReached.invoked {
		t.Fatalf("expected dispatch to stop at the first non-CannotHandle error")
	}
}

func TestLoadImageNoParserHandles(t *testing.T) {
	saved := parserRegistry
	defer func() { parserRegistry = saved }()
	parserRegistry = nil

	RegisterParser(&stubParser{id: "declines", err: ErrCannotHandle})

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "image.bin", []byte("data"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	ctx := NewContext(fs)

	if _, err := ctx.LoadImage([]string{"image.bin"}); err == nil {
		t.Fatalf("expected ErrNoParser when every parser declines")
	}
}
