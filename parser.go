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
	"sort"
	"sync"

	"mirage/stream"
)

// ParserInfo describes a registered Parser: its identity, version, and the
// filename suffixes it claims to recognize. Suffixes are advisory only —
// LoadImage always tries every registered parser regardless of filename,
// in registration order, and never consults this field to skip one.
type ParserInfo struct {
	ID          string
	Name        string
	Version     string
	Author      string
	Description string
	MultiFile   bool
	Suffixes    []string
}

// Parser is a format front-end: given a Context and the already-opened
// input streams for an image's filename(s), it either populates and
// returns a Disc or reports why it declined. A parser that does not
// recognize the image must return ErrCannotHandle so LoadImage's dispatch
// loop moves on to the next registered parser; any other error aborts the
// whole load.
type Parser interface {
	Info() ParserInfo
	LoadImage(ctx *Context, streams []stream.Stream) (*Disc, error)
}

var (
	parserRegistryMu sync.Mutex
	parserRegistry   []Parser
)

// RegisterParser adds p to the set of parsers LoadImage tries, in
// registration order. Intended to be called from a format package's
// init(), mirroring the way the source enumerates every MIRAGE_TYPE_PARSER
// subclass at library start-up.
func RegisterParser(p Parser) {
	parserRegistryMu.Lock()
	defer parserRegistryMu.Unlock()
	parserRegistry = append(parserRegistry, p)
}

// registeredParsers returns a snapshot of the current parser registry.
func registeredParsers() []Parser {
	parserRegistryMu.Lock()
	defer parserRegistryMu.Unlock()
	out := make([]Parser, len(parserRegistry))
	copy(out, parserRegistry)
	return out
}

// LoadImage opens every filename as an input stream (composing the
// registered FilterStream chain on top of each, via CreateInputStream),
// then tries each registered Parser in turn against the resulting
// streams. The first parser whose LoadImage returns a non-nil Disc wins.
// A parser reporting ErrCannotHandle is skipped silently; any other error
// aborts the whole call and is returned as-is. If every parser declines,
// ErrNoParser is returned.
func (c *Context) LoadImage(filenames []string) (*Disc, error) {
	if len(filenames) == 0 {
		return nil, newError(KindImageFile, "no image files given", nil)
	}

	streams := make([]stream.Stream, len(filenames))
	for i, filename := range filenames {
		s, err := c.CreateInputStream(filename)
		if err != nil {
			return nil, err
		}
		streams[i] = s
	}

	for _, p := range registeredParsers() {
		disc, err := p.LoadImage(c, streams)
		if disc != nil {
			return disc, nil
		}
		if err == nil {
			continue
		}
		if isCannotHandle(err) {
			continue
		}
		return nil, err
	}

	return nil, newError(KindParser, "no parser can handle the image file", ErrNoParser)
}

func isCannotHandle(err error) bool {
	for err != nil {
		if err == ErrCannotHandle {
			return true
		}
		if e, ok := err.(*Error); ok {
			if e.Kind == KindCannotHandle {
				return true
			}
			err = e.Err
			continue
		}
		break
	}
	return false
}

// Parsers returns the registered parsers' info, sorted by ID, for
// diagnostic listing (e.g. a CLI front-end's "--list-parsers" flag).
func Parsers() []ParserInfo {
	ps := registeredParsers()
	infos := make([]ParserInfo, len(ps))
	for i, p := range ps {
		infos[i] = p.Info()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
