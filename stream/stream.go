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

// Package stream implements the bottom of every image I/O chain: a seekable
// byte-stream contract (Stream), a file-backed implementation of it, and the
// FilterStream chain-of-responsibility discovery loop that lets compressed
// and obfuscated container formats present themselves as plain Streams.
package stream

import (
	"errors"
	"io"
)

// ErrCannotHandle is returned by a FilterStream's Open when the underlying
// stream is not in the format that filter recognizes. It is always
// consumed by the chain-composition loop; it never escapes to a caller.
var ErrCannotHandle = errors.New("stream: cannot handle this format")

// ErrCorrupt is returned by a FilterStream's Open when the underlying
// stream is recognizably this filter's format but fails a structural
// check (bad CRC, truncated header, and so on).
var ErrCorrupt = errors.New("stream: corrupt container")

// ErrReadOnly is returned by Write on a stream opened without write access.
var ErrReadOnly = errors.New("stream: stream is read-only")

// Stream is a named, seekable byte stream: the contract every FilterStream
// wraps and every Fragment ultimately reads through.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker

	// Tell returns the current read/write position, equivalent to
	// Seek(0, io.SeekCurrent) but without the seek-contract overhead.
	Tell() (int64, error)

	// IsWritable reports whether Write will ever succeed on this stream.
	IsWritable() bool

	// Filename returns the canonical filename this stream was opened
	// from, for use as a stream-cache key and in diagnostics.
	Filename() string

	// Close releases any underlying OS resource. Safe to call more than
	// once.
	Close() error
}

// FilterStream is a Stream that transforms another Stream: compressed
// containers, obfuscated chunk tables, and so on. It additionally exposes
// Underlying so diagnostics can walk the chain, and Open, the probe method
// the chain-composition loop calls while discovering which filters apply.
type FilterStream interface {
	Stream

	// Underlying returns the Stream this filter is wrapping.
	Underlying() Stream

	// Open attempts to interpret underlying as this filter's format. On
	// success the filter is ready to serve Read/Write/Seek over its
	// logical (decoded) size. On failure it returns
	// ErrCannotHandle (not this format; try the next filter) or
	// ErrCorrupt (this format, but malformed).
	Open(underlying Stream) error
}

// Factory constructs a fresh, unopened FilterStream instance. Registered
// factories are tried in registration order by the chain-composition loop.
type Factory func() FilterStream

var registry []registeredFilter

type registeredFilter struct {
	id      string
	factory Factory
}

// Register adds a FilterStream factory to the global chain-composition
// registry under id. Parsers and containers call this from an init()
// function, mirroring the teacher's codec registry in chd/codec.go.
func Register(id string, factory Factory) {
	registry = append(registry, registeredFilter{id: id, factory: factory})
}

// NewNamed constructs a fresh, unopened FilterStream instance of the
// factory registered under id, for building an explicit output filter
// chain by name. ok is false if no factory is registered under id.
func NewNamed(id string) (FilterStream, bool) {
	for _, rf := range registry {
		if rf.id == id {
			return rf.factory(), true
		}
	}
	return nil, false
}

// Compose repeatedly asks every registered filter to Open the current head
// of the chain, pushing the first one that accepts and restarting, until
// none accepts. This is the chain-of-responsibility discovery loop the
// Context runs when constructing an input stream.
func Compose(head Stream) (Stream, error) {
	for {
		progressed := false
		for _, rf := range registry {
			fs := rf.factory()
			err := fs.Open(head)
			switch {
			case err == nil:
				head = fs
				progressed = true
			case errors.Is(err, ErrCannotHandle):
				continue
			default:
				return nil, err
			}
			break
		}
		if !progressed {
			return head, nil
		}
	}
}
