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

package stream

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// FileStream is the bottom-of-chain Stream backed by a real (or virtual,
// for tests) filesystem file, opened through an afero.Fs so that the same
// code path serves production OS files and in-memory test fixtures.
type FileStream struct {
	fs       afero.Fs
	file     afero.File
	filename string
	writable bool
}

// OpenFile opens filename on fs for reading, and for writing too if
// writable is set. filename is retained verbatim as the stream's canonical
// name for stream-cache keying.
func OpenFile(fs afero.Fs, filename string, writable bool) (*FileStream, error) {
	var f afero.File
	var err error
	if writable {
		f, err = fs.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0o644)
	} else {
		f, err = fs.Open(filename)
	}
	if err != nil {
		return nil, fmt.Errorf("open file stream %q: %w", filename, err)
	}
	return &FileStream{fs: fs, file: f, filename: filename, writable: writable}, nil
}

func (fstream *FileStream) Read(p []byte) (int, error) { return fstream.file.Read(p) }

func (fstream *FileStream) Write(p []byte) (int, error) {
	if !fstream.writable {
		return 0, ErrReadOnly
	}
	return fstream.file.Write(p)
}

func (fstream *FileStream) Seek(offset int64, whence int) (int64, error) {
	return fstream.file.Seek(offset, whence)
}

func (fstream *FileStream) Tell() (int64, error) {
	return fstream.file.Seek(0, io.SeekCurrent)
}

func (fstream *FileStream) IsWritable() bool { return fstream.writable }

func (fstream *FileStream) Filename() string { return fstream.filename }

// Fs returns the afero.Fs backing this stream, so filter streams that need
// to open sibling files (split-volume parts, side-car indexes) can reuse
// the same filesystem rather than hardcoding the OS one.
func (fstream *FileStream) Fs() afero.Fs { return fstream.fs }

func (fstream *FileStream) Close() error { return fstream.file.Close() }
