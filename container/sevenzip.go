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

package container

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// SevenZipContainer provides access to files in a 7z archive.
type SevenZipContainer struct {
	reader *sevenzip.ReadCloser
	path   string
}

// OpenSevenZip opens a 7z archive for reading.
func OpenSevenZip(path string) (*SevenZipContainer, error) {
	reader, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open 7z archive: %w", err)
	}
	return &SevenZipContainer{reader: reader, path: path}, nil
}

// List returns every file in the 7z archive.
func (s *SevenZipContainer) List() ([]FileInfo, error) {
	files := make([]FileInfo, 0, len(s.reader.File))
	for _, file := range s.reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		files = append(files, FileInfo{Name: file.Name, Size: int64(file.UncompressedSize)})
	}
	return files, nil
}

// Open opens a file within the 7z archive.
func (s *SevenZipContainer) Open(internalPath string) (io.ReadCloser, int64, error) {
	internalPath = filepath.ToSlash(internalPath)
	for _, file := range s.reader.File {
		if strings.EqualFold(file.Name, internalPath) {
			reader, err := file.Open()
			if err != nil {
				return nil, 0, fmt.Errorf("open file in 7z: %w", err)
			}
			return reader, int64(file.UncompressedSize), nil
		}
	}
	return nil, 0, FileNotFoundError{Archive: s.path, InternalPath: internalPath}
}

// OpenReaderAt opens a file and returns a buffered io.ReaderAt.
func (s *SevenZipContainer) OpenReaderAt(internalPath string) (io.ReaderAt, int64, io.Closer, error) {
	return bufferFile(s, internalPath)
}

// Close closes the 7z archive.
func (s *SevenZipContainer) Close() error { return s.reader.Close() }
