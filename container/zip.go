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
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ZIPContainer provides access to files in a ZIP archive.
type ZIPContainer struct {
	reader *zip.ReadCloser
	path   string
}

// OpenZIP opens a ZIP archive for reading.
func OpenZIP(path string) (*ZIPContainer, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open ZIP archive: %w", err)
	}
	return &ZIPContainer{reader: reader, path: path}, nil
}

// List returns every file in the ZIP archive.
func (z *ZIPContainer) List() ([]FileInfo, error) {
	files := make([]FileInfo, 0, len(z.reader.File))
	for _, file := range z.reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		files = append(files, FileInfo{Name: file.Name, Size: int64(file.UncompressedSize64)})
	}
	return files, nil
}

// Open opens a file within the ZIP archive.
func (z *ZIPContainer) Open(internalPath string) (io.ReadCloser, int64, error) {
	internalPath = filepath.ToSlash(internalPath)
	for _, file := range z.reader.File {
		if strings.EqualFold(file.Name, internalPath) {
			reader, err := file.Open()
			if err != nil {
				return nil, 0, fmt.Errorf("open file in ZIP: %w", err)
			}
			return reader, int64(file.UncompressedSize64), nil
		}
	}
	return nil, 0, FileNotFoundError{Archive: z.path, InternalPath: internalPath}
}

// OpenReaderAt opens a file and returns a buffered io.ReaderAt.
func (z *ZIPContainer) OpenReaderAt(internalPath string) (io.ReaderAt, int64, io.Closer, error) {
	return bufferFile(z, internalPath)
}

// Close closes the ZIP archive.
func (z *ZIPContainer) Close() error { return z.reader.Close() }
