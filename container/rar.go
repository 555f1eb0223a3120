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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nwaples/rardecode/v2"
)

// RARContainer provides access to files in a RAR archive. RAR only
// supports sequential reads, so every Open reopens and re-scans the
// archive from the start.
type RARContainer struct {
	file *os.File
	path string
}

// OpenRAR opens a RAR archive for reading.
func OpenRAR(path string) (*RARContainer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open RAR archive: %w", err)
	}
	return &RARContainer{file: file, path: path}, nil
}

// List returns every file in the RAR archive.
func (r *RARContainer) List() ([]FileInfo, error) {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek RAR archive: %w", err)
	}
	reader, err := rardecode.NewReader(r.file)
	if err != nil {
		return nil, fmt.Errorf("create RAR reader: %w", err)
	}

	var files []FileInfo
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read RAR header: %w", err)
		}
		if header.IsDir {
			continue
		}
		files = append(files, FileInfo{Name: header.Name, Size: header.UnPackedSize})
	}
	return files, nil
}

// Open opens a file within the RAR archive.
func (r *RARContainer) Open(internalPath string) (io.ReadCloser, int64, error) {
	internalPath = filepath.ToSlash(internalPath)
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek RAR archive: %w", err)
	}
	reader, err := rardecode.NewReader(r.file)
	if err != nil {
		return nil, 0, fmt.Errorf("create RAR reader: %w", err)
	}

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read RAR header: %w", err)
		}
		if strings.EqualFold(header.Name, internalPath) {
			return &rarFileReader{reader: reader}, header.UnPackedSize, nil
		}
	}
	return nil, 0, FileNotFoundError{Archive: r.path, InternalPath: internalPath}
}

// OpenReaderAt opens a file and returns a buffered io.ReaderAt.
func (r *RARContainer) OpenReaderAt(internalPath string) (io.ReaderAt, int64, io.Closer, error) {
	return bufferFile(r, internalPath)
}

// Close closes the RAR archive.
func (r *RARContainer) Close() error { return r.file.Close() }

// rarFileReader adapts a rardecode.Reader (which has no Close method) to
// io.ReadCloser.
type rarFileReader struct {
	reader *rardecode.Reader
}

func (rfr *rarFileReader) Read(p []byte) (int, error) { return rfr.reader.Read(p) }
func (*rarFileReader) Close() error                   { return nil }
