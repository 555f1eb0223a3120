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
	"path/filepath"
	"strings"
)

// imageExtensions are file extensions that unambiguously name a disc
// image or its side-car description, recognized without header analysis.
var imageExtensions = map[string]bool{
	".iso": true,
	".bin": true,
	".img": true,
	".raw": true,
	".mdf": true,
	".mds": true,
	".nrg": true,
	".cdi": true,
	".ccd": true,
	".cue": true,
	".toc": true,
	".daa": true,
	".gbi": true,
}

// IsImageFile reports whether filename has a recognized disc image
// extension.
func IsImageFile(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SelectImageFile picks the single archive member that should be treated
// as the disc image: if the archive holds exactly one non-directory
// member, that member wins regardless of its extension (the common case
// of a single .iso or .bin zipped up under an unrelated name); otherwise
// the first member with a recognized image extension wins. An archive
// with several members and none recognized is rejected rather than
// guessed at.
func SelectImageFile(c Container) (string, error) {
	files, err := c.List()
	if err != nil {
		return "", err
	}

	if len(files) == 1 {
		return files[0].Name, nil
	}

	for _, file := range files {
		if IsImageFile(file.Name) {
			return file.Name, nil
		}
	}

	if len(files) == 0 {
		return "", NoImageFileError{}
	}
	return "", AmbiguousImageError{Count: len(files)}
}
