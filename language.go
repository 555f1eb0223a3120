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

// Language holds the CD-TEXT data attached to a Track or Session under one
// language code. A Session or Track may carry at most one Language per
// code; AddLanguage enforces this.
type Language struct {
	code int
	data map[byte][]byte
}

// newLanguage constructs an empty Language for code.
func newLanguage(code int) *Language {
	return &Language{code: code, data: make(map[byte][]byte)}
}

// Code returns the language's code (ISO 639-2, e.g. 0x09 for English).
func (l *Language) Code() int { return l.code }

// SetPackData stores data under packType (one of cdtext.PackTitle and
// friends), replacing any previous value for that pack type.
func (l *Language) SetPackData(packType byte, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	l.data[packType] = cp
}

// PackData returns the data stored under packType, or nil if none was set.
func (l *Language) PackData(packType byte) []byte {
	return l.data[packType]
}

// PackTypes returns the set of pack types that have data, in no particular
// order.
func (l *Language) PackTypes() []byte {
	types := make([]byte, 0, len(l.data))
	for t := range l.data {
		types = append(types, t)
	}
	return types
}
