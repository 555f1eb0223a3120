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

// Index is a track-relative address at which an index number 2..99
// begins. Index 0 (pregap) and 1 (main body) are implicit and not
// represented here.
type Index struct {
	number  int
	address int
}

// Number returns the index's number, in [2, 99].
func (idx *Index) Number() int { return idx.number }

// Address returns the index's track-relative start address.
func (idx *Index) Address() int { return idx.address }
