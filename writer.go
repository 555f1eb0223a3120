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
)

// FragmentRole tells a Writer what kind of data a newly created Fragment
// will carry, so it can pick the right stream layout and padding.
type FragmentRole int

// Fragment roles a Writer may be asked to create.
const (
	FragmentRoleData FragmentRole = iota
	FragmentRoleAudioData
	FragmentRolePregap
	FragmentRolePostgap
)

func (r FragmentRole) String() string {
	switch r {
	case FragmentRoleData:
		return "Data"
	case FragmentRoleAudioData:
		return "AudioData"
	case FragmentRolePregap:
		return "Pregap"
	case FragmentRolePostgap:
		return "Postgap"
	default:
		return "Unknown"
	}
}

// WriterInfo describes a registered Writer: its identity and version, for
// diagnostic listing, mirroring ParserInfo.
type WriterInfo struct {
	ID          string
	Name        string
	Version     string
	Author      string
	Description string
}

// Writer is an image-producing format back-end: given a destination
// filename it opens (or creates) a Disc to populate, hands out Fragments
// for the caller to fill with sector data as tracks are laid out, and
// finalizes whatever on-disk table of contents or index the format
// requires once every track has been written.
type Writer interface {
	Info() WriterInfo
	OpenImage(ctx *Context, filename string) (*Disc, error)
	CreateFragment(session, track int, role FragmentRole) (*Fragment, error)
	FinalizeImage() error
}

var (
	writerRegistryMu sync.Mutex
	writerRegistry   []Writer
)

// RegisterWriter adds w to the set of writers discoverable via Writers,
// mirroring RegisterParser.
func RegisterWriter(w Writer) {
	writerRegistryMu.Lock()
	defer writerRegistryMu.Unlock()
	writerRegistry = append(writerRegistry, w)
}

// Writers returns the registered writers' info, sorted by ID.
func Writers() []WriterInfo {
	writerRegistryMu.Lock()
	ws := make([]Writer, len(writerRegistry))
	copy(ws, writerRegistry)
	writerRegistryMu.Unlock()

	infos := make([]WriterInfo, len(ws))
	for i, w := range ws {
		infos[i] = w.Info()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
