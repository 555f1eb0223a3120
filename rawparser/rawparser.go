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

// Package rawparser is a minimal single-file, single-track front end for
// headerless raw CD sector dumps. It exists to exercise the Parser
// registration contract end-to-end in tests; it is not a general-purpose
// image format (no multi-track cue sheets, no CD-TEXT, no subchannel).
package rawparser

import (
	"path/filepath"
	"strings"

	"mirage"
	"mirage/sector"
	"mirage/stream"
)

const (
	sectorSizeMode1    = 2048
	sectorSizeRaw      = 2352
	defaultStartSector = -150
)

var suffixKinds = map[string]sector.Kind{
	".iso": sector.Mode1,
	".bin": sector.Mode1,
	".raw": sector.Mode1,
	".img": sector.Mode1,
	".cda": sector.Audio,
}

// Parser implements mirage.Parser for headerless raw images.
type Parser struct{}

// New constructs a rawparser.Parser.
func New() *Parser { return &Parser{} }

// Info implements mirage.Parser.
func (p *Parser) Info() mirage.ParserInfo {
	return mirage.ParserInfo{
		ID:          "RAW",
		Name:        "Raw image parser",
		Version:     "1.0",
		Author:      "The Zaparoo Project",
		Description: "Headerless raw CD sector dumps",
		MultiFile:   false,
		Suffixes:    []string{".iso", ".bin", ".raw", ".img", ".cda"},
	}
}

// LoadImage implements mirage.Parser. It accepts a single stream whose
// size is an exact multiple of a known raw sector size (2048-byte Mode 1
// user data, or 2352-byte full sectors); anything else is declined with
// ErrCannotHandle so the dispatcher can try the next registered parser.
func (p *Parser) LoadImage(ctx *mirage.Context, streams []stream.Stream) (*mirage.Disc, error) {
	if len(streams) != 1 {
		return nil, mirage.ErrCannotHandle
	}
	main := streams[0]

	kind, ok := kindForFilename(main.Filename())
	if !ok {
		return nil, mirage.ErrCannotHandle
	}

	size, err := main.Seek(0, 2)
	if err != nil {
		return nil, mirage.ErrCannotHandle
	}

	sectorSize, ok := sectorSizeFor(kind, size)
	if !ok {
		return nil, mirage.ErrCannotHandle
	}

	disc := mirage.NewDisc()
	disc.SetMediumType(mirage.MediumTypeCD)
	disc.SetFilenames([]string{main.Filename()})
	disc.SetStartSector(defaultStartSector)

	session := mirage.NewSession()
	session.SetSessionType(mirage.SessionTypeCDROM)

	track := mirage.NewTrack(kind)
	track.SetFlags(int(mirage.TrackFlagCopyPermitted))

	fragment := mirage.NewFragment()
	fragment.SetMainStream(main)
	fragment.SetMainSize(sectorSize)
	if kind == sector.Audio {
		fragment.SetMainFormat(mirage.MainDataFormatAudio)
	} else {
		fragment.SetMainFormat(mirage.MainDataFormatData)
	}
	if err := fragment.UseRestOfFile(); err != nil {
		return nil, mirage.ErrCannotHandle
	}

	track.AddFragment(-1, fragment)
	session.AddTrackByIndex(-1, track)
	disc.AddSessionByIndex(-1, session)

	return disc, nil
}

func kindForFilename(filename string) (sector.Kind, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	kind, ok := suffixKinds[ext]
	return kind, ok
}

// sectorSizeFor picks the raw sector size that evenly divides size,
// preferring the kind's native layout (2048 for Mode 1 data, 2352 for
// audio or sync-included dumps).
func sectorSizeFor(kind sector.Kind, size int64) (int, bool) {
	if kind == sector.Audio {
		if size > 0 && size%sectorSizeRaw == 0 {
			return sectorSizeRaw, true
		}
		return 0, false
	}
	switch {
	case size > 0 && size%sectorSizeMode1 == 0:
		return sectorSizeMode1, true
	case size > 0 && size%sectorSizeRaw == 0:
		return sectorSizeRaw, true
	default:
		return 0, false
	}
}

func init() {
	mirage.RegisterParser(New())
}
