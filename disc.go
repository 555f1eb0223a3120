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
	"encoding/binary"
	"sort"

	"mirage/sector"
)

// MediumType distinguishes the physical medium a Disc represents. Disc
// Structure accessors and DPM data are meaningful only for DVD and BD.
type MediumType int

// Medium types.
const (
	MediumTypeCD MediumType = iota
	MediumTypeDVD
	MediumTypeBD
	MediumTypeHDDVD
)

// discStructureKey packs a Disc Structure's layer and type into a single
// map key, mirroring the source's (layer << 16) | type hash.
type discStructureKey struct {
	layer int
	typ   int
}

type discStructureEntry struct {
	data []byte
}

// DPMData is a disc performance map: a table of angular positions
// (1/256ths of a rotation) sampled every resolution sectors starting at
// start, used to model a real drive's non-constant angular velocity.
type DPMData struct {
	Start      int
	Resolution int
	Entries    []uint32
}

// Disc is the root of the layout tree: a medium type, the filenames its
// image was loaded from, an ordered list of Sessions, and (for DVD/BD) a
// Disc Structure blob map and optional DPM data.
type Disc struct {
	mediumType MediumType
	filenames  []string

	firstSession int
	firstTrack   int
	startSector  int
	length       int
	tracksNumber int

	sessions []*Session

	structures   map[discStructureKey]discStructureEntry
	dvdReportCSS bool
	dpm          *DPMData

	onModified func()
}

// NewDisc constructs an empty Disc with no sessions; the caller adds at
// least one Session before the disc is usable.
func NewDisc() *Disc {
	return &Disc{
		firstSession: 1,
		firstTrack:   1,
		structures:   make(map[discStructureKey]discStructureEntry),
	}
}

// SetOnModified installs the callback invoked whenever the disc's layout
// changes (after the bottom-up pass, before the closing top-down pass).
// Intended for consumers that want to observe the fully-settled layout,
// such as a Parser finishing image construction.
func (d *Disc) SetOnModified(fn func()) { d.onModified = fn }

// SetDVDReportCSS controls whether the synthesized DVD Copyright Disc
// Structure (0x0001) reports CSS/CPPM protection as present. Mirrors the
// "dvd-report-css" Context option.
func (d *Disc) SetDVDReportCSS(report bool) { d.dvdReportCSS = report }

// commitTopDown reassigns every session's number, first-track number, and
// start sector in list order.
func (d *Disc) commitTopDown() {
	addr := d.startSector
	number := d.firstSession
	firstTrack := d.firstTrack
	for _, s := range d.sessions {
		s.SetNumber(number)
		number++
		s.SetFirstTrack(firstTrack)
		firstTrack += s.NumTracks()
		s.SetStartSector(addr)
		addr += s.Length()
	}
}

// commitBottomUp recomputes the disc's length and track count from its
// sessions, signals the modified callback, then closes the loop by running
// the top-down pass: Disc is always the root of the tree.
func (d *Disc) commitBottomUp() {
	d.length = 0
	d.tracksNumber = 0
	for _, s := range d.sessions {
		d.length += s.Length()
		d.tracksNumber += s.NumTracks()
	}

	if d.onModified != nil {
		d.onModified()
	}
	d.commitTopDown()
}

// sessionModified is wired as every session's layout-changed callback: an
// emptied session is removed (cascading its own bottom-up change);
// otherwise the disc's own bottom-up pass runs.
func (d *Disc) sessionModified(session *Session) func() {
	return func() {
		if session.NumTracks() == 0 {
			d.removeSession(session)
		} else {
			d.commitBottomUp()
		}
	}
}

func (d *Disc) removeSession(session *Session) {
	for i, s := range d.sessions {
		if s == session {
			d.sessions = append(d.sessions[:i], d.sessions[i+1:]...)
			session.SetOnLayoutChanged(nil)
			d.commitBottomUp()
			return
		}
	}
}

// SetMediumType sets the disc's medium type.
func (d *Disc) SetMediumType(mediumType MediumType) { d.mediumType = mediumType }

// MediumType returns the disc's medium type.
func (d *Disc) MediumType() MediumType { return d.mediumType }

// SetFilenames sets the list of filenames the disc's image was loaded
// from.
func (d *Disc) SetFilenames(filenames []string) {
	d.filenames = append([]string(nil), filenames...)
}

// Filenames returns the filenames the disc's image was loaded from.
func (d *Disc) Filenames() []string { return d.filenames }

// SetFirstSession sets the session number assigned to the disc's first
// session. Causes a top-down change.
func (d *Disc) SetFirstSession(firstSession int) {
	d.firstSession = firstSession
	d.commitTopDown()
}

// FirstSession returns the session number of the disc's first session.
func (d *Disc) FirstSession() int { return d.firstSession }

// SetFirstTrack sets the track number assigned to the disc's first track.
// Causes a top-down change.
func (d *Disc) SetFirstTrack(firstTrack int) {
	d.firstTrack = firstTrack
	d.commitTopDown()
}

// FirstTrack returns the track number of the disc's first track.
func (d *Disc) FirstTrack() int { return d.firstTrack }

// SetStartSector sets the disc's start sector (the sector a disc-relative
// address of 0 maps to, typically -150 to account for a CD's standard
// 2-second pregap). Causes a top-down change.
func (d *Disc) SetStartSector(startSector int) {
	d.startSector = startSector
	d.commitTopDown()
}

// StartSector returns the disc's start sector.
func (d *Disc) StartSector() int { return d.startSector }

// Length returns the disc's length in sectors, the sum of its sessions'
// lengths.
func (d *Disc) Length() int { return d.length }

// NumTracks returns the total number of tracks across all sessions.
func (d *Disc) NumTracks() int { return d.tracksNumber }

// NumSessions returns the number of sessions.
func (d *Disc) NumSessions() int { return len(d.sessions) }

// AddSessionByIndex inserts session at index (negative indices count from
// the end; out-of-range indices clamp to the nearest end). Session numbers
// are left for the following layout recalculation to assign. Causes a
// bottom-up change.
func (d *Disc) AddSessionByIndex(index int, session *Session) {
	n := len(d.sessions)
	switch {
	case index < -n:
		index = 0
	case index > n:
		index = n
	case index < 0:
		index += n + 1
	}

	session.SetOnLayoutChanged(d.sessionModified(session))

	d.sessions = append(d.sessions, nil)
	copy(d.sessions[index+1:], d.sessions[index:])
	d.sessions[index] = session

	d.commitBottomUp()
}

// AddSessionByNumber inserts session, assigning it number directly and
// keeping the session list sorted by number. Fails if a session with that
// number already exists. Causes a bottom-up change.
func (d *Disc) AddSessionByNumber(number int, session *Session) error {
	if _, err := d.SessionByNumber(number); err == nil {
		return newError(KindDisc, "session with this number already exists", nil)
	}

	session.SetNumber(number)
	session.SetOnLayoutChanged(d.sessionModified(session))

	pos := sort.Search(len(d.sessions), func(i int) bool { return d.sessions[i].Number() >= number })
	d.sessions = append(d.sessions, nil)
	copy(d.sessions[pos+1:], d.sessions[pos:])
	d.sessions[pos] = session

	d.commitBottomUp()
	return nil
}

// RemoveSessionByIndex removes the session at index. See SessionByIndex
// for index semantics.
func (d *Disc) RemoveSessionByIndex(index int) error {
	s, err := d.SessionByIndex(index)
	if err != nil {
		return err
	}
	d.removeSession(s)
	return nil
}

// RemoveSessionByNumber removes the session with the given number.
func (d *Disc) RemoveSessionByNumber(number int) error {
	s, err := d.SessionByNumber(number)
	if err != nil {
		return err
	}
	d.removeSession(s)
	return nil
}

// RemoveSession removes session from the disc. Causes a bottom-up change.
func (d *Disc) RemoveSession(session *Session) { d.removeSession(session) }

// SessionByIndex returns the session at index. Negative indices count from
// the end.
func (d *Disc) SessionByIndex(index int) (*Session, error) {
	n := len(d.sessions)
	if index < -n || index >= n {
		return nil, newError(KindDisc, "session index out of range", nil)
	}
	if index < 0 {
		index += n
	}
	return d.sessions[index], nil
}

// SessionByNumber returns the session with the given number.
func (d *Disc) SessionByNumber(number int) (*Session, error) {
	for _, s := range d.sessions {
		if s.Number() == number {
			return s, nil
		}
	}
	return nil, newError(KindDisc, "session with this number not found", nil)
}

// SessionByAddress returns the session containing the disc-relative
// address.
func (d *Disc) SessionByAddress(address int) (*Session, error) {
	if address < d.startSector || address >= d.startSector+d.length {
		return nil, newError(KindDisc, "session address out of range", nil)
	}
	for _, s := range d.sessions {
		if address >= s.StartSector() && address < s.StartSector()+s.Length() {
			return s, nil
		}
	}
	return nil, newError(KindDisc, "session containing address not found", nil)
}

// SessionByTrack returns the session containing the track with the given
// track number.
func (d *Disc) SessionByTrack(trackNumber int) (*Session, error) {
	for _, s := range d.sessions {
		if trackNumber >= s.FirstTrack() && trackNumber < s.FirstTrack()+s.NumTracks() {
			return s, nil
		}
	}
	return nil, newError(KindDisc, "session with this track not found", nil)
}

// Sessions returns the disc's sessions in order. The returned slice must
// not be modified.
func (d *Disc) Sessions() []*Session { return d.sessions }

// SessionBefore returns the session immediately preceding session, or an
// error if session is first or not found.
func (d *Disc) SessionBefore(session *Session) (*Session, error) {
	for i, s := range d.sessions {
		if s == session {
			if i == 0 {
				return nil, newError(KindDisc, "session has no predecessor", nil)
			}
			return d.sessions[i-1], nil
		}
	}
	return nil, newError(KindDisc, "session not found on disc", nil)
}

// SessionAfter returns the session immediately following session, or an
// error if session is last or not found.
func (d *Disc) SessionAfter(session *Session) (*Session, error) {
	for i, s := range d.sessions {
		if s == session {
			if i == len(d.sessions)-1 {
				return nil, newError(KindDisc, "session has no successor", nil)
			}
			return d.sessions[i+1], nil
		}
	}
	return nil, newError(KindDisc, "session not found on disc", nil)
}

// TrackByIndex returns the track at index, counting consecutively across
// all sessions in order. Negative indices count from the end.
func (d *Disc) TrackByIndex(index int) (*Track, error) {
	n := d.tracksNumber
	if index < -n || index >= n {
		return nil, newError(KindDisc, "track index out of range", nil)
	}
	if index < 0 {
		index += n
	}
	count := 0
	for _, s := range d.sessions {
		num := s.NumTracks()
		if index < count+num {
			return s.TrackByIndex(index - count)
		}
		count += num
	}
	return nil, newError(KindDisc, "track index out of range", nil)
}

// TrackByNumber returns the track with the given track number, searching
// every session.
func (d *Disc) TrackByNumber(number int) (*Track, error) {
	for _, s := range d.sessions {
		if t, err := s.TrackByNumber(number); err == nil {
			return t, nil
		}
	}
	return nil, newError(KindDisc, "track with this number not found", nil)
}

// TrackByAddress returns the track containing the disc-relative address,
// searching every session.
func (d *Disc) TrackByAddress(address int) (*Track, error) {
	s, err := d.SessionByAddress(address)
	if err != nil {
		return nil, newError(KindDisc, "no session found for track address", err)
	}
	return s.TrackByAddress(address)
}

// Sector retrieves the sector at the disc-relative address by delegating
// to the track containing it.
func (d *Disc) Sector(address int) (*sector.Sector, error) {
	t, err := d.TrackByAddress(address)
	if err != nil {
		return nil, newError(KindDisc, "no track found for sector address", err)
	}
	return t.Sector(address, true)
}

// SetDiscStructure stores data as the Disc Structure blob identified by
// (layer, structureType). A no-op if the disc's medium type is not DVD,
// HD DVD or BD.
func (d *Disc) SetDiscStructure(layer, structureType int, data []byte) {
	if d.mediumType != MediumTypeDVD && d.mediumType != MediumTypeBD && d.mediumType != MediumTypeHDDVD {
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	d.structures[discStructureKey{layer, structureType}] = discStructureEntry{data: cp}
}

// DiscStructure retrieves the Disc Structure blob identified by (layer,
// structureType). If none was explicitly stored, a small set of structure
// types (0x0000 Physical Format Information, 0x0001 Copyright, 0x0004
// Manufacturing Information) are synthesized on demand with placeholder
// values. Fails if the disc's medium type is not DVD, HD DVD or BD.
func (d *Disc) DiscStructure(layer, structureType int) ([]byte, error) {
	if d.mediumType != MediumTypeDVD && d.mediumType != MediumTypeBD && d.mediumType != MediumTypeHDDVD {
		return nil, newError(KindDisc, "disc structures are valid only for DVD/BD media", nil)
	}
	if entry, ok := d.structures[discStructureKey{layer, structureType}]; ok {
		return entry.data, nil
	}
	if data, ok := d.generateDiscStructure(layer, structureType); ok {
		return data, nil
	}
	return nil, newError(KindDisc, "disc structure not set and cannot be synthesized", nil)
}

// generateDiscStructure synthesizes a fallback Disc Structure blob for the
// structure types that are cheap to approximate: Physical Format
// Information (a single-layer, parallel-track-path, embossed DVD-ROM
// layout spanning the disc's own length), Copyright Information (gated by
// dvdReportCSS), and an empty Manufacturing Information block.
func (d *Disc) generateDiscStructure(layer, structureType int) ([]byte, bool) {
	switch structureType {
	case 0x0000:
		buf := make([]byte, 20)
		buf[0] = 0x00<<4 | 0x05 // book type (DVD-ROM) << 4 | part version
		buf[1] = 0x00<<4 | 0x0F // disc size (120mm) << 4 | max rate
		buf[2] = 0x00<<5 | 0x00<<4 | 0x01 // num layers << 5 | track path << 4 | layer type
		buf[3] = 0x00                     // linear density << 4 | track density
		putUint24BE(buf[4:7], 0x30000)
		putUint24BE(buf[7:10], 0x30000+uint32(d.length))
		putUint24BE(buf[10:13], 0x000000)
		buf[13] = 0x00 // BCA flag
		return buf, true
	case 0x0001:
		buf := make([]byte, 8)
		if d.dvdReportCSS {
			buf[0] = 0x01 // CSS/CPPM
			buf[1] = 0x00 // playable in all regions
		}
		return buf, true
	case 0x0004:
		return make([]byte, 2048), true
	}
	return nil, false
}

func putUint24BE(dst []byte, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	copy(dst, tmp[1:4])
}

// SetDPMData installs a disc performance map spanning entries sampled
// every resolution sectors starting at start.
func (d *Disc) SetDPMData(data *DPMData) { d.dpm = data }

// DPMData returns the disc's performance map, or nil if none is set.
func (d *Disc) DPMData() *DPMData { return d.dpm }

// DPMDataForSector interpolates the angular position (in rotations) and
// angular density (in degrees per sector) at address from the disc's DPM
// table. Fails if no DPM data is set or address falls outside the table's
// span.
func (d *Disc) DPMDataForSector(address int) (angle, density float64, err error) {
	if d.dpm == nil || len(d.dpm.Entries) == 0 {
		return 0, 0, newError(KindDisc, "no DPM data set", nil)
	}
	rel := address - d.dpm.Start
	n := len(d.dpm.Entries)
	if rel < 0 || rel >= (n+1)*d.dpm.Resolution {
		return 0, 0, newError(KindDisc, "sector address out of DPM data range", nil)
	}

	idxBottom := rel / d.dpm.Resolution

	var tmpDensity float64
	switch {
	case idxBottom == 0:
		tmpDensity = float64(d.dpm.Entries[0])
	case idxBottom == n:
		// Past the last DPM entry (resolution need not divide disc
		// length evenly): reuse the density of the previous interval.
		tmpDensity = float64(d.dpm.Entries[idxBottom-1]) - float64(d.dpm.Entries[idxBottom-2])
	default:
		tmpDensity = float64(d.dpm.Entries[idxBottom]) - float64(d.dpm.Entries[idxBottom-1])
	}
	tmpDensity /= 256.0                     // hex degrees -> rotations
	tmpDensity /= float64(d.dpm.Resolution) // rotations per sector

	tmpAngle := float64(rel-idxBottom*d.dpm.Resolution) * tmpDensity
	if idxBottom > 0 {
		tmpAngle += float64(d.dpm.Entries[idxBottom-1]) / 256.0
	}

	return tmpAngle, tmpDensity * 360, nil
}
