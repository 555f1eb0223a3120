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

	"mirage/internal/msf"
	"mirage/sector"
)

// SessionType distinguishes the session types a disc layout can carry.
type SessionType int

// Session types.
const (
	SessionTypeCDDA SessionType = iota
	SessionTypeCDROM
	SessionTypeCDI
	SessionTypeCDROMXA
)

// Session represents one session of a Disc: an ordered list of Tracks, the
// session's MCN (if present), and its CD-TEXT languages. A Session is
// attached to a Disc via Disc.AddSessionByIndex/AddSessionByNumber, which
// wires its layout-changed callback.
type Session struct {
	number      int
	sessionType SessionType
	firstTrack  int
	startSector int
	length      int

	mcn        string
	mcnEncoded bool

	tracks []*Track

	languages     map[int]*Language
	languageOrder []int

	onLayoutChanged func()
}

// NewSession constructs an empty Session.
func NewSession() *Session {
	return &Session{languages: make(map[int]*Language)}
}

// SetOnLayoutChanged installs the callback invoked on a bottom-up layout
// change. Intended for internal use by the owning Disc.
func (s *Session) SetOnLayoutChanged(fn func()) { s.onLayoutChanged = fn }

// commitTopDown reassigns every track's number and disc-relative start
// sector in list order.
func (s *Session) commitTopDown() {
	addr := s.startSector
	number := s.firstTrack
	for _, t := range s.tracks {
		t.SetNumber(number)
		number++
		t.SetStartSector(addr)
		addr += t.Length()
	}
}

// commitBottomUp recomputes the session's length and track count from its
// tracks, rechecks the subchannel-encoded MCN, and propagates the change to
// the parent disc; if there is no parent yet, it closes the loop itself.
func (s *Session) commitBottomUp() {
	s.length = 0
	for _, t := range s.tracks {
		s.length += t.Length()
	}

	s.checkForEncodedMCN()

	if s.onLayoutChanged != nil {
		s.onLayoutChanged()
	} else {
		s.commitTopDown()
	}
}

// trackModified is wired as every track's layout-changed callback: if the
// track's removal emptied it... no, a track cannot empty itself; this
// handler only re-triggers the session's own bottom-up pass.
func (s *Session) trackModified() {
	s.commitBottomUp()
}

// SetNumber sets the session's session number. Intended for internal use by
// Disc during layout commit.
func (s *Session) SetNumber(number int) { s.number = number }

// Number returns the session's session number.
func (s *Session) Number() int { return s.number }

// SetSessionType sets the session's type.
func (s *Session) SetSessionType(t SessionType) { s.sessionType = t }

// SessionType returns the session's type.
func (s *Session) SessionType() SessionType { return s.sessionType }

// SetFirstTrack sets the track number assigned to the session's first
// track. Intended for internal use by Disc; causes a top-down change.
func (s *Session) SetFirstTrack(firstTrack int) {
	s.firstTrack = firstTrack
	s.commitTopDown()
}

// FirstTrack returns the track number of the session's first track.
func (s *Session) FirstTrack() int { return s.firstTrack }

// SetStartSector sets the session's disc-relative start sector. Intended
// for internal use by Disc; causes a top-down change.
func (s *Session) SetStartSector(startSector int) {
	s.startSector = startSector
	s.commitTopDown()
}

// StartSector returns the session's disc-relative start sector.
func (s *Session) StartSector() int { return s.startSector }

// Length returns the session's length in sectors, the sum of its tracks'
// lengths.
func (s *Session) Length() int { return s.length }

// SetMCN sets the session's Media Catalogue Number, truncated to 13
// characters. Silently ignored if the MCN is already known to be encoded
// in one of the session's tracks' fragments' subchannel data.
func (s *Session) SetMCN(mcn string) {
	if s.mcnEncoded {
		return
	}
	if len(mcn) > 13 {
		mcn = mcn[:13]
	}
	s.mcn = mcn
}

// MCN returns the session's MCN, or "" if none is set.
func (s *Session) MCN() string { return s.mcn }

// checkForEncodedMCN scans the first 100 sectors' Q subchannel of the first
// fragment (across all tracks) carrying subchannel data for a Mode-2 Q
// block, per INF8090's requirement that MCN, if present, repeats within
// any 100 consecutive sectors.
func (s *Session) checkForEncodedMCN() {
	var fragment *Fragment
	var owner *Track
	for _, t := range s.tracks {
		if f := t.FragmentWithSubchannel(); f != nil {
			fragment, owner = f, t
			break
		}
	}
	if fragment == nil {
		s.mcnEncoded = false
		return
	}

	s.mcnEncoded = true
	s.mcn = ""

	start := fragment.Address()
	for address := start; address < start+100; address++ {
		sec, err := owner.Sector(address, false)
		if err != nil || sec == nil {
			continue
		}
		q := sec.ExtractSubchannel(sector.SubchannelQ16)
		if q == nil || len(q) < 8 || q[0]&0x0F != 0x02 {
			continue
		}
		var packed [7]byte
		copy(packed[:], q[1:8])
		mcn := msf.DecodeMCN(packed)
		s.mcn = string(mcn[:])
	}
}

// NumTracks returns the number of tracks in the session.
func (s *Session) NumTracks() int { return len(s.tracks) }

// AddTrackByIndex inserts track at index (negative indices count from the
// end; out-of-range indices clamp to the nearest end). Track numbers are
// left for the following layout recalculation to assign. Causes a
// bottom-up change.
func (s *Session) AddTrackByIndex(index int, track *Track) {
	n := len(s.tracks)
	switch {
	case index < -n:
		index = 0
	case index > n:
		index = n
	case index < 0:
		index += n + 1
	}

	track.SetOnLayoutChanged(s.trackModified)
	track.SetMCNSource(s.MCN)

	s.tracks = append(s.tracks, nil)
	copy(s.tracks[index+1:], s.tracks[index:])
	s.tracks[index] = track

	s.commitBottomUp()
}

// AddTrackByNumber inserts track, assigning it number and keeping the track
// list sorted by number. Fails if a track with that number already exists.
// Causes a bottom-up change; the layout pass that follows renumbers all
// tracks consecutively from the session's first track.
func (s *Session) AddTrackByNumber(number int, track *Track) error {
	if _, err := s.TrackByNumber(number); err == nil {
		return newError(KindSession, "track with this number already exists", nil)
	}

	track.SetNumber(number)
	track.SetOnLayoutChanged(s.trackModified)
	track.SetMCNSource(s.MCN)

	pos := sort.Search(len(s.tracks), func(i int) bool { return s.tracks[i].Number() >= number })
	s.tracks = append(s.tracks, nil)
	copy(s.tracks[pos+1:], s.tracks[pos:])
	s.tracks[pos] = track

	s.commitBottomUp()
	return nil
}

// RemoveTrackByIndex removes the track at index. See TrackByIndex for
// index semantics.
func (s *Session) RemoveTrackByIndex(index int) error {
	t, err := s.TrackByIndex(index)
	if err != nil {
		return err
	}
	s.RemoveTrack(t)
	return nil
}

// RemoveTrackByNumber removes the track with the given number.
func (s *Session) RemoveTrackByNumber(number int) error {
	t, err := s.TrackByNumber(number)
	if err != nil {
		return err
	}
	s.RemoveTrack(t)
	return nil
}

// RemoveTrack removes track from the session. Causes a bottom-up change.
// If the removal empties the session, the owning Disc (if any) removes the
// session in turn, cascading the bottom-up change.
func (s *Session) RemoveTrack(track *Track) {
	for i, t := range s.tracks {
		if t == track {
			s.tracks = append(s.tracks[:i], s.tracks[i+1:]...)
			track.SetOnLayoutChanged(nil)
			s.commitBottomUp()
			return
		}
	}
}

// TrackByIndex returns the track at index. Negative indices count from the
// end.
func (s *Session) TrackByIndex(index int) (*Track, error) {
	n := len(s.tracks)
	if index < -n || index >= n {
		return nil, newError(KindSession, "track index out of range", nil)
	}
	if index < 0 {
		index += n
	}
	return s.tracks[index], nil
}

// TrackByNumber returns the track with the given number.
func (s *Session) TrackByNumber(number int) (*Track, error) {
	for _, t := range s.tracks {
		if t.Number() == number {
			return t, nil
		}
	}
	return nil, newError(KindSession, "track with this number not found", nil)
}

// TrackByAddress returns the track containing the disc-relative address.
func (s *Session) TrackByAddress(address int) (*Track, error) {
	if address < s.startSector || address >= s.startSector+s.length {
		return nil, newError(KindSession, "track address out of range", nil)
	}
	for _, t := range s.tracks {
		if address >= t.StartSector() && address < t.StartSector()+t.Length() {
			return t, nil
		}
	}
	return nil, newError(KindSession, "track containing address not found", nil)
}

// Tracks returns the session's tracks in order. The returned slice must
// not be modified.
func (s *Session) Tracks() []*Track { return s.tracks }

// TrackBefore returns the track immediately preceding track in the list,
// or an error if track is first or not found.
func (s *Session) TrackBefore(track *Track) (*Track, error) {
	for i, t := range s.tracks {
		if t == track {
			if i == 0 {
				return nil, newError(KindSession, "track has no predecessor", nil)
			}
			return s.tracks[i-1], nil
		}
	}
	return nil, newError(KindSession, "track not found in session", nil)
}

// TrackAfter returns the track immediately following track in the list, or
// an error if track is last or not found.
func (s *Session) TrackAfter(track *Track) (*Track, error) {
	for i, t := range s.tracks {
		if t == track {
			if i == len(s.tracks)-1 {
				return nil, newError(KindSession, "track has no successor", nil)
			}
			return s.tracks[i+1], nil
		}
	}
	return nil, newError(KindSession, "track not found in session", nil)
}

// Sector retrieves the sector at address (session-relative, or
// disc-relative if abs is set) by delegating to the track containing it.
func (s *Session) Sector(address int, abs bool) (*sector.Sector, error) {
	if !abs {
		address += s.startSector
	}
	t, err := s.TrackByAddress(address)
	if err != nil {
		return nil, newError(KindSession, "no track found for sector address", err)
	}
	return t.Sector(address, true)
}

// NumLanguages returns the number of CD-TEXT languages attached to the
// session.
func (s *Session) NumLanguages() int { return len(s.languages) }

// AddLanguage attaches language under code. Fails if code is already in
// use.
func (s *Session) AddLanguage(code int, language *Language) error {
	if _, exists := s.languages[code]; exists {
		return newError(KindSession, "language code already attached", nil)
	}
	s.languages[code] = language
	s.languageOrder = append(s.languageOrder, code)
	sort.Ints(s.languageOrder)
	return nil
}

// RemoveLanguageByCode detaches the language under code.
func (s *Session) RemoveLanguageByCode(code int) error {
	if _, ok := s.languages[code]; !ok {
		return newError(KindSession, "language code not found", nil)
	}
	delete(s.languages, code)
	for i, c := range s.languageOrder {
		if c == code {
			s.languageOrder = append(s.languageOrder[:i], s.languageOrder[i+1:]...)
			break
		}
	}
	return nil
}

// LanguageByCode returns the language attached under code.
func (s *Session) LanguageByCode(code int) (*Language, error) {
	l, ok := s.languages[code]
	if !ok {
		return nil, newError(KindSession, "language code not found", nil)
	}
	return l, nil
}

// Languages returns the session's languages ordered by code.
func (s *Session) Languages() []*Language {
	out := make([]*Language, 0, len(s.languageOrder))
	for _, c := range s.languageOrder {
		out = append(out, s.languages[c])
	}
	return out
}
