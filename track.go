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

// TrackFlag is a bit in a Track's CTL-derived flag set.
type TrackFlag int

// Track flags, independent of mode (which contributes its own CTL bit).
const (
	TrackFlagFourChannel TrackFlag = 1 << iota
	TrackFlagCopyPermitted
	TrackFlagPreemphasis
)

// Track represents one track of a Session: its mode, flags, ISRC, the
// fragments supplying its sector data, any index marks beyond index 1, and
// its CD-TEXT languages.
type Track struct {
	number      int
	startSector int
	length      int
	trackStart  int

	flags int
	mode  sector.Kind

	isrc        string
	isrcEncoded bool

	indices   []*Index
	fragments []*Fragment

	languages     map[int]*Language
	languageOrder []int

	onLayoutChanged func()
	mcnSource       func() string
}

// NewTrack constructs an empty Track of the given mode.
func NewTrack(mode sector.Kind) *Track {
	return &Track{mode: mode, languages: make(map[int]*Language)}
}

// SetOnLayoutChanged installs the callback invoked on a bottom-up layout
// change (fragment added/removed, or a fragment's own length changed).
// Intended for internal use by the owning Session.
func (t *Track) SetOnLayoutChanged(fn func()) { t.onLayoutChanged = fn }

// SetMCNSource installs the callback Sector uses to read the owning
// Session's MCN for Q subchannel synthesis, since Track otherwise has no
// reference back to its Session. Intended for internal use by the owning
// Session.
func (t *Track) SetMCNSource(fn func() string) { t.mcnSource = fn }

// commitTopDown reassigns every fragment's track-relative start address in
// list order, per the fragments' own lengths.
func (t *Track) commitTopDown() {
	addr := 0
	for _, f := range t.fragments {
		f.SetAddress(addr)
		addr += f.Length()
	}
}

// commitBottomUp recomputes the track's length from its fragments, rechecks
// the subchannel-encoded ISRC, and propagates the change to the parent
// session; if there is no parent yet, it closes the loop itself by running
// a top-down pass (mirroring the root-object case in the source).
func (t *Track) commitBottomUp() {
	t.length = 0
	for _, f := range t.fragments {
		t.length += f.Length()
	}

	t.checkForEncodedISRC()

	if t.onLayoutChanged != nil {
		t.onLayoutChanged()
	} else {
		t.commitTopDown()
	}
}

// SetNumber sets the track's track number. Intended for internal use by
// Session during layout commit.
func (t *Track) SetNumber(number int) { t.number = number }

// Number returns the track's track number.
func (t *Track) Number() int { return t.number }

// SetStartSector sets the track's disc-relative start sector. Intended
// for internal use by Session; causes a top-down change.
func (t *Track) SetStartSector(sector int) {
	t.startSector = sector
	t.commitTopDown()
}

// StartSector returns the track's disc-relative start sector.
func (t *Track) StartSector() int { return t.startSector }

// Length returns the track's length in sectors, the sum of its fragments'
// lengths.
func (t *Track) Length() int { return t.length }

// SetFlags sets the track's flag bits directly.
func (t *Track) SetFlags(flags int) { t.flags = flags }

// Flags returns the track's flag bits.
func (t *Track) Flags() int { return t.flags }

// SetMode sets the track's sector mode.
func (t *Track) SetMode(mode sector.Kind) { t.mode = mode }

// Mode returns the track's sector mode.
func (t *Track) Mode() sector.Kind { return t.mode }

// ADR returns the track's Q-subchannel ADR field. Always 1: no fragment
// implementation in the wild reports a different address-format nibble.
func (t *Track) ADR() int { return 1 }

// SetCTL decodes ctl (a Q-subchannel CTL nibble) into the track's flags.
// The track's mode, which contributes its own CTL bit on read, is left
// unchanged: CTL's data/audio bit is derived from Mode, not stored as a
// flag.
func (t *Track) SetCTL(ctl int) {
	flags := 0
	if ctl&0x01 != 0 {
		flags |= int(TrackFlagPreemphasis)
	}
	if ctl&0x02 != 0 {
		flags |= int(TrackFlagCopyPermitted)
	}
	if ctl&0x08 != 0 {
		flags |= int(TrackFlagFourChannel)
	}
	t.SetFlags(flags)
}

// CTL computes the track's Q-subchannel CTL nibble from its mode and
// flags.
func (t *Track) CTL() int {
	ctl := 0
	if t.mode != sector.Audio {
		ctl |= 0x4
	}
	if t.flags&int(TrackFlagFourChannel) != 0 {
		ctl |= 0x8
	}
	if t.flags&int(TrackFlagCopyPermitted) != 0 {
		ctl |= 0x2
	}
	if t.flags&int(TrackFlagPreemphasis) != 0 {
		ctl |= 0x1
	}
	return ctl
}

// SetISRC sets the track's ISRC, truncated to 12 characters. The call is
// silently ignored if the ISRC is already known to be encoded in one of
// the track's fragments' subchannel data: that data, not this field, is
// then authoritative and is what sector synthesis will read back.
func (t *Track) SetISRC(isrc string) {
	if t.isrcEncoded {
		return
	}
	if len(isrc) > 12 {
		isrc = isrc[:12]
	}
	t.isrc = isrc
}

// ISRC returns the track's ISRC, or "" if none is set.
func (t *Track) ISRC() string { return t.isrc }

// SetTrackStart sets the track-relative address at which the pregap ends
// and the track logically starts (index 0 -> index 1). This is distinct
// from the track's physical start sector set by SetStartSector.
func (t *Track) SetTrackStart(trackStart int) { t.trackStart = trackStart }

// TrackStart returns the track-relative address at which index 1 begins.
func (t *Track) TrackStart() int { return t.trackStart }

// NumFragments returns the number of fragments in the track.
func (t *Track) NumFragments() int { return len(t.fragments) }

// AddFragment inserts fragment at index (Python-style negative indices
// count from the end; out-of-range indices clamp to the nearest end).
// Causes a bottom-up change.
func (t *Track) AddFragment(index int, fragment *Fragment) {
	n := len(t.fragments)
	switch {
	case index < -n:
		index = 0
	case index > n:
		index = n
	case index < 0:
		index += n + 1
	}

	fragment.SetOnLayoutChanged(t.commitBottomUp)

	t.fragments = append(t.fragments, nil)
	copy(t.fragments[index+1:], t.fragments[index:])
	t.fragments[index] = fragment

	t.commitBottomUp()
}

// RemoveFragmentByIndex removes the fragment at index. See
// FragmentByIndex for index semantics.
func (t *Track) RemoveFragmentByIndex(index int) error {
	f, err := t.FragmentByIndex(index)
	if err != nil {
		return err
	}
	t.RemoveFragment(f)
	return nil
}

// RemoveFragment removes fragment from the track. Causes a bottom-up
// change.
func (t *Track) RemoveFragment(fragment *Fragment) {
	for i, f := range t.fragments {
		if f == fragment {
			t.fragments = append(t.fragments[:i], t.fragments[i+1:]...)
			fragment.SetOnLayoutChanged(nil)
			t.commitBottomUp()
			return
		}
	}
}

// FragmentByIndex returns the fragment at index. Negative indices count
// from the end.
func (t *Track) FragmentByIndex(index int) (*Fragment, error) {
	n := len(t.fragments)
	if index < -n || index >= n {
		return nil, newError(KindTrack, "fragment index out of range", nil)
	}
	if index < 0 {
		index += n
	}
	return t.fragments[index], nil
}

// FragmentByAddress returns the fragment containing track-relative
// address.
func (t *Track) FragmentByAddress(address int) (*Fragment, error) {
	for _, f := range t.fragments {
		if f.ContainsAddress(address) {
			return f, nil
		}
	}
	return nil, newError(KindTrack, "fragment not found for address", nil)
}

// Fragments returns the track's fragments in order. The returned slice
// must not be modified.
func (t *Track) Fragments() []*Fragment { return t.fragments }

// FragmentWithSubchannel returns the first fragment that carries
// subchannel data, or nil if none does.
func (t *Track) FragmentWithSubchannel() *Fragment {
	for _, f := range t.fragments {
		if f.SubchannelFormat() != SubchannelDataFormatNone {
			return f
		}
	}
	return nil
}

// checkForEncodedISRC scans the first 100 sectors' Q subchannel of the
// first fragment carrying subchannel data for a Mode-3 Q block, per
// INF8090's requirement that ISRC, if present, repeats within any 100
// consecutive sectors.
func (t *Track) checkForEncodedISRC() {
	fragment := t.FragmentWithSubchannel()
	if fragment == nil {
		t.isrcEncoded = false
		return
	}

	t.isrcEncoded = true
	t.isrc = ""

	start := fragment.Address()
	for address := start; address < start+100; address++ {
		s, err := t.Sector(address, false)
		if err != nil || s == nil {
			continue
		}
		q := s.ExtractSubchannel(sector.SubchannelQ16)
		if q == nil || len(q) < 9 || q[0]&0x0F != 0x03 {
			continue
		}
		var packed [8]byte
		copy(packed[:], q[1:9])
		isrc := msf.DecodeISRC(packed)
		t.isrc = string(isrc[:])
	}
}

// Sector retrieves the sector at address (track-relative, or disc-relative
// if abs is set) by feeding it from whichever fragment contains it.
func (t *Track) Sector(address int, abs bool) (*sector.Sector, error) {
	if abs {
		address -= t.startSector
	}
	if address < 0 || address >= t.length {
		return nil, newError(KindTrack, "sector address out of range", nil)
	}

	fragment, err := t.FragmentByAddress(address)
	if err != nil {
		return nil, newError(KindTrack, "no fragment found for sector address", err)
	}

	relative := address - fragment.Address()
	main, err := fragment.ReadMainData(relative)
	if err != nil {
		return nil, err
	}
	sub, err := fragment.ReadSubchannelData(relative)
	if err != nil {
		return nil, err
	}

	s := sector.New(t.mode, int32(t.startSector+address))
	subFormat := sector.SubchannelNone
	if sub != nil {
		subFormat = sector.SubchannelInterleavedPW
	}
	if err := s.FeedData(t.mode, main, sub, subFormat, 0); err != nil {
		return nil, newError(KindSector, "failed to feed sector data", err)
	}

	info := sector.SubchannelInfo{
		RelativeAddress: int32(address),
		TrackStart:      int32(t.trackStart),
		TrackNumber:     t.number,
		IndexNumber:     t.indexNumberAt(address),
		CTL:             uint8(t.CTL()),
	}
	if t.mcnSource != nil {
		if mcn := t.mcnSource(); mcn != "" {
			b := mcnBytes(mcn)
			info.MCN = &b
		}
	}
	if t.isrc != "" {
		b := isrcBytes(t.isrc)
		info.ISRC = &b
	}
	s.SetSubchannelInfo(info)

	return s, nil
}

// indexNumberAt returns the index number in effect at track-relative
// address: 0 within the pregap (before TrackStart), 1 from TrackStart
// until the next added index, and that index's own number beyond it.
func (t *Track) indexNumberAt(address int) int {
	if address < t.trackStart {
		return 0
	}
	idx, err := t.IndexByAddress(address)
	if err != nil {
		return 1
	}
	return idx.number
}

// mcnBytes right-pads mcn with '0' digits to the 13 bytes Q subchannel
// Mode-2 encoding expects.
func mcnBytes(mcn string) [13]byte {
	var out [13]byte
	for i := range out {
		if i < len(mcn) {
			out[i] = mcn[i]
		} else {
			out[i] = '0'
		}
	}
	return out
}

// isrcBytes right-pads isrc with '0' characters to the 12 bytes Q
// subchannel Mode-3 encoding expects.
func isrcBytes(isrc string) [12]byte {
	var out [12]byte
	for i := range out {
		if i < len(isrc) {
			out[i] = isrc[i]
		} else {
			out[i] = '0'
		}
	}
	return out
}

// rearrangeIndices drops any index at or before the track start and
// renumbers the remainder consecutively from 2, in address order.
func (t *Track) rearrangeIndices() {
	kept := t.indices[:0]
	cur := 2
	for _, idx := range t.indices {
		if idx.address <= t.trackStart {
			continue
		}
		idx.number = cur
		cur++
		kept = append(kept, idx)
	}
	t.indices = kept
}

// NumIndices returns the number of indices beyond index 1.
func (t *Track) NumIndices() int { return len(t.indices) }

// AddIndex adds an index at track-relative address. Fails if address
// falls before the track start (which is implicitly index 1).
func (t *Track) AddIndex(address int) error {
	if address < t.trackStart {
		return newError(KindTrack, "invalid index start address: before track start", nil)
	}

	idx := &Index{address: address}
	pos := sort.Search(len(t.indices), func(i int) bool { return t.indices[i].address >= address })
	t.indices = append(t.indices, nil)
	copy(t.indices[pos+1:], t.indices[pos:])
	t.indices[pos] = idx

	t.rearrangeIndices()
	return nil
}

// RemoveIndexByNumber removes the index at position number in the index
// list (see IndexByNumber), renumbering the remainder.
func (t *Track) RemoveIndexByNumber(number int) error {
	idx, err := t.IndexByNumber(number)
	if err != nil {
		return err
	}
	t.removeIndex(idx)
	return nil
}

func (t *Track) removeIndex(idx *Index) {
	for i, cur := range t.indices {
		if cur == idx {
			t.indices = append(t.indices[:i], t.indices[i+1:]...)
			t.rearrangeIndices()
			return
		}
	}
}

// IndexByNumber returns the index at position number in the address-ordered
// index list (position 0 holds index number 2). Negative positions count
// from the end.
func (t *Track) IndexByNumber(number int) (*Index, error) {
	n := len(t.indices)
	if number < -n || number >= n {
		return nil, newError(KindTrack, "index number out of range", nil)
	}
	if number < 0 {
		number += n
	}
	return t.indices[number], nil
}

// IndexByAddress returns the last index whose address does not exceed
// address.
func (t *Track) IndexByAddress(address int) (*Index, error) {
	var found *Index
	for _, idx := range t.indices {
		if idx.address <= address {
			found = idx
		} else {
			break
		}
	}
	if found == nil {
		return nil, newError(KindTrack, "index not found for address", nil)
	}
	return found, nil
}

// Indices returns the track's indices in address order. The returned
// slice must not be modified.
func (t *Track) Indices() []*Index { return t.indices }

// NumLanguages returns the number of CD-TEXT languages attached to the
// track.
func (t *Track) NumLanguages() int { return len(t.languages) }

// AddLanguage attaches language under code. Fails if code is already in
// use.
func (t *Track) AddLanguage(code int, language *Language) error {
	if _, exists := t.languages[code]; exists {
		return newError(KindTrack, "language code already attached", nil)
	}
	t.languages[code] = language
	t.languageOrder = append(t.languageOrder, code)
	sort.Ints(t.languageOrder)
	return nil
}

// RemoveLanguageByCode detaches the language under code.
func (t *Track) RemoveLanguageByCode(code int) error {
	if _, ok := t.languages[code]; !ok {
		return newError(KindTrack, "language code not found", nil)
	}
	delete(t.languages, code)
	for i, c := range t.languageOrder {
		if c == code {
			t.languageOrder = append(t.languageOrder[:i], t.languageOrder[i+1:]...)
			break
		}
	}
	return nil
}

// LanguageByCode returns the language attached under code.
func (t *Track) LanguageByCode(code int) (*Language, error) {
	l, ok := t.languages[code]
	if !ok {
		return nil, newError(KindTrack, "language code not found", nil)
	}
	return l, nil
}

// Languages returns the track's languages ordered by code.
func (t *Track) Languages() []*Language {
	out := make([]*Language, 0, len(t.languageOrder))
	for _, c := range t.languageOrder {
		out = append(out, t.languages[c])
	}
	return out
}
