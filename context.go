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

// Package mirage is the root of the disc-image library: Context (shared
// settings, stream caching, image loading), the Disc/Session/Track layout
// tree (C8), Fragment (C5), and the Parser/Writer registration contracts
// (C9/C10). Self-contained codecs live in subpackages: sector (C6), cdtext
// (C7), stream and stream/daa (C2/C3).
package mirage

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/spf13/afero"

	"mirage/container"
	"mirage/stream"
)

// DebugMask selects which debug components are reported through a
// Context's debug sink. Error and Warning level messages are always
// reported regardless of mask.
type DebugMask uint32

// Debug components, one bit per subsystem.
const (
	DebugParser DebugMask = 1 << iota
	DebugDisc
	DebugSession
	DebugTrack
	DebugFragment
	DebugSector
	DebugStream
	DebugWriter
)

// DebugLevel is the severity of one debug message.
type DebugLevel int

// Debug severities. Message is gated by the mask; Warning and Error always
// reach the sink.
const (
	DebugLevelMessage DebugLevel = iota
	DebugLevelWarning
	DebugLevelError
)

// DebugSink receives every debug message a Context or the objects attached
// to it produce. component names the subsystem (e.g. "daa", "cdtext").
type DebugSink func(component string, level DebugLevel, format string, args ...any)

// PasswordFunc supplies a decryption password on demand. It returns
// ok == false when no password could be obtained, distinct from supplying
// an empty password.
type PasswordFunc func() (password string, ok bool)

// Context carries settings shared across a whole image-loading operation:
// debug verbosity, typed options, the password callback, and the two
// stream caches (input and output) keyed by canonical filename. A Context
// may be constructed once and reused across multiple LoadImage calls; it
// is no longer an implicit process-wide singleton.
type Context struct {
	mu sync.Mutex

	name, domain string
	debugMask    DebugMask
	debugSink    DebugSink

	options map[string]any

	passwordFunc PasswordFunc

	fs afero.Fs

	inputCache  map[string]*cacheEntry
	outputCache map[string]*cacheEntry
}

type cacheEntry struct {
	stream stream.Stream
}

// NewContext constructs a Context backed by fs for file access. Pass
// afero.NewOsFs() for production use, or an in-memory filesystem in tests.
func NewContext(fs afero.Fs) *Context {
	return &Context{
		fs:          fs,
		options:     make(map[string]any),
		inputCache:  make(map[string]*cacheEntry),
		outputCache: make(map[string]*cacheEntry),
	}
}

// SetDebugName sets the context's debug name (e.g. "Device 1").
func (c *Context) SetDebugName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// DebugName returns the context's debug name.
func (c *Context) DebugName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// SetDebugDomain sets the context's debug domain (e.g. "mirage").
func (c *Context) SetDebugDomain(domain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.domain = domain
}

// DebugDomain returns the context's debug domain.
func (c *Context) DebugDomain() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.domain
}

// SetDebugMask sets which DebugMask bits are reported at DebugLevelMessage.
func (c *Context) SetDebugMask(mask DebugMask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugMask = mask
}

// DebugMaskValue returns the context's current debug mask.
func (c *Context) DebugMaskValue() DebugMask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.debugMask
}

// SetDebugSink installs the function that receives debug messages. A nil
// sink discards every message.
func (c *Context) SetDebugSink(sink DebugSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debugSink = sink
}

// Debugf reports a debug message for component at level, gated by mask
// except at DebugLevelWarning and DebugLevelError, which always reach the
// sink.
func (c *Context) Debugf(component string, mask DebugMask, level DebugLevel, format string, args ...any) {
	c.mu.Lock()
	sink := c.debugSink
	allowed := level != DebugLevelMessage || c.debugMask&mask != 0
	c.mu.Unlock()
	if sink == nil || !allowed {
		return
	}
	sink(component, level, format, args...)
}

// ClearOptions removes every option from the context.
func (c *Context) ClearOptions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = make(map[string]any)
}

// SetOption sets (or replaces) a typed option. See §6.5 for the option set
// the core interprets itself ("password", "dvd-report-css"); format
// parsers may register and read their own.
func (c *Context) SetOption(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options[name] = value
}

// Option retrieves a raw option value.
func (c *Context) Option(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.options[name]
	return v, ok
}

// StringOption retrieves a string-typed option, reporting ok=false if the
// option is unset or holds a different type.
func (c *Context) StringOption(name string) (string, bool) {
	v, ok := c.Option(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// BoolOption retrieves a bool-typed option, reporting ok=false if the
// option is unset or holds a different type.
func (c *Context) BoolOption(name string) (bool, bool) {
	v, ok := c.Option(name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// SetPasswordFunc installs the callback used to obtain a decryption
// password for encrypted images. A nil fn clears it.
func (c *Context) SetPasswordFunc(fn PasswordFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passwordFunc = fn
}

// ObtainPassword resolves a password for an encrypted image: the
// "password" option takes precedence over the callback, matching the
// option's documented purpose of pre-supplying a password without
// invoking it.
func (c *Context) ObtainPassword() (string, error) {
	if pw, ok := c.StringOption("password"); ok {
		return pw, nil
	}
	c.mu.Lock()
	fn := c.passwordFunc
	c.mu.Unlock()
	if fn == nil {
		return "", newError(KindLibrary, "context does not have a password function", nil)
	}
	pw, ok := fn()
	if !ok {
		return "", newError(KindLibrary, "password has not been provided", nil)
	}
	return pw, nil
}

// CreateInputStream opens filename for reading and composes the registered
// FilterStream chain on top of it, caching the result by filename so a
// second request for the same name returns the same stream instance
// (required so concurrently-constructed Fragments referencing the same
// file serialize through one Stream, per §5's shared-resource policy).
// The cache entry holds the stream strongly, so a cached stream stays
// cached, and alive, for the lifetime of the Context.
func (c *Context) CreateInputStream(filename string) (stream.Stream, error) {
	c.mu.Lock()
	if entry, ok := c.inputCache[filename]; ok {
		s := entry.stream
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	fileStream, err := c.openMainStream(filename)
	if err != nil {
		return nil, err
	}

	head, err := stream.Compose(fileStream)
	if err != nil {
		_ = fileStream.Close()
		return nil, newError(KindStream, "failed to compose filter stream chain", err)
	}
	if _, err := head.Seek(0, 0); err != nil {
		return nil, newError(KindStream, "failed to rewind stream", err)
	}

	c.mu.Lock()
	c.inputCache[filename] = c.cache(filename, head, false)
	c.mu.Unlock()
	return head, nil
}

// openMainStream opens the bottom-of-chain stream for filename: the
// container layer is tried first when filename names a supported archive
// and the context is backed by a real OS filesystem (the archive readers
// need a genuine path, not an afero abstraction), falling back to a plain
// file-backed stream for everything else. A recognized archive extension
// that nonetheless can't be unwrapped (corrupt file, no identifiable
// image inside) is reported as a failure rather than silently falling
// through, since the caller explicitly named an archive.
func (c *Context) openMainStream(filename string) (stream.Stream, error) {
	if _, ok := c.fs.(*afero.OsFs); ok && container.IsContainerExtension(filename) {
		return c.openContainerStream(filename)
	}
	fileStream, err := stream.OpenFile(c.fs, filename, false)
	if err != nil {
		return nil, newError(KindDataFile, fmt.Sprintf("failed to open read-only file stream on %q", filename), err)
	}
	return fileStream, nil
}

// openContainerStream unwraps filename as an archive, selects its single
// disc image member, buffers it, and exposes it as an ordinary
// FileStream backed by an in-memory filesystem so the rest of the
// pipeline (filter chain, Fragment reads) never has to know the data
// came out of a ZIP/7z/RAR instead of a plain file.
func (c *Context) openContainerStream(filename string) (stream.Stream, error) {
	arc, err := container.Open(filename)
	if err != nil {
		return nil, newError(KindDataFile, fmt.Sprintf("failed to open archive %q", filename), err)
	}
	defer func() { _ = arc.Close() }()

	member, err := container.SelectImageFile(arc)
	if err != nil {
		return nil, newError(KindImageFile, fmt.Sprintf("failed to identify disc image inside archive %q", filename), err)
	}

	reader, size, closer, err := arc.OpenReaderAt(member)
	if err != nil {
		return nil, newError(KindDataFile, fmt.Sprintf("failed to read %q from archive %q", member, filename), err)
	}
	defer func() { _ = closer.Close() }()

	data := make([]byte, size)
	if _, err := reader.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, newError(KindDataFile, fmt.Sprintf("failed to buffer %q from archive %q", member, filename), err)
	}

	memFs := afero.NewMemMapFs()
	if err := afero.WriteFile(memFs, filename, data, 0o644); err != nil {
		return nil, newError(KindDataFile, "failed to stage unwrapped archive member", err)
	}

	fileStream, err := stream.OpenFile(memFs, filename, false)
	if err != nil {
		return nil, newError(KindDataFile, "failed to open staged archive member", err)
	}
	return fileStream, nil
}

// CreateOutputStream opens filename for writing, optionally threading it
// through a named filter chain (last name is outermost), and caches the
// result the same way CreateInputStream does.
func (c *Context) CreateOutputStream(filename string, filterChain []string) (stream.Stream, error) {
	c.mu.Lock()
	if entry, ok := c.outputCache[filename]; ok {
		s := entry.stream
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	fileStream, err := stream.OpenFile(c.fs, filename, true)
	if err != nil {
		return nil, newError(KindDataFile, fmt.Sprintf("failed to open read-write file stream on %q", filename), err)
	}

	var head stream.Stream = fileStream
	for _, name := range filterChain {
		fs, ok := stream.NewNamed(name)
		if !ok {
			_ = fileStream.Close()
			return nil, newError(KindStream, fmt.Sprintf("invalid filter type %q in filter chain", name), nil)
		}
		if err := fs.Open(head); err != nil {
			_ = fileStream.Close()
			return nil, newError(KindStream, fmt.Sprintf("failed to create filter type %q", name), err)
		}
		head = fs
	}

	if _, err := head.Seek(0, 0); err != nil {
		return nil, newError(KindStream, "failed to rewind stream", err)
	}

	c.mu.Lock()
	c.outputCache[filename] = c.cache(filename, head, true)
	c.mu.Unlock()
	return head, nil
}

// cache registers s under filename and sets a finalizer on s that drops the
// cache entry. The entry itself references s, so s stays reachable while it
// is cached and the finalizer does not run: cache membership keeps the
// stream alive.
func (c *Context) cache(filename string, s stream.Stream, output bool) *cacheEntry {
	entry := &cacheEntry{stream: s}
	runtime.SetFinalizer(s, func(stream.Stream) {
		c.mu.Lock()
		defer c.mu.Unlock()
		table := c.inputCache
		if output {
			table = c.outputCache
		}
		if table[filename] == entry {
			delete(table, filename)
		}
	})
	return entry
}
