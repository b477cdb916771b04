// Package metadata stores named binary blobs attached to an image: EXIF,
// ICC, IPTC, XMP, comments and raw JPEG application segments.
//
// A Map has copy-on-write semantics: Shallow returns a view sharing the
// underlying storage, and mutating operations clone the storage first when
// it is shared. This keeps per-frame metadata propagation (crop, resize)
// cheap while still giving every derived image its own mutable view.
package metadata

import (
	"errors"
	"sort"
	"sync/atomic"
)

// Well-known tags. Application segments without a recognized payload are
// stored under "jpeg_appN" where N is the marker number.
const (
	TagComment = "comment"
	TagEXIF    = "exif"
	TagICC     = "icc"
	TagIPTC    = "iptc"
	TagXMP     = "xmp"
)

// ErrIDMismatch is returned by Append when the tag already exists with a
// different id string. Multi-segment payloads (ICC, EXIF) may only be
// concatenated when every segment carries the same id.
var ErrIDMismatch = errors.New("metadata: id mismatch on append")

// Datum is one item of metadata. The ID is an identifier string that, for
// JPEG, is part of the payload as stored in the file (e.g. "ICC_PROFILE\x00"
// or the XMP namespace URI); it may be empty.
type Datum struct {
	ID   string
	Blob []byte
}

type contents struct {
	entries map[string]Datum
	refs    atomic.Int32
}

// Map is a copy-on-write tag → Datum map. The zero value is an empty map
// ready for use.
type Map struct {
	c *contents
}

func newContents() *contents {
	c := &contents{entries: make(map[string]Datum)}
	c.refs.Store(1)
	return c
}

func (m *Map) ensure() {
	if m.c == nil {
		m.c = newContents()
	}
}

// Shallow returns a view sharing storage with m.
func (m *Map) Shallow() Map {
	m.ensure()
	m.c.refs.Add(1)
	return Map{c: m.c}
}

// IsUnique reports whether m shares its storage with no other view.
func (m *Map) IsUnique() bool {
	return m.c == nil || m.c.refs.Load() <= 1
}

// MakeUnique clones the storage if it is shared. Blobs are copied too, so
// a unique map may mutate blob bytes in place.
func (m *Map) MakeUnique() {
	if m.IsUnique() {
		return
	}
	clone := newContents()
	for tag, d := range m.c.entries {
		clone.entries[tag] = Datum{ID: d.ID, Blob: append([]byte(nil), d.Blob...)}
	}
	m.c.refs.Add(-1)
	m.c = clone
}

// Len returns the number of stored tags.
func (m *Map) Len() int {
	if m.c == nil {
		return 0
	}
	return len(m.c.entries)
}

// Has reports whether tag is present.
func (m *Map) Has(tag string) bool {
	if m.c == nil {
		return false
	}
	_, ok := m.c.entries[tag]
	return ok
}

// Get returns the datum stored under tag. The blob is not copied.
func (m *Map) Get(tag string) (Datum, bool) {
	if m.c == nil {
		return Datum{}, false
	}
	d, ok := m.c.entries[tag]
	return d, ok
}

// Tags returns all stored tags in sorted order.
func (m *Map) Tags() []string {
	if m.c == nil {
		return nil
	}
	tags := make([]string, 0, len(m.c.entries))
	for tag := range m.c.entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Set stores d under tag, replacing any previous datum.
func (m *Map) Set(tag string, d Datum) {
	m.ensure()
	m.MakeUnique()
	m.c.entries[tag] = d
}

// Append concatenates d's blob to an existing datum with the same tag, or
// inserts it if the tag is absent. The id strings must match; this is what
// reassembles multi-segment ICC profiles and split comments.
func (m *Map) Append(tag string, d Datum) error {
	m.ensure()
	m.MakeUnique()
	old, ok := m.c.entries[tag]
	if !ok {
		m.c.entries[tag] = d
		return nil
	}
	if old.ID != d.ID {
		return ErrIDMismatch
	}
	old.Blob = append(old.Blob, d.Blob...)
	m.c.entries[tag] = old
	return nil
}

// Remove deletes the datum stored under tag, if any.
func (m *Map) Remove(tag string) {
	if m.c == nil {
		return
	}
	m.MakeUnique()
	delete(m.c.entries, tag)
}

// Clear removes all entries.
func (m *Map) Clear() {
	if m.c == nil {
		return
	}
	m.MakeUnique()
	m.c.entries = make(map[string]Datum)
}

// CopyFrom makes m a shallow copy of other; the two maps share storage
// until one of them mutates.
func (m *Map) CopyFrom(other *Map) {
	*m = other.Shallow()
}
