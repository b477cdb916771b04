// Package cms is the color engine: ICC-style profiles and pixel transforms
// between them. Profiles are immutable handles (built-in, parsed from an
// embedded ICC blob, or derived from a transform as a device link); a
// Transform maps between two (profile, pixel format) pairs under a
// rendering intent. The profile connection space is CIE XYZ with the D50
// white point, as in ICC.
package cms

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when a (element type, channel string)
// pair cannot take part in a color transform.
var ErrUnsupportedFormat = errors.New("cms: unsupported pixel format")

// Intent selects the ICC gamut-mapping mode of a transform.
type Intent int

const (
	Perceptual Intent = iota
	RelativeColorimetric
	Saturation
	AbsoluteColorimetric
)

// ElemKind enumerates the element types a pixel buffer can carry.
type ElemKind int

const (
	U8 ElemKind = iota
	U16
	S16
	F32
	F64
)

func (k ElemKind) String() string {
	switch k {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case S16:
		return "s16"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return "unknown"
}

// Format describes the memory layout of a pixel run: the element type plus
// the channel-type string ("rgb", "bgr", "k", "XYZ", "YCC", "cmyk", "Lab",
// "YCCk").
type Format struct {
	Kind     ElemKind
	Channels string
}

// Channel strings representable per element kind. This mirrors the
// underlying engine's format tokens: not every combination has one (XYZ
// needs at least 16 bits, YCCk has no integer token, BGR and YCbCr have no
// float token).
var formatTable = map[ElemKind]map[string]bool{
	U8:  {"k": true, "rgb": true, "bgr": true, "YCC": true, "Lab": true, "cmyk": true},
	U16: {"k": true, "rgb": true, "bgr": true, "YCC": true, "Lab": true, "XYZ": true, "cmyk": true},
	S16: {"k": true, "rgb": true, "bgr": true, "YCC": true, "Lab": true, "XYZ": true, "cmyk": true},
	F32: {"k": true, "rgb": true, "Lab": true, "XYZ": true, "cmyk": true},
	F64: {"k": true, "rgb": true, "Lab": true, "XYZ": true, "cmyk": true},
}

// NewFormat validates and builds a Format.
func NewFormat(kind ElemKind, channels string) (Format, error) {
	if !formatTable[kind][channels] {
		return Format{}, fmt.Errorf("%w: %s %q", ErrUnsupportedFormat, kind, channels)
	}
	return Format{Kind: kind, Channels: channels}, nil
}

// NumChannels returns the channel count of the format.
func (f Format) NumChannels() int { return len(f.Channels) }

// scale returns the encoding scale of integer element kinds (the value
// that maps to 1.0).
func (k ElemKind) scale() float64 {
	switch k {
	case U8:
		return 255
	case U16:
		return 65535
	case S16:
		return 32767
	}
	return 1
}
