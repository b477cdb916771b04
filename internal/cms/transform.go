package cms

import (
	"fmt"
)

// Transform maps pixels between two (profile, format) pairs under a
// rendering intent. Transforms are pure: applying one never mutates
// profile state, and the same transform may be reused across frames.
type Transform struct {
	srcProfile *Profile
	dstProfile *Profile
	proof      *Profile
	src, dst   Format
	intent     Intent
	optimize   bool
}

// Option tweaks transform construction.
type Option func(*Transform)

// WithoutOptimization clears the transform's optimize flag. The flag is
// recorded only: transforms do no pre-computation, so it does not change
// how pixels are converted.
func WithoutOptimization() Option {
	return func(t *Transform) { t.optimize = false }
}

// channel strings a profile's device space accepts.
func channelsFor(p *Profile, f Format) error {
	var ok bool
	switch p.kind {
	case kindMatrixRGB:
		ok = f.Channels == "rgb" || f.Channels == "bgr"
	case kindGray:
		ok = f.Channels == "k"
	case kindXYZ:
		ok = f.Channels == "XYZ"
	case kindNull:
		ok = true
	}
	if !ok {
		return fmt.Errorf("%w: %q pixels for %s profile", ErrUnsupportedFormat, f.Channels, p.Name())
	}
	return nil
}

// New creates a transform from (p1, f1) to (p2, f2) under the given
// intent.
func New(p1 *Profile, f1 Format, p2 *Profile, f2 Format, intent Intent, opts ...Option) (*Transform, error) {
	if _, err := NewFormat(f1.Kind, f1.Channels); err != nil {
		return nil, err
	}
	if _, err := NewFormat(f2.Kind, f2.Channels); err != nil {
		return nil, err
	}
	if p1.kind == kindDeviceLink || p2.kind == kindDeviceLink {
		return nil, fmt.Errorf("%w: device-link profile in New, use NewDeviceLink", ErrUnsupportedProfile)
	}
	if err := channelsFor(p1, f1); err != nil {
		return nil, err
	}
	if err := channelsFor(p2, f2); err != nil {
		return nil, err
	}
	t := &Transform{
		srcProfile: p1,
		dstProfile: p2,
		src:        f1,
		dst:        f2,
		intent:     intent,
		optimize:   true,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// NewDeviceLink creates a transform from a device-link profile: a single
// profile encapsulating a composed src→dst mapping.
func NewDeviceLink(p *Profile, f1, f2 Format, intent Intent, opts ...Option) (*Transform, error) {
	if p.kind != kindDeviceLink {
		return nil, fmt.Errorf("%w: not a device-link profile", ErrUnsupportedProfile)
	}
	return New(p.linkSrc, f1, p.linkDst, f2, intent, opts...)
}

// NewProofing creates a three-profile soft-proof transform: p1 → p2 with
// the output constrained through the proofing profile's gamut.
func NewProofing(p1 *Profile, f1 Format, p2 *Profile, f2 Format, proofing *Profile,
	intent, proofIntent Intent, opts ...Option) (*Transform, error) {
	t, err := New(p1, f1, p2, f2, intent, opts...)
	if err != nil {
		return nil, err
	}
	if proofing.kind == kindDeviceLink {
		return nil, fmt.Errorf("%w: device-link proofing profile", ErrUnsupportedProfile)
	}
	t.proof = proofing
	_ = proofIntent // matrix profiles render all intents identically
	return t, nil
}

// Apply transforms n contiguous pixels from src to dst. The slices must be
// flat buffers of the element types declared by the transform's formats
// ([]uint8, []uint16, []int16, []float32 or []float64) holding at least
// n * channels elements. src and dst may alias when the formats match.
func (t *Transform) Apply(src, dst any, n int) error {
	sch := t.src.NumChannels()
	dch := t.dst.NumChannels()

	in := make([]float64, sch)
	out := make([]float64, dch)

	for i := 0; i < n; i++ {
		if err := decodePixel(src, t.src, i*sch, in); err != nil {
			return err
		}
		t.convert(in, out)
		if err := encodePixel(dst, t.dst, i*dch, out); err != nil {
			return err
		}
	}
	return nil
}

// convert runs one pixel through the profile chain.
func (t *Transform) convert(in, out []float64) {
	if t.src.Channels == "bgr" {
		in[0], in[2] = in[2], in[0]
	}
	xyz := t.srcProfile.toPCS(in)
	if t.proof != nil {
		var dev [3]float64
		t.proof.fromPCS(xyz, dev[:])
		xyz = t.proof.toPCS(dev[:])
	}
	t.dstProfile.fromPCS(xyz, out)
	if t.dst.Channels == "bgr" {
		out[0], out[2] = out[2], out[0]
	}
}

func decodePixel(src any, f Format, off int, out []float64) error {
	scale := f.Kind.scale()
	switch s := src.(type) {
	case []uint8:
		for i := range out {
			out[i] = float64(s[off+i]) / scale
		}
	case []uint16:
		for i := range out {
			out[i] = float64(s[off+i]) / scale
		}
	case []int16:
		for i := range out {
			out[i] = float64(s[off+i]) / scale
		}
	case []float32:
		for i := range out {
			out[i] = float64(s[off+i])
		}
	case []float64:
		copy(out, s[off:off+len(out)])
	default:
		return fmt.Errorf("%w: source buffer %T", ErrUnsupportedFormat, src)
	}
	return nil
}

func encodePixel(dst any, f Format, off int, in []float64) error {
	scale := f.Kind.scale()
	switch d := dst.(type) {
	case []uint8:
		for i := range in {
			d[off+i] = uint8(clampRound(in[i]*scale, 255))
		}
	case []uint16:
		for i := range in {
			d[off+i] = uint16(clampRound(in[i]*scale, 65535))
		}
	case []int16:
		for i := range in {
			d[off+i] = int16(clampRound(in[i]*scale, 32767))
		}
	case []float32:
		for i := range in {
			d[off+i] = float32(in[i])
		}
	case []float64:
		copy(d[off:off+len(in)], in)
	default:
		return fmt.Errorf("%w: destination buffer %T", ErrUnsupportedFormat, dst)
	}
	return nil
}

func clampRound(x, max float64) float64 {
	x += 0.5
	if x < 0 {
		return 0
	}
	if x > max {
		return max
	}
	return float64(int64(x))
}
