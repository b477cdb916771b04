package cms

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrBadProfile marks a structurally invalid ICC blob.
	ErrBadProfile = errors.New("cms: malformed icc profile")
	// ErrUnsupportedProfile marks a valid profile this engine cannot
	// evaluate (e.g. LUT-only or CMYK device profiles).
	ErrUnsupportedProfile = errors.New("cms: unsupported icc profile")
	// ErrUnknownBuiltin is returned by FromBuiltin for unrecognized names.
	ErrUnknownBuiltin = errors.New("cms: unrecognized built-in profile")
)

type profileKind int

const (
	kindMatrixRGB profileKind = iota // matrix/shaper RGB device profile
	kindGray                         // single tone curve gray profile
	kindXYZ                          // identity: device values are PCS XYZ
	kindNull                         // sink profile, maps everything to 0
	kindDeviceLink                   // encapsulates a src→dst profile pair
)

// Profile is an immutable color profile handle. Handles may be shared
// freely; the last holder dropping its reference releases the storage
// (garbage collection does the bookkeeping).
type Profile struct {
	name string
	kind profileKind

	// matrix maps linear device RGB to PCS XYZ (D50); inv is its inverse.
	matrix [3][3]float64
	inv    [3][3]float64
	trc    [3]toneCurve

	grayTRC toneCurve

	// device link source and destination profiles
	linkSrc *Profile
	linkDst *Profile
}

// Name returns a short description of the profile.
func (p *Profile) Name() string { return p.name }

// IsDeviceLink reports whether p encapsulates a composed transform.
func (p *Profile) IsDeviceLink() bool { return p.kind == kindDeviceLink }

// D50 is the ICC profile connection space white point.
var d50 = [3]float64{0.9642, 1.0, 0.8249}

// sRGB colorants, chromatically adapted to D50 (the standard ICC values).
var srgbToXYZ = [3][3]float64{
	{0.4360747, 0.3850649, 0.1430804},
	{0.2225045, 0.7168786, 0.0606169},
	{0.0139322, 0.0971045, 0.7141733},
}

var xyzToSRGB = [3][3]float64{
	{3.1338561, -1.6168667, -0.4906146},
	{-0.9787684, 1.9161415, 0.0334540},
	{0.0719453, -0.2289914, 1.4052427},
}

// FromBuiltin creates a profile from built-in data. Allowed names:
// "sRGB", "XYZ", "null".
func FromBuiltin(name string) (*Profile, error) {
	switch name {
	case "sRGB":
		return &Profile{
			name:   "sRGB",
			kind:   kindMatrixRGB,
			matrix: srgbToXYZ,
			inv:    xyzToSRGB,
			trc:    [3]toneCurve{srgbCurve, srgbCurve, srgbCurve},
		}, nil
	case "XYZ":
		return &Profile{name: "XYZ", kind: kindXYZ}, nil
	case "null":
		return &Profile{name: "null", kind: kindNull}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBuiltin, name)
	}
}

// FromFile reads an ICC profile from disk.
func FromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cms: read profile: %w", err)
	}
	return FromMemory(data)
}

// FromTransform wraps a transform as a device-link profile: a single
// profile encapsulating the composed src→dst mapping.
func FromTransform(t *Transform) *Profile {
	return &Profile{
		name:    "device link",
		kind:    kindDeviceLink,
		linkSrc: t.srcProfile,
		linkDst: t.dstProfile,
	}
}

// space returns the device color space the profile expects.
func (p *Profile) space() string {
	switch p.kind {
	case kindMatrixRGB:
		return "RGB"
	case kindGray:
		return "GRAY"
	case kindXYZ:
		return "XYZ"
	}
	return ""
}

// toPCS converts decoded device values to PCS XYZ. dev is indexed in the
// order of the channel string already normalized to r,g,b (the transform
// handles bgr reordering).
func (p *Profile) toPCS(dev []float64) [3]float64 {
	switch p.kind {
	case kindMatrixRGB:
		r := p.trc[0].eval(dev[0])
		g := p.trc[1].eval(dev[1])
		b := p.trc[2].eval(dev[2])
		return mulMatVec(p.matrix, [3]float64{r, g, b})
	case kindGray:
		y := p.grayTRC.eval(dev[0])
		return [3]float64{d50[0] * y, d50[1] * y, d50[2] * y}
	case kindXYZ:
		return [3]float64{dev[0], dev[1], dev[2]}
	}
	return [3]float64{}
}

// fromPCS converts PCS XYZ back to device values.
func (p *Profile) fromPCS(xyz [3]float64, dev []float64) {
	switch p.kind {
	case kindMatrixRGB:
		lin := mulMatVec(p.inv, xyz)
		dev[0] = p.trc[0].evalInverse(lin[0])
		dev[1] = p.trc[1].evalInverse(lin[1])
		dev[2] = p.trc[2].evalInverse(lin[2])
	case kindGray:
		dev[0] = p.grayTRC.evalInverse(xyz[1] / d50[1])
	case kindXYZ:
		dev[0], dev[1], dev[2] = xyz[0], xyz[1], xyz[2]
	case kindNull:
		for i := range dev {
			dev[i] = 0
		}
	}
}

func mulMatVec(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func invertMat(m [3][3]float64) ([3][3]float64, bool) {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if det == 0 {
		return [3][3]float64{}, false
	}
	id := 1 / det
	return [3][3]float64{
		{(e*i - f*h) * id, (c*h - b*i) * id, (b*f - c*e) * id},
		{(f*g - d*i) * id, (a*i - c*g) * id, (c*d - a*f) * id},
		{(d*h - e*g) * id, (b*g - a*h) * id, (a*e - b*d) * id},
	}, true
}
