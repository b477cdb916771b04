package effects

import (
	"fmt"
	"os"

	"github.com/AnyUserName/lapse/internal/cms"
	"github.com/AnyUserName/lapse/internal/imgbuf"
)

// WhiteBalance shifts the image's white point.
//
// Properties:
//   - xrel, yrel: multiply the (x, y) chromaticity directly.
//   - srcr, srcg, srcb: a source neutral given as sRGB values; combined
//     with temp, (x, y), or nothing (neutral gray target).
//   - temp: target color temperature in kelvin, paired with the
//     configured reference temperature (default 5500 K).
//   - overblow_prot: keep channels pegged at the 8-bit maximum pegged, so
//     clipped highlights do not pick up a color cast.
//   - use_lms: adapt in LMS cone space via the Bradford transform instead
//     of scaling XYZ. Produces fewer color casts, slightly slower.
//
// Temperatures outside the CIE daylight locus validity range
// (1667–25000 K) make the pass a silent no-op.
type WhiteBalance struct {
	refTemp      float64
	overblowProt bool
	useLMS       bool
}

// NewWhiteBalance returns a white balance effect with a 5500 K reference,
// overblown-highlight protection and LMS adaptation enabled.
func NewWhiteBalance() *WhiteBalance {
	return &WhiteBalance{refTemp: 5500, overblowProt: true, useLMS: true}
}

// SetRefTemp sets the reference color temperature in kelvin.
func (w *WhiteBalance) SetRefTemp(t float64) { w.refTemp = t }

// chroma is an (x, y) chromaticity.
type chroma struct {
	x, y float64
}

func (c chroma) String() string {
	return fmt.Sprintf("(%g,%g)", c.x, c.y)
}

type tristimulus struct {
	X, Y, Z float64
}

func dot(a, b tristimulus) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Bradford cone response matrix and its inverse.
func toLMS(c tristimulus) tristimulus {
	return tristimulus{
		X: dot(tristimulus{0.7328, 0.4296, -0.1624}, c),
		Y: dot(tristimulus{-0.7036, 1.6975, 0.0061}, c),
		Z: dot(tristimulus{0.0030, 0.0136, 0.9834}, c),
	}
}

func lmsToXYZ(c tristimulus) tristimulus {
	return tristimulus{
		X: dot(tristimulus{1.0961, -0.2789, 0.1827}, c),
		Y: dot(tristimulus{0.4544, 0.4735, 0.0721}, c),
		Z: dot(tristimulus{-0.0096, -0.0057, 1.0153}, c),
	}
}

// chromaLMS returns the LMS response of a chromaticity assuming Y = 1.
func chromaLMS(c chroma) tristimulus {
	return toLMS(tristimulus{X: c.x / c.y, Y: 1, Z: (1 - c.x - c.y) / c.y})
}

func sqr(x float64) float64  { return x * x }
func cube(x float64) float64 { return x * x * x }

// colorFromTemp approximates the CIE daylight chromaticity of a black
// body at temperature t (kelvin). Valid for 1667–25000 K; outside that
// range the zero chromaticity is returned.
func colorFromTemp(t float64) chroma {
	if t < 1667 || t > 25000 {
		return chroma{}
	}
	var x float64
	if t < 4000 {
		x = -0.2661239e9/cube(t) - 0.2343580e6/sqr(t) + 0.8776956e3/t + 0.179910
	} else {
		x = -3.0258469e9/cube(t) + 2.1070379e6/sqr(t) + 0.2226347e3/t + 0.240390
	}
	var y float64
	switch {
	case t < 2222:
		y = -1.1063814*cube(x) - 1.34811020*sqr(x) + 2.18555832*x - 0.20219683
	case t < 4000:
		y = -0.9549476*cube(x) - 1.37418593*sqr(x) + 2.09137015*x - 0.16748867
	default:
		y = 3.0817580*cube(x) - 5.87338670*sqr(x) + 3.75112997*x - 0.37001483
	}
	return chroma{x: x, y: y}
}

// rgbChromaticity converts a single sRGB triple to its chromaticity.
func rgbChromaticity(r, g, b uint8) (chroma, error) {
	srgb, err := cms.FromBuiltin("sRGB")
	if err != nil {
		return chroma{}, err
	}
	xyzProf, err := cms.FromBuiltin("XYZ")
	if err != nil {
		return chroma{}, err
	}
	t, err := cms.New(srgb, cms.Format{Kind: cms.U8, Channels: "rgb"},
		xyzProf, cms.Format{Kind: cms.F64, Channels: "XYZ"},
		cms.Perceptual, cms.WithoutOptimization())
	if err != nil {
		return chroma{}, err
	}
	var out [3]float64
	if err := t.Apply([]uint8{r, g, b}, out[:], 1); err != nil {
		return chroma{}, err
	}
	sum := out[0] + out[1] + out[2]
	return chroma{x: out[0] / sum, y: out[1] / sum}, nil
}

// Apply implements Effect.
func (w *WhiteBalance) Apply(im *imgbuf.Image8, props PropertyMap, verb int) error {
	if v, ok := props["overblow_prot"]; ok {
		w.overblowProt = v >= 0.5
	}
	if v, ok := props["use_lms"]; ok {
		w.useLMS = v >= 0.5
	}

	if err := requireRGB(im, "whitebalance"); err != nil {
		return err
	}

	xrel, okX := props["xrel"]
	yrel, okY := props["yrel"]
	if okX && okY {
		factor := chroma{x: xrel, y: yrel}
		if verb >= 2 {
			fmt.Fprintf(os.Stderr, "Shifting colors by multiplying (x, y) by %s\n", factor)
		}
		// a direct chromaticity scale has no meaningful LMS analogue
		return w.shift(im, chroma{x: 1, y: 1}, factor, false)
	}

	// source chromaticity
	var oldColor chroma
	usedRefTemp := false
	if r, okR := props["srcr"]; okR {
		g, okG := props["srcg"]
		b, okB := props["srcb"]
		if okG && okB {
			c, err := rgbChromaticity(uint8(r), uint8(g), uint8(b))
			if err != nil {
				return fmt.Errorf("whitebalance: %w", err)
			}
			oldColor = c
		}
	}
	if oldColor == (chroma{}) {
		if w.refTemp < 1667 || w.refTemp > 25000 {
			return nil
		}
		oldColor = colorFromTemp(w.refTemp)
		usedRefTemp = true
	}

	// target chromaticity
	var newColor chroma
	usedTargetTemp := false
	var newTemp float64
	if t, ok := props["temp"]; ok {
		if t < 1667 || t > 25000 {
			return nil
		}
		newColor = colorFromTemp(t)
		newTemp = t
		usedTargetTemp = true
	} else if x, okX := props["x"]; okX {
		if y, okY := props["y"]; okY {
			newColor = chroma{x: x, y: y}
		}
	}
	if newColor == (chroma{}) {
		c, err := rgbChromaticity(128, 128, 128)
		if err != nil {
			return fmt.Errorf("whitebalance: %w", err)
		}
		newColor = c
	}

	if verb >= 2 {
		fmt.Fprintf(os.Stderr, "Shifting colors from %s to %s", oldColor, newColor)
		if usedRefTemp && usedTargetTemp {
			fmt.Fprintf(os.Stderr, " (shifting color temperature from %g to %g)", w.refTemp, newTemp)
		}
		fmt.Fprintln(os.Stderr)
	}
	return w.shift(im, oldColor, newColor, w.useLMS)
}

// shift moves the image white point from oldColor to newColor through the
// XYZ staging image, protecting overblown channels when configured.
func (w *WhiteBalance) shift(im *imgbuf.Image8, oldColor, newColor chroma, lms bool) error {
	var mask []bool
	if w.overblowProt {
		im.MakeUnique(imgbuf.SelImage)
		im.Flatten()
		data := im.Data()[:im.Size()]
		mask = make([]bool, len(data))
		for i, v := range data {
			mask[i] = v == 255
		}
	}

	im32, err := toXYZ(im)
	if err != nil {
		return err
	}
	shiftXYZ(&im32, oldColor, newColor, lms)
	if err := fromXYZ(&im32, im); err != nil {
		return err
	}

	if mask != nil {
		data := im.Data()[:im.Size()]
		for i, overblown := range mask {
			if overblown {
				data[i] = 255
			}
		}
	}
	return nil
}

func shiftXYZ(im32 *imgbuf.Image32, oldColor, newColor chroma, lms bool) {
	fx := newColor.x / oldColor.x
	fy := newColor.y / oldColor.y

	var factors tristimulus
	if lms {
		oldLMS := chromaLMS(oldColor)
		newLMS := chromaLMS(newColor)
		factors = tristimulus{X: newLMS.X / oldLMS.X, Y: newLMS.Y / oldLMS.Y, Z: newLMS.Z / oldLMS.Z}
	}

	for j := 0; j < im32.Height(); j++ {
		for i := 0; i < im32.Width(); i++ {
			p := im32.Pix(i, j)
			if !lms {
				sum := float64(p[0] + p[1] + p[2])
				p[2] = float32((sum - fx*float64(p[0]) - fy*float64(p[1])) / fy)
				p[0] = float32(float64(p[0]) * fx / fy)
			} else {
				c := toLMS(tristimulus{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})
				c.X *= factors.X
				c.Y *= factors.Y
				c.Z *= factors.Z
				r := lmsToXYZ(c)
				p[0], p[1], p[2] = float32(r.X), float32(r.Y), float32(r.Z)
			}
		}
	}
}
