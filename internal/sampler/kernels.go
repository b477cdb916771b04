package sampler

import (
	"math"

	"github.com/AnyUserName/lapse/internal/imgbuf"
)

// DefaultResolution is the look-up table length used when a constructor is
// given a non-positive resolution.
const DefaultResolution = 6000

func resolveRes(res int) int {
	if res <= 0 {
		return DefaultResolution
	}
	return res
}

// NewBox returns a box filter of radius 0.5.
func NewBox[T imgbuf.Element]() *Conv[T] {
	c := NewConv[T]()
	c.SetSize(0.5, 0.5)
	c.SetLuts([]float32{1})
	return c
}

// NewLinear returns a triangle (bilinear) filter of radius 1.
func NewLinear[T imgbuf.Element](res int) *Conv[T] {
	c := NewConv[T]()
	c.SetSize(1, 1)
	c.SetLuts(linearLut(resolveRes(res)))
	return c
}

// NewCubic returns a Mitchell–Netravali bicubic filter of radius 2 with
// the given B and C parameters.
func NewCubic[T imgbuf.Element](b, c float32, res int) *Conv[T] {
	s := NewConv[T]()
	s.SetSize(2, 2)
	s.SetLuts(cubicLut(b, c, resolveRes(res)))
	return s
}

// NewMitchell returns the recommended B = C = 1/3 bicubic.
func NewMitchell[T imgbuf.Element]() *Conv[T] {
	return NewCubic[T](1.0/3, 1.0/3, 0)
}

// NewLanczos returns a Lanczos filter of radius size (conventionally 3).
func NewLanczos[T imgbuf.Element](size int, res int) *Conv[T] {
	c := NewConv[T]()
	c.SetSize(float32(size), float32(size))
	c.SetLuts(lanczosLut(float32(size), resolveRes(res)))
	return c
}

func linearLut(res int) []float32 {
	lut := make([]float32, res)
	factor := 2.0 / float32(res-1)
	for i := range lut {
		x := absf(float32(i)*factor - 1)
		lut[i] = 1 - x
	}
	return lut
}

// cubicLut samples the Mitchell–Netravali piecewise cubic:
// P3|x|³ + P2|x|² + P0 for |x| < 1, Q3|x|³ + Q2|x|² + Q1|x| + Q0 for
// 1 <= |x| < 2.
func cubicLut(b, c float32, res int) []float32 {
	p3 := 12 - 9*b - 6*c
	p2 := -18 + 12*b + 6*c
	p0 := 6 - 2*b
	q3 := -b - 6*c
	q2 := 6*b + 30*c
	q1 := -12*b - 48*c
	q0 := 8*b + 24*c

	lut := make([]float32, res)
	factor := 4.0 / float32(res-1)
	for i := range lut {
		x := absf(float32(i)*factor - 2)
		x2 := x * x
		x3 := x2 * x
		if x < 1 {
			lut[i] = p3*x3 + p2*x2 + p0
		} else {
			lut[i] = q3*x3 + q2*x2 + q1*x + q0
		}
	}
	return lut
}

func lanczosLut(size float32, res int) []float32 {
	lut := make([]float32, res)
	factor := 2 * size / float32(res-1)
	for i := range lut {
		x := math.Pi * float64(float32(i)*factor-size)
		if x == 0 {
			lut[i] = 1
		} else {
			s := float64(size)
			lut[i] = float32(s * math.Sin(x) * math.Sin(x/s) / (x * x))
		}
	}
	return lut
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
