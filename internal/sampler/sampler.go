// Package sampler provides interpolated access to image values at
// non-integer positions. The workhorse is Conv, a separable convolution
// sampler reading its kernel from precomputed look-up tables; Box, Linear,
// Cubic and Lanczos constructors fill the tables.
package sampler

import (
	"github.com/AnyUserName/lapse/internal/imgbuf"
)

// Direction selects the axes the filter is applied on. For Horizontal or
// Vertical the other axis reads the pixel at the coordinate truncated to an
// integer; None does so on both axes.
type Direction int

const (
	None Direction = iota
	Horizontal
	Vertical
	Both
)

// Sampler samples an image at a real-valued position, writing one value
// per channel to out. scaleX and scaleY enlarge the filter support, which
// the resizer uses to widen kernels when down-sampling.
type Sampler[T imgbuf.Element] interface {
	Get(im *imgbuf.Image[T], x, y float32, out []T, dir Direction, scaleX, scaleY float32)
}
