package sampler

import (
	"math"

	"github.com/AnyUserName/lapse/internal/imgbuf"
)

// Conv is a sampler that convolves with a separable kernel
// fct(x, y) = f1(x)·f2(y), each factor read from a look-up table.
//
// The table for the horizontal direction maps pixel column i, sampled at
// position x, to index (x + sizeX − i)·len(lutX)/(2·sizeX); vertical
// analogous. The filter covers the pixels in (x − sizeX, x + sizeX].
// Weights are renormalized by their sum so a uniform image stays uniform
// even where the window is truncated at the image border; a position past
// the last pixel, whose window would be empty, reads the border pixel.
type Conv[T imgbuf.Element] struct {
	lutX  []float32
	lutY  []float32
	sizeX float32
	sizeY float32
}

// NewConv returns the default sampler: a 0.5-radius single-entry table,
// i.e. nearest pixel.
func NewConv[T imgbuf.Element]() *Conv[T] {
	return &Conv[T]{lutX: []float32{1}, lutY: []float32{1}, sizeX: 0.5, sizeY: 0.5}
}

// SetLutX replaces the horizontal look-up table.
func (c *Conv[T]) SetLutX(lut []float32) { c.lutX = lut }

// SetLutY replaces the vertical look-up table.
func (c *Conv[T]) SetLutY(lut []float32) { c.lutY = lut }

// SetLuts installs the same table in both directions.
func (c *Conv[T]) SetLuts(lut []float32) { c.lutX, c.lutY = lut, lut }

// LutX returns the horizontal look-up table.
func (c *Conv[T]) LutX() []float32 { return c.lutX }

// LutY returns the vertical look-up table.
func (c *Conv[T]) LutY() []float32 { return c.lutY }

// SetSize sets the filter radii.
func (c *Conv[T]) SetSize(x, y float32) { c.sizeX, c.sizeY = x, y }

// SizeX returns the horizontal filter radius.
func (c *Conv[T]) SizeX() float32 { return c.sizeX }

// SizeY returns the vertical filter radius.
func (c *Conv[T]) SizeY() float32 { return c.sizeY }

// Get samples the image at (x, y).
func (c *Conv[T]) Get(im *imgbuf.Image[T], x, y float32, out []T, dir Direction, scaleX, scaleY float32) {
	switch dir {
	case Both:
		c.getProduct(im, x, y, out, scaleX, scaleY)
	case Horizontal:
		c.getX(im, x, y, out, scaleX)
	case Vertical:
		c.getY(im, x, y, out, scaleY)
	default:
		p := im.Pix(int(x), int(y))
		copy(out, p)
	}
}

func (c *Conv[T]) getProduct(im *imgbuf.Image[T], x, y float32, out []T, scaleX, scaleY float32) {
	ncomps := im.Channels()

	sizeX := c.sizeX * scaleX
	sizeY := c.sizeY * scaleY
	if sizeX < 0.5 {
		sizeX = 0.5
	}
	if sizeY < 0.5 {
		sizeY = 0.5
	}

	// Window of contributing pixels, clipped to the image. Values almost
	// out of bounds are not anti-aliased across the border; the weight sum
	// below compensates for the truncated window.
	startX := maxInt(0, int(floorf(x-sizeX))+1)
	startY := maxInt(0, int(floorf(y-sizeY))+1)
	endX := minInt(im.Width()-1, int(floorf(x+sizeX)))
	endY := minInt(im.Height()-1, int(floorf(y+sizeY)))
	startX = minInt(startX, endX)
	startY = minInt(startY, endY)

	// map image-space distances to look-up table positions
	mapFactorX := float32(len(c.lutX)) / (2 * sizeX)
	mapFactorY := float32(len(c.lutY)) / (2 * sizeY)

	shiftedX := x + sizeX
	shiftedY := y + sizeY

	for comp := 0; comp < ncomps; comp++ {
		var value, wsum float32
		mapi := (shiftedX - float32(startX)) * mapFactorX
		for i := startX; i <= endX; i, mapi = i+1, mapi-mapFactorX {
			mapj := (shiftedY - float32(startY)) * mapFactorY
			for j := startY; j <= endY; j, mapj = j+1, mapj-mapFactorY {
				weight := c.lutX[lutIndex(mapi, len(c.lutX))] * c.lutY[lutIndex(mapj, len(c.lutY))]
				value += float32(im.Pix(i, j)[comp]) * weight
				wsum += weight
			}
		}
		out[comp] = imgbuf.Clamp[T](float64(value / wsum))
	}
}

func (c *Conv[T]) getX(im *imgbuf.Image[T], x, y float32, out []T, scaleX float32) {
	ncomps := im.Channels()

	sizeX := c.sizeX * scaleX
	if sizeX < 0.5 {
		sizeX = 0.5
	}

	startX := maxInt(0, int(floorf(x-sizeX))+1)
	endX := minInt(im.Width()-1, int(floorf(x+sizeX)))
	startX = minInt(startX, endX)
	valY := int(y)

	mapFactorX := float32(len(c.lutX)) / (2 * sizeX)
	shiftedX := x + sizeX

	for comp := 0; comp < ncomps; comp++ {
		var value, wsum float32
		mapi := (shiftedX - float32(startX)) * mapFactorX
		for i := startX; i <= endX; i, mapi = i+1, mapi-mapFactorX {
			weight := c.lutX[lutIndex(mapi, len(c.lutX))]
			value += float32(im.Pix(i, valY)[comp]) * weight
			wsum += weight
		}
		out[comp] = imgbuf.Clamp[T](float64(value / wsum))
	}
}

func (c *Conv[T]) getY(im *imgbuf.Image[T], x, y float32, out []T, scaleY float32) {
	ncomps := im.Channels()

	sizeY := c.sizeY * scaleY
	if sizeY < 0.5 {
		sizeY = 0.5
	}

	startY := maxInt(0, int(floorf(y-sizeY))+1)
	endY := minInt(im.Height()-1, int(floorf(y+sizeY)))
	startY = minInt(startY, endY)
	valX := int(x)

	mapFactorY := float32(len(c.lutY)) / (2 * sizeY)
	shiftedY := y + sizeY

	for comp := 0; comp < ncomps; comp++ {
		var value, wsum float32
		mapj := (shiftedY - float32(startY)) * mapFactorY
		for j := startY; j <= endY; j, mapj = j+1, mapj-mapFactorY {
			weight := c.lutY[lutIndex(mapj, len(c.lutY))]
			value += float32(im.Pix(valX, j)[comp]) * weight
			wsum += weight
		}
		out[comp] = imgbuf.Clamp[T](float64(value / wsum))
	}
}

// lutIndex guards against float accumulation pushing a position to the
// table length.
func lutIndex(pos float32, n int) int {
	i := int(pos)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func floorf(x float32) float32 { return float32(math.Floor(float64(x))) }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
