// Package imgbuf implements a strided, reference-counted pixel buffer with
// cheap geometric views. Crop, rotation by multiples of 90°, axis flips and
// channel selection are all O(1): they only rewrite the view's base offset
// and strides. Pixel data is shared between views until a mutation forces a
// private copy (MakeUnique / Flatten).
package imgbuf

import (
	"fmt"
	"sync/atomic"
)

// Element enumerates the channel value types a buffer can hold.
type Element interface {
	~uint8 | ~uint16 | ~int16 | ~float32 | ~float64
}

// Axis selects one or both image axes for Flip.
type Axis int

const (
	NoAxis Axis = iota
	XAxis
	YAxis
	BothAxes
)

type backing[T Element] struct {
	px   []T
	refs atomic.Int32
}

// Buffer is a strided view over a shared pixel allocation. The element for
// (x, y, comp) lives at base + x*strideX + y*strideY + comp; strides may be
// negative (flips), swapped (transposes) or otherwise disagree with
// row-major layout. A buffer is flat iff strideX == comps and
// strideY == comps*width.
//
// Copying the struct copies the view but does not register a new reference;
// use Shallow for a counted shared view. Writes through a view that shares
// its backing must be preceded by MakeUnique.
type Buffer[T Element] struct {
	data    *backing[T]
	base    int
	strideX int
	strideY int
	width   int
	height  int
	comps   int
}

// Width returns the pixel count in the x direction.
func (b *Buffer[T]) Width() int { return b.width }

// Height returns the pixel count in the y direction.
func (b *Buffer[T]) Height() int { return b.height }

// Channels returns the number of color channels per pixel.
func (b *Buffer[T]) Channels() int { return b.comps }

// Strides returns the (x, y) strides of the view.
func (b *Buffer[T]) Strides() (int, int) { return b.strideX, b.strideY }

// Size returns the total element count comps*width*height.
func (b *Buffer[T]) Size() int { return b.comps * b.width * b.height }

// IsEmpty reports whether the buffer holds no pixel data.
func (b *Buffer[T]) IsEmpty() bool { return b.data == nil }

// IsFlat reports whether the view is contiguous in row-major order.
func (b *Buffer[T]) IsFlat() bool {
	return b.strideX == b.comps && b.strideY == b.comps*b.width
}

// IsUnique reports whether the backing is referenced by this view alone.
func (b *Buffer[T]) IsUnique() bool {
	return b.data == nil || b.data.refs.Load() <= 1
}

// SharesData reports whether two views reference the same backing
// allocation.
func (b *Buffer[T]) SharesData(other *Buffer[T]) bool {
	return b.data != nil && b.data == other.data
}

// Pix returns the channel slice of the pixel at (x, y). No bounds check is
// performed; the caller guarantees 0 <= x < Width, 0 <= y < Height.
func (b *Buffer[T]) Pix(x, y int) []T {
	idx := b.base + x*b.strideX + y*b.strideY
	return b.data.px[idx : idx+b.comps]
}

// Data returns the raw backing slice starting at the view base. It is only
// row-major when the buffer is flat; callers that iterate it linearly must
// Flatten first.
func (b *Buffer[T]) Data() []T {
	if b.data == nil {
		return nil
	}
	return b.data.px[b.base:]
}

// Reshape sets the logical dimensions. It is only valid on an empty buffer;
// calling it with pixel data present is a programming error.
func (b *Buffer[T]) Reshape(width, height int) {
	if !b.IsEmpty() {
		panic("imgbuf: Reshape on non-empty buffer")
	}
	b.width, b.height = width, height
}

// SetChannelCount restricts the view to the first n channels of each pixel
// (no data moves), or, on an empty buffer, sets the channel count used by
// the next Allocate.
func (b *Buffer[T]) SetChannelCount(n int) { b.comps = n }

// Clear drops the pixel data. The channel count is preserved.
func (b *Buffer[T]) Clear() {
	b.release()
	b.base = 0
	b.strideX, b.strideY = 0, 0
	b.width, b.height = 0, 0
}

func (b *Buffer[T]) release() {
	if b.data != nil {
		b.data.refs.Add(-1)
		b.data = nil
	}
}

// Allocate installs a freshly sized flat backing for the current
// (width, height, comps), dropping any previous data.
func (b *Buffer[T]) Allocate() {
	n := b.Size()
	if n == 0 {
		b.Clear()
		return
	}
	b.release()
	data := &backing[T]{px: make([]T, n)}
	data.refs.Store(1)
	b.data = data
	b.base = 0
	b.strideX = b.comps
	b.strideY = b.comps * b.width
}

// Shallow returns a counted view sharing pixel data with b.
func (b *Buffer[T]) Shallow() Buffer[T] {
	if b.data != nil {
		b.data.refs.Add(1)
	}
	return *b
}

// Clone returns a deep copy with private, flat storage.
func (b *Buffer[T]) Clone() Buffer[T] {
	res := b.Shallow()
	res.MakeUnique()
	return res
}

// MakeUnique ensures the view does not share pixel data with any other.
// When a copy is made the result is flat.
func (b *Buffer[T]) MakeUnique() {
	if !b.IsUnique() {
		b.forceCopy()
	}
}

// Flatten rewrites the view into contiguous row-major order. A no-op when
// the buffer is already flat.
func (b *Buffer[T]) Flatten() {
	if !b.IsEmpty() && !b.IsFlat() {
		b.forceCopy()
	}
}

func (b *Buffer[T]) forceCopy() {
	n := b.Size()
	if n == 0 {
		b.Clear()
		return
	}
	data := &backing[T]{px: make([]T, n)}
	data.refs.Store(1)

	ns1 := b.comps
	ns2 := b.comps * b.width
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			src := b.base + x*b.strideX + y*b.strideY
			copy(data.px[x*ns1+y*ns2:], b.data.px[src:src+b.comps])
		}
	}

	b.release()
	b.data = data
	b.base = 0
	b.strideX, b.strideY = ns1, ns2
}

// Crop restricts the view to the rectangle starting at (offsetX, offsetY).
// A zero width or height keeps whatever remains past the offset. Pixels are
// not copied and no bounds are checked.
func (b *Buffer[T]) Crop(offsetX, offsetY, width, height int) {
	b.base += offsetX*b.strideX + offsetY*b.strideY
	if width != 0 {
		b.width = width
	} else {
		b.width -= offsetX
	}
	if height != 0 {
		b.height = height
	} else {
		b.height -= offsetY
	}
}

// Cropped returns a cropped shallow view; the result shares pixel data
// with b.
func (b *Buffer[T]) Cropped(offsetX, offsetY, width, height int) Buffer[T] {
	res := b.Shallow()
	res.Crop(offsetX, offsetY, width, height)
	return res
}

// CoarseRotate rotates the view clockwise by (n mod 4) * 90 degrees by
// rewriting base and strides; the data is untouched.
func (b *Buffer[T]) CoarseRotate(n int) {
	if b.IsEmpty() || b.width == 0 || b.height == 0 {
		return
	}
	n %= 4
	if n < 0 {
		n += 4
	}
	switch n {
	case 0:
	case 1:
		// (x, y) reads original (y, W'-x-1):
		// base' + x*s0' + y*s1' = base + (W'-1)*s1 - x*s1 + y*s0
		b.width, b.height = b.height, b.width
		b.base += (b.width - 1) * b.strideY
		b.strideX, b.strideY = -b.strideY, b.strideX
	case 2:
		// (x, y) reads original (W-x-1, H-y-1)
		b.base += (b.width-1)*b.strideX + (b.height-1)*b.strideY
		b.strideX = -b.strideX
		b.strideY = -b.strideY
	case 3:
		// (x, y) reads original (H'-y-1, x):
		// base' + x*s0' + y*s1' = base + (H'-1)*s0 + x*s1 - y*s0
		b.width, b.height = b.height, b.width
		b.base += (b.height - 1) * b.strideX
		b.strideX, b.strideY = b.strideY, -b.strideX
	default:
		panic(fmt.Sprintf("imgbuf: impossible rotation %d", n))
	}
}

// Flip mirrors the view along the selected axis or axes in place.
func (b *Buffer[T]) Flip(axis Axis) {
	if b.IsEmpty() {
		return
	}
	if axis&XAxis != 0 {
		b.base += (b.width - 1) * b.strideX
		b.strideX = -b.strideX
	}
	if axis&YAxis != 0 {
		b.base += (b.height - 1) * b.strideY
		b.strideY = -b.strideY
	}
}

// FlipXY transposes the view by swapping strides.
func (b *Buffer[T]) FlipXY() {
	b.strideX, b.strideY = b.strideY, b.strideX
	b.width, b.height = b.height, b.width
}

// SelectChannel narrows the view to channel i of each pixel.
func (b *Buffer[T]) SelectChannel(i int) {
	b.base += i
	b.comps = 1
}

// SeparateChannel returns a single-channel shallow view of channel i.
func (b *Buffer[T]) SeparateChannel(i int) Buffer[T] {
	res := b.Shallow()
	res.SelectChannel(i)
	return res
}
