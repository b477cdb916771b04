package imgbuf

import (
	"github.com/AnyUserName/lapse/internal/metadata"
)

// Select picks which parts of an image an operation acts on.
type Select int

const (
	SelNone  Select = 0
	SelImage Select = 1
	SelMeta  Select = 2
	SelBoth  Select = SelImage | SelMeta
)

// Image pairs a pixel buffer with metadata and a channel-type string. Like
// the buffer, it has reference semantics: Shallow copies share pixel data
// and metadata, and a deep copy requires Clone or MakeUnique.
//
// The channel-type string has one character per channel naming its role:
// 'r'/'g'/'b'/'a', 'c'/'m'/'y'/'k', 'X'/'Y'/'Z', 'L', 'C', '-' for padding.
// The image itself attaches no meaning to it; the color engine and the
// codecs do.
type Image[T Element] struct {
	buf          Buffer[T]
	meta         metadata.Map
	channelTypes string
}

// Image8 is the 8-bit image the JPEG pipeline works in.
type Image8 = Image[uint8]

// Image32 is the float32 image used for color-space staging.
type Image32 = Image[float32]

// Width returns the pixel count in the x direction.
func (im *Image[T]) Width() int { return im.buf.Width() }

// Height returns the pixel count in the y direction.
func (im *Image[T]) Height() int { return im.buf.Height() }

// Channels returns the number of color channels per pixel.
func (im *Image[T]) Channels() int { return im.buf.Channels() }

// Strides returns the (x, y) strides of the pixel view.
func (im *Image[T]) Strides() (int, int) { return im.buf.Strides() }

// Size returns the total element count.
func (im *Image[T]) Size() int { return im.buf.Size() }

// IsFlat reports whether the pixel view is contiguous row-major.
func (im *Image[T]) IsFlat() bool { return im.buf.IsFlat() }

// Pix returns the channel slice of the pixel at (x, y).
func (im *Image[T]) Pix(x, y int) []T { return im.buf.Pix(x, y) }

// Data returns the raw backing slice starting at the view base; see
// Buffer.Data.
func (im *Image[T]) Data() []T { return im.buf.Data() }

// Buffer exposes the underlying pixel buffer.
func (im *Image[T]) Buffer() *Buffer[T] { return &im.buf }

// ChannelTypes returns the channel-type string.
func (im *Image[T]) ChannelTypes() string { return im.channelTypes }

// SetChannelTypes sets the channel-type string and with it the channel
// count.
func (im *Image[T]) SetChannelTypes(s string) {
	im.buf.SetChannelCount(len(s))
	im.channelTypes = s
}

// Reshape sets the logical dimensions; only valid without pixel data.
func (im *Image[T]) Reshape(width, height int) { im.buf.Reshape(width, height) }

// SetChannelCount narrows the view to the first n channels.
func (im *Image[T]) SetChannelCount(n int) { im.buf.SetChannelCount(n) }

// Allocate installs fresh flat pixel storage for the current geometry.
func (im *Image[T]) Allocate() { im.buf.Allocate() }

// Flatten rewrites the pixels into contiguous row-major order.
func (im *Image[T]) Flatten() { im.buf.Flatten() }

// Crop restricts the view to a sub-rectangle; O(1), no copy.
func (im *Image[T]) Crop(offsetX, offsetY, width, height int) {
	im.buf.Crop(offsetX, offsetY, width, height)
}

// Cropped returns a cropped shallow copy; metadata is shared.
func (im *Image[T]) Cropped(offsetX, offsetY, width, height int) Image[T] {
	res := im.Shallow()
	res.Crop(offsetX, offsetY, width, height)
	return res
}

// CoarseRotate rotates clockwise by (n mod 4) * 90 degrees; O(1).
func (im *Image[T]) CoarseRotate(n int) { im.buf.CoarseRotate(n) }

// Flip mirrors along the selected axes; O(1).
func (im *Image[T]) Flip(axis Axis) { im.buf.Flip(axis) }

// FlipXY transposes the view; O(1).
func (im *Image[T]) FlipXY() { im.buf.FlipXY() }

// SelectChannel narrows the view to channel i and marks it grayscale.
func (im *Image[T]) SelectChannel(i int) {
	im.buf.SelectChannel(i)
	im.channelTypes = "k"
}

// SeparateChannel returns a grayscale shallow copy of channel i.
func (im *Image[T]) SeparateChannel(i int) Image[T] {
	res := im.Shallow()
	res.SelectChannel(i)
	return res
}

// Shallow returns a counted copy sharing pixels and metadata.
func (im *Image[T]) Shallow() Image[T] {
	return Image[T]{
		buf:          im.buf.Shallow(),
		meta:         im.meta.Shallow(),
		channelTypes: im.channelTypes,
	}
}

// Clone returns a deep copy of pixels and metadata.
func (im *Image[T]) Clone() Image[T] {
	res := im.Shallow()
	res.MakeUnique(SelBoth)
	return res
}

// MakeUnique ensures the selected parts share no storage with any other
// image. A copied pixel buffer comes out flat.
func (im *Image[T]) MakeUnique(which Select) {
	if which&SelImage != 0 {
		im.buf.MakeUnique()
	}
	if which&SelMeta != 0 {
		im.meta.MakeUnique()
	}
}

// IsEmpty reports whether the selected parts hold no data.
func (im *Image[T]) IsEmpty(which Select) bool {
	res := true
	if which&SelImage != 0 {
		res = res && im.buf.IsEmpty()
	}
	if which&SelMeta != 0 {
		res = res && im.meta.Len() == 0
	}
	return res
}

// IsUnique reports whether the selected parts share storage with no other
// image.
func (im *Image[T]) IsUnique(which Select) bool {
	res := true
	if which&SelImage != 0 {
		res = res && im.buf.IsUnique()
	}
	if which&SelMeta != 0 {
		res = res && im.meta.IsUnique()
	}
	return res
}

// Clear drops the selected parts.
func (im *Image[T]) Clear(which Select) {
	if which&SelImage != 0 {
		im.buf.Clear()
	}
	if which&SelMeta != 0 {
		im.meta.Clear()
	}
}

// Metadata exposes the metadata map.
func (im *Image[T]) Metadata() *metadata.Map { return &im.meta }

// SetMetadatum stores d under tag, replacing any previous value.
func (im *Image[T]) SetMetadatum(tag string, d metadata.Datum) { im.meta.Set(tag, d) }

// AppendMetadatum appends to an existing tag; the ids must match.
func (im *Image[T]) AppendMetadatum(tag string, d metadata.Datum) error {
	return im.meta.Append(tag, d)
}

// GetMetadatum returns the datum stored under tag.
func (im *Image[T]) GetMetadatum(tag string) (metadata.Datum, bool) { return im.meta.Get(tag) }

// HasMetadatum reports whether tag is present.
func (im *Image[T]) HasMetadatum(tag string) bool { return im.meta.Has(tag) }

// RemoveMetadatum deletes the datum stored under tag.
func (im *Image[T]) RemoveMetadatum(tag string) { im.meta.Remove(tag) }

// CopyMetadataFrom shares other's metadata with im (shallow copy).
func CopyMetadataFrom[T, U Element](im *Image[T], other *Image[U]) {
	im.meta.CopyFrom(other.Metadata())
}

// Clamp converts x to the channel type, clamping integer types to their
// representable range. Floating-point channels pass through unchanged.
func Clamp[T Element](x float64) T {
	var zero T
	switch any(zero).(type) {
	case uint8:
		if x < 0 {
			x = 0
		} else if x > 255 {
			x = 255
		}
	case uint16:
		if x < 0 {
			x = 0
		} else if x > 65535 {
			x = 65535
		}
	case int16:
		if x < -32768 {
			x = -32768
		} else if x > 32767 {
			x = 32767
		}
	}
	return T(x)
}

// MaxValue returns the upper bound of the channel type, or 1 for
// floating-point channels.
func MaxValue[T Element]() float64 {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 255
	case uint16:
		return 65535
	case int16:
		return 32767
	default:
		return 1
	}
}
