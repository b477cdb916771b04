package cms

import (
	"github.com/AnyUserName/lapse/internal/imgbuf"
)

// KindOf maps a buffer element type to its ElemKind.
func KindOf[T imgbuf.Element]() ElemKind {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return U8
	case uint16:
		return U16
	case int16:
		return S16
	case float32:
		return F32
	default:
		return F64
	}
}

// ImageFormat derives the transform pixel format of an image from its
// element type and channel-type string.
func ImageFormat[T imgbuf.Element](im *imgbuf.Image[T]) (Format, error) {
	return NewFormat(KindOf[T](), im.ChannelTypes())
}
