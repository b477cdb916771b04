// Package jpegio loads and stores JPEG files as 8-bit images with their
// metadata attached: comments, the reassembled ICC profile, IPTC, EXIF,
// XMP and raw application segments. Loading can honor the EXIF orientation
// tag (rotating the pixels and rewriting the tag), obey an approximate
// size hint, and report per-scanline progress through a cancellable
// callback.
package jpegio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/AnyUserName/lapse/internal/imgbuf"
	"github.com/AnyUserName/lapse/internal/metadata"
)

var (
	// ErrFormat marks structurally invalid JPEG data.
	ErrFormat = errors.New("jpegio: invalid jpeg data")
	// ErrColorspace marks a channel layout the codec cannot represent.
	ErrColorspace = errors.New("jpegio: unsupported colorspace")
	// ErrAborted is returned when the progress callback cancels a write.
	ErrAborted = errors.New("jpegio: aborted by callback")
)

// DefaultQuality is the JPEG encode quality used unless overridden.
const DefaultQuality = 95

// Header is the information available without decoding the pixel data.
type Header struct {
	Width      int
	Height     int
	Comps      int
	Colorspace string
}

// ProgressFunc is notified with the completed fraction of a decode or
// encode. Returning false requests cancellation at the next scanline
// boundary.
type ProgressFunc func(fraction float32) bool

// IO loads and stores JPEG images.
type IO struct {
	quality         int
	sizeHintW       int
	sizeHintH       int
	progress        ProgressFunc
	obeyOrientation bool
}

// New returns an IO with quality 95 and orientation handling enabled.
func New() *IO {
	return &IO{quality: DefaultQuality, obeyOrientation: true}
}

// SetQuality sets the encode quality (1–100).
func (io *IO) SetQuality(q int) { io.quality = q }

// Quality returns the encode quality.
func (io *IO) Quality() int { return io.quality }

// SetSizeHint sets the approximate intended output size. When both
// dimensions are nonzero and not larger than the source, decoding may
// return a proportionally reduced image (by a power-of-two denominator up
// to 8), which is cheaper than decoding full-size and resizing.
func (io *IO) SetSizeHint(w, h int) { io.sizeHintW, io.sizeHintH = w, h }

// SetProgress installs a progress callback.
func (io *IO) SetProgress(p ProgressFunc) { io.progress = p }

// SetObeyOrientation controls whether Load normalizes the EXIF
// orientation and Inspect reports oriented dimensions.
func (io *IO) SetObeyOrientation(b bool) { io.obeyOrientation = b }

func (io *IO) notify(line, total int) bool {
	if io.progress == nil {
		return true
	}
	return io.progress(float32(line) / float32(total))
}

// scaleDenom picks the decode denominator for the current size hint.
func (io *IO) scaleDenom(w, h int) int {
	if io.sizeHintW == 0 || io.sizeHintH == 0 {
		return 1
	}
	if w < io.sizeHintW || h < io.sizeHintH {
		return 1
	}
	scale := math.Max(float64(w)/float64(io.sizeHintW), float64(h)/float64(io.sizeHintH))
	pow := math.Floor(math.Log2(scale))
	if pow > 3 {
		pow = 3
	}
	if pow < 0 {
		pow = 0
	}
	return 1 << int(pow)
}

// Load decodes the file into an RGB, grayscale or CMYK image with its
// metadata attached. The returned image owns its pixels and metadata
// uniquely.
func (io *IO) Load(path string) (imgbuf.Image8, error) {
	var im imgbuf.Image8

	data, err := os.ReadFile(path)
	if err != nil {
		return im, err
	}

	if err := scanSegments(data, func(seg segment) error {
		return collectMetadata(&im, seg)
	}); err != nil {
		return im, fmt.Errorf("load %s: %w", path, err)
	}

	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return im, fmt.Errorf("load %s: %w: %v", path, ErrFormat, err)
	}

	if d := io.scaleDenom(src.Bounds().Dx(), src.Bounds().Dy()); d > 1 {
		src = downscale(src, d)
	}

	if err := io.readPixels(&im, src); err != nil {
		return im, fmt.Errorf("load %s: %w", path, err)
	}

	if io.obeyOrientation && im.HasMetadatum(metadata.TagEXIF) {
		applyOrientation(&im)
	}

	io.notify(1, 1)
	return im, nil
}

// downscale reduces the decoded image by 1/d, approximating the codec's
// DCT scaling. The pixel type is preserved.
func downscale(src image.Image, d int) image.Image {
	b := src.Bounds()
	w := (b.Dx() + d - 1) / d
	h := (b.Dy() + d - 1) / d
	r := image.Rect(0, 0, w, h)

	var dst xdraw.Image
	switch src.(type) {
	case *image.Gray:
		dst = image.NewGray(r)
	case *image.CMYK:
		dst = image.NewCMYK(r)
	default:
		dst = image.NewRGBA(r)
	}
	xdraw.ApproxBiLinear.Scale(dst, r, src, b, xdraw.Src, nil)
	return dst
}

// readPixels copies the decoded raster into the image buffer, notifying
// the progress callback per scanline. Cancellation leaves the remaining
// rows unfilled, like a decoder stopping mid-scan.
func (io *IO) readPixels(im *imgbuf.Image8, src image.Image) error {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	im.Reshape(w, h)

	switch s := src.(type) {
	case *image.Gray:
		im.SetChannelTypes("k")
		im.Allocate()
		for y := 0; y < h; y++ {
			copy(im.Data()[y*w:(y+1)*w], s.Pix[y*s.Stride:y*s.Stride+w])
			if !io.notify(y, h) {
				return nil
			}
		}

	case *image.CMYK:
		im.SetChannelTypes("cmyk")
		im.Allocate()
		for y := 0; y < h; y++ {
			copy(im.Data()[y*w*4:(y+1)*w*4], s.Pix[y*s.Stride:y*s.Stride+w*4])
			if !io.notify(y, h) {
				return nil
			}
		}

	case *image.YCbCr:
		im.SetChannelTypes("rgb")
		im.Allocate()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				yi := s.YOffset(b.Min.X+x, b.Min.Y+y)
				ci := s.COffset(b.Min.X+x, b.Min.Y+y)
				r, g, bb := color.YCbCrToRGB(s.Y[yi], s.Cb[ci], s.Cr[ci])
				p := im.Pix(x, y)
				p[0], p[1], p[2] = r, g, bb
			}
			if !io.notify(y, h) {
				return nil
			}
		}

	default:
		im.SetChannelTypes("rgb")
		im.Allocate()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bb, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
				p := im.Pix(x, y)
				p[0], p[1], p[2] = uint8(r>>8), uint8(g>>8), uint8(bb>>8)
			}
			if !io.notify(y, h) {
				return nil
			}
		}
	}
	return nil
}

// Write encodes the image to path at the configured quality, emitting its
// metadata as marker segments.
func (io *IO) Write(path string, im *imgbuf.Image8) error {
	work := im.Shallow()
	work.Flatten()

	src, err := io.buildRaster(&work)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: io.quality}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	out := spliceMetadata(buf.Bytes(), metadataSegments(&work))
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return err
	}
	io.notify(1, 1)
	return nil
}

// buildRaster converts the flat image buffer into a raster the codec can
// encode, notifying progress per scanline.
func (io *IO) buildRaster(im *imgbuf.Image8) (image.Image, error) {
	w, h := im.Width(), im.Height()
	data := im.Data()[:im.Size()]

	switch im.ChannelTypes() {
	case "k":
		dst := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], data[y*w:(y+1)*w])
			if !io.notify(y, h) {
				return nil, ErrAborted
			}
		}
		return dst, nil

	case "cmyk":
		dst := image.NewCMYK(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], data[y*w*4:(y+1)*w*4])
			if !io.notify(y, h) {
				return nil, ErrAborted
			}
		}
		return dst, nil

	case "rgb", "bgr":
		swap := im.ChannelTypes() == "bgr"
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				s := data[(y*w+x)*3 : (y*w+x)*3+3]
				d := dst.Pix[y*dst.Stride+x*4 : y*dst.Stride+x*4+4]
				if swap {
					d[0], d[1], d[2] = s[2], s[1], s[0]
				} else {
					d[0], d[1], d[2] = s[0], s[1], s[2]
				}
				d[3] = 0xFF
			}
			if !io.notify(y, h) {
				return nil, ErrAborted
			}
		}
		return dst, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrColorspace, im.ChannelTypes())
	}
}

// Inspect reads the file header only. With orientation handling enabled,
// EXIF orientations 5–8 report swapped dimensions; the tag itself is left
// untouched.
func (io *IO) Inspect(path string) (Header, error) {
	var hdr Header

	data, err := os.ReadFile(path)
	if err != nil {
		return hdr, err
	}

	var exifBlob []byte
	found := false
	err = scanSegments(data, func(seg segment) error {
		switch {
		case isSOF(seg.marker):
			if len(seg.payload) < 6 {
				return fmt.Errorf("%w: short SOF segment", ErrFormat)
			}
			hdr.Height = int(seg.payload[1])<<8 | int(seg.payload[2])
			hdr.Width = int(seg.payload[3])<<8 | int(seg.payload[4])
			hdr.Comps = int(seg.payload[5])
			found = true
		case seg.marker == markerEXIF:
			if len(seg.payload) >= 6 && bytes.EqualFold(seg.payload[:4], []byte("exif")) {
				exifBlob = seg.payload[6:]
			}
		}
		return nil
	})
	if err != nil {
		return hdr, fmt.Errorf("inspect %s: %w", path, err)
	}
	if !found {
		return hdr, fmt.Errorf("inspect %s: %w: no frame header", path, ErrFormat)
	}

	switch hdr.Comps {
	case 1:
		hdr.Colorspace = "k"
	case 3:
		hdr.Colorspace = "YCC"
	case 4:
		hdr.Colorspace = "cmyk"
	}

	if io.obeyOrientation && exifBlob != nil {
		switch exifOrientation(exifBlob) {
		case 5, 6, 7, 8:
			hdr.Width, hdr.Height = hdr.Height, hdr.Width
		}
	}
	return hdr, nil
}

// isSOF reports whether the marker starts a frame header.
func isSOF(marker byte) bool {
	if marker < 0xC0 || marker > 0xCF {
		return false
	}
	return marker != markerDHT && marker != markerJPG && marker != markerDAC
}
