// Package exifprops extracts shooting parameters from an image's EXIF
// metadata blob.
package exifprops

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/AnyUserName/lapse/internal/imgbuf"
	"github.com/AnyUserName/lapse/internal/metadata"
)

// ErrMissingField is returned when a required EXIF field is absent.
var ErrMissingField = errors.New("exifprops: missing exif field")

// ErrNoExif is returned when the image carries no EXIF metadata at all.
var ErrNoExif = errors.New("exifprops: image has no exif metadata")

// Properties wraps a decoded EXIF block.
type Properties struct {
	x *exif.Exif
}

// FromImage decodes the EXIF blob attached to an image. The blob is the
// raw TIFF structure as stored by the JPEG loader (APP1 header stripped).
func FromImage[T imgbuf.Element](im *imgbuf.Image[T]) (*Properties, error) {
	d, ok := im.GetMetadatum(metadata.TagEXIF)
	if !ok {
		return nil, ErrNoExif
	}
	return FromBlob(d.Blob)
}

// FromBlob decodes a raw EXIF TIFF blob.
func FromBlob(blob []byte) (*Properties, error) {
	x, err := exif.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("exifprops: decode: %w", err)
	}
	return &Properties{x: x}, nil
}

// Has reports whether the given EXIF field is present.
func (p *Properties) Has(name exif.FieldName) bool {
	_, err := p.x.Get(name)
	return err == nil
}

// EV100 computes the exposure value at ISO 100 from FNumber, ExposureTime
// and ISOSpeedRatings: Av + Tv − Sv with Av = log2(F²),
// Tv = −log2(exposure time), Sv = log2(ISO/100).
func (p *Properties) EV100() (float64, error) {
	f, err := p.ratField(exif.FNumber)
	if err != nil {
		return 0, fmt.Errorf("%w: FNumber", ErrMissingField)
	}
	av := math.Log2(f * f)

	t, err := p.ratField(exif.ExposureTime)
	if err != nil {
		return 0, fmt.Errorf("%w: ExposureTime", ErrMissingField)
	}
	tv := -math.Log2(t)

	tag, err := p.x.Get(exif.ISOSpeedRatings)
	if err != nil {
		return 0, fmt.Errorf("%w: ISOSpeedRatings", ErrMissingField)
	}
	iso, err := tag.Int(0)
	if err != nil {
		return 0, fmt.Errorf("%w: ISOSpeedRatings", ErrMissingField)
	}
	sv := math.Log2(float64(iso) / 100)

	return av + tv - sv, nil
}

func (p *Properties) ratField(name exif.FieldName) (float64, error) {
	tag, err := p.x.Get(name)
	if err != nil {
		return 0, err
	}
	num, den, err := tag.Rat2(0)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, fmt.Errorf("exifprops: zero denominator in %s", name)
	}
	return float64(num) / float64(den), nil
}
