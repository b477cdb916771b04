package effects

import (
	"fmt"
	"math"
	"os"

	"github.com/AnyUserName/lapse/internal/exifprops"
	"github.com/AnyUserName/lapse/internal/imgbuf"
)

// Exposure scales image brightness by whole or fractional EV stops.
//
// Properties:
//   - ev100: set the exposure to an absolute EV100 value; the image's own
//     EV100 is computed from its EXIF shooting parameters.
//   - evrel: shift the exposure by a relative EV amount.
//   - use_xyz: when >= 0.5, multiply in XYZ instead of sRGB. The switch
//     sticks for subsequent frames.
type Exposure struct {
	useXYZ bool
}

// NewExposure returns an exposure effect multiplying in sRGB.
func NewExposure() *Exposure {
	return &Exposure{}
}

// Apply implements Effect.
func (e *Exposure) Apply(im *imgbuf.Image8, props PropertyMap, verb int) error {
	if v, ok := props["use_xyz"]; ok {
		e.useXYZ = v >= 0.5
	}
	if target, ok := props["ev100"]; ok {
		p, err := exifprops.FromImage(im)
		if err != nil {
			return fmt.Errorf("exposure: %w", err)
		}
		imageEV, err := p.EV100()
		if err != nil {
			return fmt.Errorf("exposure: %w", err)
		}
		if verb >= 2 {
			fmt.Fprintf(os.Stderr, "current EV100=%g -> %g   ", imageEV, target)
		}
		return e.multiplyExposure(im, imageEV-target, verb)
	}
	if ev, ok := props["evrel"]; ok {
		if verb >= 2 {
			fmt.Fprint(os.Stderr, "exposure   ")
		}
		return e.multiplyExposure(im, ev, verb)
	}
	return nil
}

func (e *Exposure) multiplyExposure(im *imgbuf.Image8, ev float64, verb int) error {
	factor := math.Pow(2, ev)

	if verb >= 2 {
		sign := ""
		if ev >= 0 {
			sign = "+"
		}
		fmt.Fprintf(os.Stderr, "(%s%gEV, *%g)\n", sign, ev, factor)
	}

	if e.useXYZ {
		if err := requireRGB(im, "exposure"); err != nil {
			return err
		}
		im32, err := toXYZ(im)
		if err != nil {
			return err
		}
		multiplyPixels(im32.Data()[:im32.Size()], factor)
		return fromXYZ(&im32, im)
	}

	im.MakeUnique(imgbuf.SelImage)
	im.Flatten()
	multiplyPixels(im.Data()[:im.Size()], factor)
	return nil
}

func multiplyPixels[T imgbuf.Element](data []T, factor float64) {
	for i, v := range data {
		data[i] = imgbuf.Clamp[T](float64(v) * factor)
	}
}
