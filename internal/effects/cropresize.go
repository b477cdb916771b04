package effects

import (
	"fmt"
	"os"

	"github.com/AnyUserName/lapse/internal/imgbuf"
	"github.com/AnyUserName/lapse/internal/resizer"
	"github.com/AnyUserName/lapse/internal/sampler"
)

// CropResize crops a sub-rectangle and resamples it to a target size.
//
// Properties: x0, y0, x1, y1 name the crop corners (default whole image);
// cwidth/cheight override the second corner as offsets from the first;
// twidth/theight set the output size (default: the crop extent). The crop
// itself is a stride rewrite; a resample only happens when the target size
// differs, using Lanczos when shrinking and bicubic when enlarging.
type CropResize struct {
	// MaxThreads limits the resizer's workers; 0 uses every hardware
	// thread.
	MaxThreads int
}

// Apply implements Effect.
func (c *CropResize) Apply(im *imgbuf.Image8, props PropertyMap, verb int) error {
	x0, y0 := 0, 0
	x1, y1 := im.Width(), im.Height()
	// +0.5 rounds interpolated property values to the nearest integer
	if v, ok := props["x0"]; ok {
		x0 = int(v + 0.5)
	}
	if v, ok := props["y0"]; ok {
		y0 = int(v + 0.5)
	}
	if v, ok := props["x1"]; ok {
		x1 = int(v + 0.5)
	}
	if v, ok := props["y1"]; ok {
		y1 = int(v + 0.5)
	}
	if v, ok := props["cwidth"]; ok {
		x1 = x0 + int(v)
	}
	if v, ok := props["cheight"]; ok {
		y1 = y0 + int(v)
	}

	if x0 != 0 || y0 != 0 || x1 != im.Width() || y1 != im.Height() {
		if verb >= 2 {
			fmt.Fprintf(os.Stderr, "Cropping to (%d,%d)-(%d,%d)\n", x0, y0, x1, y1)
		}
		im.Crop(x0, y0, x1-x0, y1-y0)
	}

	targetW, targetH := x1-x0, y1-y0
	if v, ok := props["twidth"]; ok {
		targetW = int(v + 0.5)
	}
	if v, ok := props["theight"]; ok {
		targetH = int(v + 0.5)
	}

	if targetW == im.Width() && targetH == im.Height() {
		return nil
	}

	if verb >= 2 {
		fmt.Fprintf(os.Stderr, "Resizing to (%d,%d)\n", targetW, targetH)
	}

	r := resizer.New[uint8]()
	r.SetMaxThreads(c.MaxThreads)
	factorX := float64(targetW) / float64(im.Width())
	factorY := float64(targetH) / float64(im.Height())
	if factorX*factorY < 1 {
		r.SetSampler(sampler.NewLanczos[uint8](3, 0))
	} else {
		r.SetSampler(sampler.NewMitchell[uint8]())
	}

	res, err := r.Resize(im, targetW, targetH)
	if err != nil {
		return fmt.Errorf("cropresize: %w", err)
	}
	*im = res
	return nil
}
