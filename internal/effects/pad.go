package effects

import (
	"fmt"

	"github.com/AnyUserName/lapse/internal/imgbuf"
)

// Pad letterboxes the image onto a canvas of a fixed size, centering it
// and filling the border with a background color. An input larger than the
// canvas is cropped around its center.
//
// Properties: target_w and target_h (required), bkg_r/bkg_g/bkg_b
// (default 0). Requires 3-channel RGB input.
type Pad struct{}

// Apply implements Effect.
func (p *Pad) Apply(im *imgbuf.Image8, props PropertyMap, verb int) error {
	targetW, ok := props["target_w"]
	if !ok {
		return fmt.Errorf("pad: missing required property %q", "target_w")
	}
	targetH, ok := props["target_h"]
	if !ok {
		return fmt.Errorf("pad: missing required property %q", "target_h")
	}
	imW := int(targetW)
	imH := int(targetH)

	bkgR := props["bkg_r"]
	bkgG := props["bkg_g"]
	bkgB := props["bkg_b"]

	if err := requireRGB(im, "pad"); err != nil {
		return err
	}

	var result imgbuf.Image8
	result.Reshape(imW, imH)
	result.SetChannelTypes(im.ChannelTypes())
	result.Allocate()
	imgbuf.CopyMetadataFrom(&result, im)

	// center the input on the canvas; negative start clips it
	startX := (imW - im.Width()) / 2
	startY := (imH - im.Height()) / 2
	endX := (imW + im.Width()) / 2
	endY := (imH + im.Height()) / 2

	r := imgbuf.Clamp[uint8](bkgR)
	g := imgbuf.Clamp[uint8](bkgG)
	b := imgbuf.Clamp[uint8](bkgB)

	for i := 0; i < imW; i++ {
		for j := 0; j < imH; j++ {
			dst := result.Pix(i, j)
			if i < startX || i >= endX || j < startY || j >= endY {
				dst[0], dst[1], dst[2] = r, g, b
			} else {
				copy(dst, im.Pix(i-startX, j-startY))
			}
		}
	}

	*im = result
	return nil
}
