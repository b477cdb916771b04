package effects

import (
	"fmt"

	"github.com/AnyUserName/lapse/internal/cms"
	"github.com/AnyUserName/lapse/internal/imgbuf"
)

// toXYZ converts an RGB image to a float32 XYZ staging image through the
// color engine. The source is flattened so the transform can run over a
// contiguous pixel run.
func toXYZ(im *imgbuf.Image8) (imgbuf.Image32, error) {
	im.MakeUnique(imgbuf.SelImage)
	im.Flatten()

	srgb, err := cms.FromBuiltin("sRGB")
	if err != nil {
		return imgbuf.Image32{}, err
	}
	xyz, err := cms.FromBuiltin("XYZ")
	if err != nil {
		return imgbuf.Image32{}, err
	}

	srcFmt, err := cms.ImageFormat(im)
	if err != nil {
		return imgbuf.Image32{}, err
	}

	var im32 imgbuf.Image32
	im32.Reshape(im.Width(), im.Height())
	im32.SetChannelTypes("XYZ")
	im32.Allocate()

	dstFmt, err := cms.ImageFormat(&im32)
	if err != nil {
		return imgbuf.Image32{}, err
	}

	t, err := cms.New(srgb, srcFmt, xyz, dstFmt, cms.Perceptual)
	if err != nil {
		return imgbuf.Image32{}, err
	}
	n := im.Width() * im.Height()
	if err := t.Apply(im.Data()[:im.Size()], im32.Data()[:im32.Size()], n); err != nil {
		return imgbuf.Image32{}, err
	}
	return im32, nil
}

// fromXYZ converts the staging image back into the 8-bit image in place.
func fromXYZ(im32 *imgbuf.Image32, im *imgbuf.Image8) error {
	srgb, err := cms.FromBuiltin("sRGB")
	if err != nil {
		return err
	}
	xyz, err := cms.FromBuiltin("XYZ")
	if err != nil {
		return err
	}
	srcFmt, err := cms.ImageFormat(im32)
	if err != nil {
		return err
	}
	dstFmt, err := cms.ImageFormat(im)
	if err != nil {
		return err
	}
	t, err := cms.New(xyz, srcFmt, srgb, dstFmt, cms.Perceptual)
	if err != nil {
		return err
	}
	n := im.Width() * im.Height()
	return t.Apply(im32.Data()[:im32.Size()], im.Data()[:im.Size()], n)
}

// requireRGB checks the channel layout an effect depends on.
func requireRGB(im *imgbuf.Image8, effect string) error {
	if im.Channels() != 3 {
		return fmt.Errorf("%s: requires a 3-channel RGB image, have %q", effect, im.ChannelTypes())
	}
	return nil
}
