package imgbuf

import (
	"testing"
)

// testImage builds a W×H 3-channel image where channel c of pixel (x, y)
// holds a unique value derived from the coordinates.
func testImage(t *testing.T, w, h int) Image8 {
	t.Helper()
	var im Image8
	im.Reshape(w, h)
	im.SetChannelTypes("rgb")
	im.Allocate()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := im.Pix(x, y)
			for c := 0; c < 3; c++ {
				p[c] = pixelValue(x, y, c)
			}
		}
	}
	return im
}

func pixelValue(x, y, c int) uint8 {
	return uint8(x*31 + y*7 + c)
}

func checkPixels(t *testing.T, im *Image8, want func(x, y, c int) uint8) {
	t.Helper()
	for y := 0; y < im.Height(); y++ {
		for x := 0; x < im.Width(); x++ {
			p := im.Pix(x, y)
			for c := 0; c < im.Channels(); c++ {
				if p[c] != want(x, y, c) {
					t.Fatalf("pixel (%d,%d,%d): got %d, want %d", x, y, c, p[c], want(x, y, c))
				}
			}
		}
	}
}

func TestCropAddressing(t *testing.T) {
	im := testImage(t, 8, 6)
	cropped := im.Cropped(2, 1, 4, 3)

	if cropped.Width() != 4 || cropped.Height() != 3 {
		t.Fatalf("size: got %dx%d, want 4x3", cropped.Width(), cropped.Height())
	}
	if !cropped.Buffer().SharesData(im.Buffer()) {
		t.Fatal("crop must not copy the backing buffer")
	}
	checkPixels(t, &cropped, func(x, y, c int) uint8 { return pixelValue(x+2, y+1, c) })
}

func TestCropDefaultExtent(t *testing.T) {
	im := testImage(t, 8, 6)
	im.Crop(3, 2, 0, 0)
	if im.Width() != 5 || im.Height() != 4 {
		t.Fatalf("size: got %dx%d, want 5x4", im.Width(), im.Height())
	}
}

func TestCoarseRotate(t *testing.T) {
	base := testImage(t, 5, 3)

	// rotation 1: output (x, y) reads original (y, H_orig-1-x)? verify the
	// clockwise mapping: new(x, y) == old(y, W_new-1-x) with W_new = H_old
	r1 := base.Shallow()
	r1.CoarseRotate(1)
	if r1.Width() != 3 || r1.Height() != 5 {
		t.Fatalf("rot1 size: got %dx%d, want 3x5", r1.Width(), r1.Height())
	}
	checkPixels(t, &r1, func(x, y, c int) uint8 {
		return pixelValue(y, r1.Width()-1-x, c)
	})

	r2 := base.Shallow()
	r2.CoarseRotate(2)
	checkPixels(t, &r2, func(x, y, c int) uint8 {
		return pixelValue(base.Width()-1-x, base.Height()-1-y, c)
	})

	r3 := base.Shallow()
	r3.CoarseRotate(3)
	checkPixels(t, &r3, func(x, y, c int) uint8 {
		return pixelValue(r3.Height()-1-y, x, c)
	})

	if !r1.Buffer().SharesData(base.Buffer()) {
		t.Fatal("rotation must not copy pixels")
	}
}

func TestRotationIdentities(t *testing.T) {
	base := testImage(t, 5, 3)

	full := base.Shallow()
	for i := 0; i < 4; i++ {
		full.CoarseRotate(1)
	}
	checkPixels(t, &full, func(x, y, c int) uint8 { return pixelValue(x, y, c) })

	twice := base.Shallow()
	twice.CoarseRotate(2)
	twice.CoarseRotate(2)
	checkPixels(t, &twice, func(x, y, c int) uint8 { return pixelValue(x, y, c) })

	neg := base.Shallow()
	neg.CoarseRotate(-1)
	neg.CoarseRotate(1)
	checkPixels(t, &neg, func(x, y, c int) uint8 { return pixelValue(x, y, c) })
}

func TestFlip(t *testing.T) {
	base := testImage(t, 5, 3)

	fx := base.Shallow()
	fx.Flip(XAxis)
	checkPixels(t, &fx, func(x, y, c int) uint8 { return pixelValue(base.Width()-1-x, y, c) })

	fy := base.Shallow()
	fy.Flip(YAxis)
	checkPixels(t, &fy, func(x, y, c int) uint8 { return pixelValue(x, base.Height()-1-y, c) })

	both := base.Shallow()
	both.Flip(BothAxes)
	checkPixels(t, &both, func(x, y, c int) uint8 {
		return pixelValue(base.Width()-1-x, base.Height()-1-y, c)
	})

	// involution
	fx.Flip(XAxis)
	checkPixels(t, &fx, func(x, y, c int) uint8 { return pixelValue(x, y, c) })
}

func TestFlipXY(t *testing.T) {
	base := testImage(t, 5, 3)
	tr := base.Shallow()
	tr.FlipXY()
	if tr.Width() != 3 || tr.Height() != 5 {
		t.Fatalf("transpose size: got %dx%d, want 3x5", tr.Width(), tr.Height())
	}
	checkPixels(t, &tr, func(x, y, c int) uint8 { return pixelValue(y, x, c) })

	tr.FlipXY()
	checkPixels(t, &tr, func(x, y, c int) uint8 { return pixelValue(x, y, c) })
}

func TestSelectChannel(t *testing.T) {
	im := testImage(t, 4, 4)
	g := im.SeparateChannel(1)
	if g.Channels() != 1 || g.ChannelTypes() != "k" {
		t.Fatalf("channel view: %d channels, types %q", g.Channels(), g.ChannelTypes())
	}
	checkPixels(t, &g, func(x, y, _ int) uint8 { return pixelValue(x, y, 1) })
	if !g.Buffer().SharesData(im.Buffer()) {
		t.Fatal("channel selection must not copy pixels")
	}
}

func TestFlattenIdempotent(t *testing.T) {
	im := testImage(t, 6, 4)
	im.CoarseRotate(1)
	if im.IsFlat() {
		t.Fatal("rotated view should not be flat")
	}
	im.Flatten()
	if !im.IsFlat() {
		t.Fatal("flatten should produce a flat view")
	}
	sx, sy := im.Strides()
	if sx != im.Channels() || sy != im.Channels()*im.Width() {
		t.Fatalf("strides after flatten: got (%d,%d), want (%d,%d)",
			sx, sy, im.Channels(), im.Channels()*im.Width())
	}
	// rotated content must survive the copy
	checkPixels(t, &im, func(x, y, c int) uint8 {
		return pixelValue(y, im.Width()-1-x, c)
	})

	data := im.Buffer()
	before := data.Data()
	im.Flatten()
	if &before[0] != &im.Buffer().Data()[0] {
		t.Fatal("second flatten must be a no-op")
	}
}

func TestMakeUniqueCopiesOnlyWhenShared(t *testing.T) {
	im := testImage(t, 4, 4)
	if !im.IsUnique(SelImage) {
		t.Fatal("fresh image should be unique")
	}

	view := im.Shallow()
	if im.IsUnique(SelImage) {
		t.Fatal("image with a live shallow view should not be unique")
	}

	view.MakeUnique(SelImage)
	if view.Buffer().SharesData(im.Buffer()) {
		t.Fatal("MakeUnique must detach the backing buffer")
	}

	// writes through the detached view must not reach the original
	view.Pix(0, 0)[0] = 99
	if im.Pix(0, 0)[0] == 99 {
		t.Fatal("write leaked into the original buffer")
	}
}

func TestComposedGeometry(t *testing.T) {
	// a crop inside a rotation addresses the geometrically transformed
	// original coordinates
	im := testImage(t, 8, 6)
	v := im.Shallow()
	v.CoarseRotate(1) // now 6x8
	v.Crop(1, 2, 3, 4)
	checkPixels(t, &v, func(x, y, c int) uint8 {
		rx, ry := x+1, y+2        // undo crop
		ox, oy := ry, 6-1-rx      // undo rotation (W_new = 6)
		return pixelValue(ox, oy, c)
	})
}

func TestReshapePanicsOnNonEmpty(t *testing.T) {
	im := testImage(t, 2, 2)
	defer func() {
		if recover() == nil {
			t.Fatal("reshape on non-empty image should panic")
		}
	}()
	im.Reshape(4, 4)
}

func TestClamp(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-5, 0},
		{0, 0},
		{127.9, 127},
		{255, 255},
		{300, 255},
	}
	for _, tc := range cases {
		if got := Clamp[uint8](tc.in); got != tc.want {
			t.Fatalf("Clamp(%g): got %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := Clamp[int16](40000); got != 32767 {
		t.Fatalf("Clamp[int16](40000): got %d", got)
	}
	if got := Clamp[float32](3.5); got != 3.5 {
		t.Fatalf("Clamp[float32](3.5): got %g", got)
	}
}
