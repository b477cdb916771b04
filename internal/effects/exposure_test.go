package effects

import (
	"errors"
	"testing"

	"github.com/AnyUserName/lapse/internal/exifprops"
	"github.com/AnyUserName/lapse/internal/imgbuf"
)

func solidImage(w, h int, r, g, b uint8) imgbuf.Image8 {
	var im imgbuf.Image8
	im.Reshape(w, h)
	im.SetChannelTypes("rgb")
	im.Allocate()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := im.Pix(x, y)
			p[0], p[1], p[2] = r, g, b
		}
	}
	return im
}

func checkSolid(t *testing.T, im *imgbuf.Image8, r, g, b uint8, tol int) {
	t.Helper()
	for y := 0; y < im.Height(); y++ {
		for x := 0; x < im.Width(); x++ {
			p := im.Pix(x, y)
			for c, want := range []uint8{r, g, b} {
				if d := int(p[c]) - int(want); d < -tol || d > tol {
					t.Fatalf("pixel (%d,%d,%d): got %d, want %d±%d", x, y, c, p[c], want, tol)
				}
			}
		}
	}
}

func TestExposureZeroIsIdentity(t *testing.T) {
	im := solidImage(4, 4, 100, 150, 200)
	e := NewExposure()
	if err := e.Apply(&im, PropertyMap{"evrel": 0}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	checkSolid(t, &im, 100, 150, 200, 0)
}

func TestExposureDoublesPerStop(t *testing.T) {
	im := solidImage(4, 4, 64, 100, 10)
	e := NewExposure()
	if err := e.Apply(&im, PropertyMap{"evrel": 1}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	checkSolid(t, &im, 128, 200, 20, 0)
}

func TestExposureClampsAtWhite(t *testing.T) {
	im := solidImage(2, 2, 200, 255, 128)
	e := NewExposure()
	if err := e.Apply(&im, PropertyMap{"evrel": 1}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	checkSolid(t, &im, 255, 255, 255, 0)
}

func TestExposureComposesToIdentity(t *testing.T) {
	im := solidImage(3, 3, 100, 60, 20)
	e := NewExposure()
	if err := e.Apply(&im, PropertyMap{"evrel": 1}, 0); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := e.Apply(&im, PropertyMap{"evrel": -1}, 0); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	checkSolid(t, &im, 100, 60, 20, 0)
}

func TestExposureHalfStop(t *testing.T) {
	im := solidImage(2, 2, 128, 128, 128)
	e := NewExposure()
	if err := e.Apply(&im, PropertyMap{"evrel": 0.5}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// 128 * 2^0.5 = 181.02
	checkSolid(t, &im, 181, 181, 181, 0)
}

func TestExposureXYZModeRoundTrips(t *testing.T) {
	im := solidImage(3, 3, 90, 140, 210)
	e := NewExposure()
	// use_xyz sticks; a zero shift through the XYZ staging path must be
	// near-identity
	if err := e.Apply(&im, PropertyMap{"use_xyz": 1, "evrel": 0}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	checkSolid(t, &im, 90, 140, 210, 2)
}

func TestExposureUseXYZPersists(t *testing.T) {
	e := NewExposure()
	im := solidImage(2, 2, 50, 50, 50)
	if err := e.Apply(&im, PropertyMap{"use_xyz": 1, "evrel": 0}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !e.useXYZ {
		t.Fatal("use_xyz should persist on the effect instance")
	}
	// later frame without the property keeps the mode
	if err := e.Apply(&im, PropertyMap{"evrel": 0}, 0); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if !e.useXYZ {
		t.Fatal("use_xyz was reset by a frame that did not mention it")
	}
}

func TestExposureEV100NeedsExif(t *testing.T) {
	im := solidImage(2, 2, 100, 100, 100)
	e := NewExposure()
	err := e.Apply(&im, PropertyMap{"ev100": 12}, 0)
	if !errors.Is(err, exifprops.ErrNoExif) {
		t.Fatalf("got %v, want ErrNoExif", err)
	}
}

func TestExposureNoPropertiesIsNoOp(t *testing.T) {
	im := solidImage(2, 2, 33, 44, 55)
	e := NewExposure()
	if err := e.Apply(&im, PropertyMap{}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	checkSolid(t, &im, 33, 44, 55, 0)
}
