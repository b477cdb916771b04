package effects

import (
	"math"
	"testing"

	"github.com/AnyUserName/lapse/internal/imgbuf"
)

func TestColorFromTemp(t *testing.T) {
	// D65-ish daylight at 6500 K
	c := colorFromTemp(6500)
	if math.Abs(c.x-0.3135) > 0.002 || math.Abs(c.y-0.3237) > 0.002 {
		t.Fatalf("6500K: got (%g,%g), want ≈(0.3135,0.3237)", c.x, c.y)
	}
	// out of the valid range
	if c := colorFromTemp(1000); c != (chroma{}) {
		t.Fatalf("1000K: got %v, want zero", c)
	}
	if c := colorFromTemp(30000); c != (chroma{}) {
		t.Fatalf("30000K: got %v, want zero", c)
	}
}

func TestBradfordRoundTrip(t *testing.T) {
	in := tristimulus{X: 0.4, Y: 0.7, Z: 0.2}
	out := lmsToXYZ(toLMS(in))
	if math.Abs(out.X-in.X) > 1e-3 || math.Abs(out.Y-in.Y) > 1e-3 || math.Abs(out.Z-in.Z) > 1e-3 {
		t.Fatalf("roundtrip: got %+v, want %+v", out, in)
	}
}

// Shifting the source neutral to the (default) neutral gray target must
// turn pixels of exactly the source color neutral.
func TestSourceColorBecomesNeutral(t *testing.T) {
	im := solidImage(4, 4, 200, 100, 50)
	w := NewWhiteBalance()
	props := PropertyMap{"srcr": 200, "srcg": 100, "srcb": 50, "overblow_prot": 0}
	if err := w.Apply(&im, props, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	p := im.Pix(1, 1)
	maxC := int(p[0])
	minC := int(p[0])
	for _, v := range p[1:] {
		if int(v) > maxC {
			maxC = int(v)
		}
		if int(v) < minC {
			minC = int(v)
		}
	}
	if maxC-minC > 4 {
		t.Fatalf("source color not neutralized: got (%d,%d,%d)", p[0], p[1], p[2])
	}
}

func TestNeutralSourceIsNearIdentity(t *testing.T) {
	// gray source, gray target: the adaptation factors are 1
	im := solidImage(3, 3, 128, 128, 128)
	w := NewWhiteBalance()
	props := PropertyMap{"srcr": 128, "srcg": 128, "srcb": 128, "overblow_prot": 0}
	if err := w.Apply(&im, props, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	checkSolid(t, &im, 128, 128, 128, 2)
}

func TestOutOfRangeTemperatureIsNoOp(t *testing.T) {
	im := solidImage(2, 2, 10, 200, 30)
	w := NewWhiteBalance()
	if err := w.Apply(&im, PropertyMap{"temp": 500}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	checkSolid(t, &im, 10, 200, 30, 0)
}

func TestOverblowProtection(t *testing.T) {
	var im imgbuf.Image8
	im.Reshape(2, 1)
	im.SetChannelTypes("rgb")
	im.Allocate()
	// one clipped pixel, one normal
	copy(im.Pix(0, 0), []uint8{255, 255, 200})
	copy(im.Pix(1, 0), []uint8{120, 130, 140})

	w := NewWhiteBalance()
	props := PropertyMap{"temp": 3000, "overblow_prot": 1}
	if err := w.Apply(&im, props, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}

	p := im.Pix(0, 0)
	if p[0] != 255 || p[1] != 255 {
		t.Fatalf("overblown channels must stay pegged: got (%d,%d,%d)", p[0], p[1], p[2])
	}
}

func TestWhiteBalanceShiftsColors(t *testing.T) {
	im := solidImage(3, 3, 128, 128, 128)
	w := NewWhiteBalance()
	// warm the image up: shift daylight reference toward tungsten
	if err := w.Apply(&im, PropertyMap{"temp": 3000, "overblow_prot": 0}, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	p := im.Pix(1, 1)
	if !(p[0] > p[2]) {
		t.Fatalf("3000K target should warm the image: got (%d,%d,%d)", p[0], p[1], p[2])
	}
}

func TestXrelYrelUnityIsIdentity(t *testing.T) {
	im := solidImage(3, 3, 90, 150, 60)
	w := NewWhiteBalance()
	props := PropertyMap{"xrel": 1, "yrel": 1, "overblow_prot": 0}
	if err := w.Apply(&im, props, 0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	checkSolid(t, &im, 90, 150, 60, 2)
}

func TestWhiteBalanceRequiresRGB(t *testing.T) {
	var im imgbuf.Image8
	im.Reshape(2, 2)
	im.SetChannelTypes("k")
	im.Allocate()
	w := NewWhiteBalance()
	if err := w.Apply(&im, PropertyMap{"temp": 5000}, 0); err == nil {
		t.Fatal("expected an error for non-RGB input")
	}
}
