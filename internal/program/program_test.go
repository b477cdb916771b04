package program

import (
	"errors"
	"math"
	"testing"
)

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	p, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return p
}

func TestParseRecordsDeclarationOrder(t *testing.T) {
	p := mustParse(t, "pad.target_w=160 exposure.evrel=0 0: pad.target_h=90 2: exposure.evrel=1")
	if len(p.Order) != 2 || p.Order[0] != "pad" || p.Order[1] != "exposure" {
		t.Fatalf("order: got %v, want [pad exposure]", p.Order)
	}
}

func TestParseWhitespaceInsensitive(t *testing.T) {
	variants := []string{
		"exposure.evrel=1 5: exposure.evrel=2",
		"exposure.evrel = 1\n5 :\texposure.evrel\t=\t2",
		"  exposure.evrel=1   5:exposure.evrel=2  ",
	}
	for _, src := range variants {
		p := mustParse(t, src)
		kf := p.Keyframes("exposure", "evrel")
		if kf == nil || kf.Len() != 2 {
			t.Fatalf("%q: expected 2 keyframes, got %v", src, kf)
		}
		if f, v := kf.At(1); f != 5 || v != 2 {
			t.Fatalf("%q: keyframe 1: got (%d,%g), want (5,2)", src, f, v)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"exposure.evrel 1",     // missing =
		"abc: exposure.ev=1",   // non-integer keyframe
		"exposure.evrel=xyz",   // non-numeric value
		"noproperty=1",         // missing dot
		".prop=1",              // empty effect name
		"effect.=1",            // empty property name
		"a.b.c=1",              // two dots
		"exposure.evrel=",      // dangling assignment
	}
	for _, src := range cases {
		_, err := Parse(src)
		if err == nil {
			t.Fatalf("Parse(%q): expected error", src)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Parse(%q): %v is not a ParseError", src, err)
		}
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("exposure.evrel=1 4: oops oops")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want ParseError", err)
	}
	if pe.Pos <= 0 {
		t.Fatalf("position: got %d, want > 0", pe.Pos)
	}
}

func TestInterpolationLaw(t *testing.T) {
	// keyframes (2, 10) and (10, 50)
	p := mustParse(t, "2: fx.v=10 10: fx.v=50")
	kf := p.Keyframes("fx", "v")

	cases := []struct {
		frame int
		want  float64
		set   bool
	}{
		{0, 0, false}, // before the first keyframe: unset
		{1, 0, false},
		{2, 10, true},  // exactly at k1
		{6, 30, true},  // midpoint
		{9, 45, true},  // 7/8 of the way
		{10, 50, true}, // exactly at k2
		{11, 50, true}, // beyond: hold the last value
		{100, 50, true},
	}
	for _, tc := range cases {
		got, ok := kf.Resolve(tc.frame)
		if ok != tc.set {
			t.Fatalf("frame %d: set=%v, want %v", tc.frame, ok, tc.set)
		}
		if ok && math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("frame %d: got %g, want %g", tc.frame, got, tc.want)
		}
	}
}

func TestInterpolationExactFraction(t *testing.T) {
	p := mustParse(t, "0: fx.v=0 3: fx.v=1")
	kf := p.Keyframes("fx", "v")
	got, ok := kf.Resolve(1)
	if !ok {
		t.Fatal("frame 1 should resolve")
	}
	if want := 1.0 / 3.0; math.Abs(got-want) > 1e-15 {
		t.Fatalf("got %.18f, want %.18f", got, want)
	}
}

func TestSingleKeyframeHolds(t *testing.T) {
	p := mustParse(t, "3: fx.v=7")
	kf := p.Keyframes("fx", "v")

	if _, ok := kf.Resolve(2); ok {
		t.Fatal("frame before the only keyframe should be unset")
	}
	for _, frame := range []int{3, 4, 1000} {
		got, ok := kf.Resolve(frame)
		if !ok || got != 7 {
			t.Fatalf("frame %d: got (%g,%v), want (7,true)", frame, got, ok)
		}
	}
}

func TestResolveOmitsUnsetProperties(t *testing.T) {
	p := mustParse(t, "0: fx.a=1 5: fx.b=2")
	props := p.Resolve("fx", 2)
	if _, ok := props["b"]; ok {
		t.Fatal("property b should be unset before its first keyframe")
	}
	if v, ok := props["a"]; !ok || v != 1 {
		t.Fatalf("property a: got (%g,%v), want (1,true)", v, ok)
	}
}

func TestKeyframeBeforeLabelDefaultsToZero(t *testing.T) {
	// assignments before any label land on keyframe 0
	p := mustParse(t, "fx.v=4")
	kf := p.Keyframes("fx", "v")
	if f, v := kf.At(0); f != 0 || v != 4 {
		t.Fatalf("got (%d,%g), want (0,4)", f, v)
	}
}

func TestFloatAndNegativeValues(t *testing.T) {
	p := mustParse(t, "0: fx.v=-1.5 4: fx.v=2.25")
	got, _ := p.Keyframes("fx", "v").Resolve(2)
	if want := 0.375; math.Abs(got-want) > 1e-12 {
		t.Fatalf("got %g, want %g", got, want)
	}
}
