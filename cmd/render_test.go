package cmd

import "testing"

func TestParseSizeHint(t *testing.T) {
	cases := []struct {
		in   string
		w, h int
		ok   bool
	}{
		{"", 0, 0, true},
		{"1920x1080", 1920, 1080, true},
		{"640X480", 640, 480, true},
		{"bogus", 0, 0, false},
		{"0x100", 0, 0, false},
		{"-1x5", 0, 0, false},
	}
	for _, tc := range cases {
		w, h, err := parseSizeHint(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("parseSizeHint(%q): err=%v, want ok=%v", tc.in, err, tc.ok)
		}
		if err == nil && (w != tc.w || h != tc.h) {
			t.Fatalf("parseSizeHint(%q): got %dx%d, want %dx%d", tc.in, w, h, tc.w, tc.h)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Fatalf("formatBytes(%d): got %q, want %q", tc.in, got, tc.want)
		}
	}
}
