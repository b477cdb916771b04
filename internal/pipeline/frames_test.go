package pipeline

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitFile(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		suffix string
		digits int
		n      int
	}{
		{"img0042.jpg", "img", ".jpg", 4, 42},
		{"frame7.jpeg", "frame", ".jpeg", 1, 7},
		{"shots/a01.jpg", "shots/a", ".jpg", 2, 1},
		{"plain.jpg", "plain", ".jpg", 0, 0},
		{"123.jpg", "", ".jpg", 3, 123},
		{"noext12", "noext", "", 2, 12},
	}
	for _, tc := range cases {
		got, err := splitFile(tc.name)
		if err != nil {
			t.Fatalf("splitFile(%q): %v", tc.name, err)
		}
		if got.prefix != tc.prefix || got.suffix != tc.suffix ||
			got.digits != tc.digits || got.n != tc.n {
			t.Fatalf("splitFile(%q): got %+v", tc.name, got)
		}
	}

	if _, err := splitFile(""); err == nil {
		t.Fatal("empty name should error")
	}
}

func TestExpandRanges(t *testing.T) {
	files, err := ExpandRanges([]string{"img08.jpg", "img11.jpg"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"img08.jpg", "img09.jpg", "img10.jpg", "img11.jpg"}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("file %d: got %q, want %q", i, files[i], want[i])
		}
	}
}

func TestExpandRangesConcatenates(t *testing.T) {
	files, err := ExpandRanges([]string{"a1.jpg", "a2.jpg", "b7.jpg", "b8.jpg"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(files) != 4 || files[0] != "a1.jpg" || files[3] != "b8.jpg" {
		t.Fatalf("got %v", files)
	}
}

func TestExpandRangesErrors(t *testing.T) {
	cases := [][]string{
		{"a1.jpg"},                      // odd count
		{"a1.jpg", "b2.jpg"},            // prefix mismatch
		{"a1.jpg", "a2.png"},            // suffix mismatch
		{"a01.jpg", "a2.jpg"},           // digit-width mismatch
		{"a5.jpg", "a2.jpg"},            // decreasing
	}
	for _, args := range cases {
		if _, err := ExpandRanges(args); err == nil {
			t.Fatalf("ExpandRanges(%v): expected error", args)
		}
	}
}

func TestCheckMissingReportsAtMostFive(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i := 0; i < 10; i++ {
		files = append(files, filepath.Join(dir, "gone", "fXX.jpg"))
	}
	err := CheckMissing(files)
	if err == nil {
		t.Fatal("expected an error for missing files")
	}
	msg := err.Error()
	if got := strings.Count(msg, "fXX.jpg"); got != maxMissingReport {
		t.Fatalf("listed %d names, want %d (message: %s)", got, maxMissingReport, msg)
	}
	if !strings.Contains(msg, ", ...") {
		t.Fatalf("message should elide the rest: %s", msg)
	}
}

func TestCheckMissingFewerThanLimit(t *testing.T) {
	err := CheckMissing([]string{"/nonexistent/one.jpg"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if strings.Contains(err.Error(), "...") {
		t.Fatalf("no elision expected: %s", err.Error())
	}
}

func TestParseTemplate(t *testing.T) {
	tpl, err := parseTemplate("out/frameXXXX.jpg")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tpl.name(7); got != filepath.Join("out", "frame0007.jpg") {
		t.Fatalf("name(7): got %q", got)
	}
	if got := tpl.name(12345); got != filepath.Join("out", "frame12345.jpg") {
		t.Fatalf("name(12345): got %q", got)
	}
}

func TestParseTemplateAllX(t *testing.T) {
	tpl, err := parseTemplate("XX.jpg")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := tpl.name(3); got != "03.jpg" {
		t.Fatalf("name(3): got %q", got)
	}
}

func TestParseTemplateRejectsMissingX(t *testing.T) {
	for _, s := range []string{"out/frame.jpg", "frameX2.jpg"} {
		if _, err := parseTemplate(s); !errors.Is(err, ErrBadTemplate) {
			t.Fatalf("parseTemplate(%q): got %v, want ErrBadTemplate", s, err)
		}
	}
}
