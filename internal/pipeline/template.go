package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrBadTemplate is returned when the output template has no trailing run
// of X characters in its stem.
var ErrBadTemplate = errors.New("pipeline: output template needs a trailing run of X characters in the stem")

// outputTemplate expands "path/nameXXXX.ext" into per-frame filenames:
// the X run is replaced with the zero-padded decimal frame index of
// matching width.
type outputTemplate struct {
	dir    string
	prefix string
	ext    string
	width  int
}

func parseTemplate(s string) (outputTemplate, error) {
	dir := filepath.Dir(s)
	base := filepath.Base(s)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	xstart := strings.LastIndexFunc(stem, func(r rune) bool { return r != 'X' }) + 1
	width := len(stem) - xstart
	if width == 0 {
		return outputTemplate{}, fmt.Errorf("%w: %q", ErrBadTemplate, s)
	}

	return outputTemplate{
		dir:    dir,
		prefix: stem[:xstart],
		ext:    ext,
		width:  width,
	}, nil
}

func (t outputTemplate) name(frame int) string {
	return filepath.Join(t.dir, fmt.Sprintf("%s%0*d%s", t.prefix, t.width, frame, t.ext))
}
