// Package imgio dispatches image loading and storing by filename
// extension. The registry holds one loader per extension; looking a file
// up also pushes the caller's settings (quality, size hint, progress,
// orientation handling) into the loader.
package imgio

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AnyUserName/lapse/internal/imgbuf"
	"github.com/AnyUserName/lapse/internal/jpegio"
)

// ErrUnknownExtension is returned for files no loader is registered for.
var ErrUnknownExtension = errors.New("imgio: unrecognized extension")

// Loader reads and writes one image file format.
type Loader interface {
	Load(path string) (imgbuf.Image8, error)
	Write(path string, im *imgbuf.Image8) error
	Inspect(path string) (jpegio.Header, error)

	SetQuality(q int)
	SetSizeHint(w, h int)
	SetProgress(p jpegio.ProgressFunc)
	SetObeyOrientation(b bool)
}

// Options are the per-run loader settings pushed on every lookup.
type Options struct {
	Quality         int
	SizeHintW       int
	SizeHintH       int
	Progress        jpegio.ProgressFunc
	ObeyOrientation bool
}

// Registry maps extensions (with the dot, lower-case) to loaders.
type Registry struct {
	loaders map[string]Loader
	opts    Options
}

// NewRegistry returns a registry with the built-in loaders registered.
func NewRegistry() *Registry {
	r := &Registry{
		loaders: make(map[string]Loader),
		opts:    Options{Quality: jpegio.DefaultQuality, ObeyOrientation: true},
	}
	jpg := jpegio.New()
	r.Register(".jpg", jpg)
	r.Register(".jpeg", jpg)
	return r
}

// Register adds a loader for an extension (including the dot).
func (r *Registry) Register(ext string, l Loader) {
	r.loaders[strings.ToLower(ext)] = l
}

// SetOptions stores the settings applied to loaders on lookup.
func (r *Registry) SetOptions(opts Options) { r.opts = opts }

// Get returns the loader responsible for path, configured with the
// registry's current options.
func (r *Registry) Get(path string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}
	l.SetQuality(r.opts.Quality)
	l.SetSizeHint(r.opts.SizeHintW, r.opts.SizeHintH)
	l.SetProgress(r.opts.Progress)
	l.SetObeyOrientation(r.opts.ObeyOrientation)
	return l, nil
}

// Extensions returns all registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
