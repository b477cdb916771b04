// Package effects implements the per-frame image transformations and the
// registry that dispatches them by name. Effects are stateful instances:
// mode switches like exposure's use_xyz or white balance's use_lms stick
// once a keyframe sets them, so later frames of the same run keep the
// configured behavior.
package effects

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AnyUserName/lapse/internal/imgbuf"
)

// ErrUnknown is returned when an effect name is not registered.
var ErrUnknown = errors.New("effects: unknown effect")

// PropertyMap carries the interpolated keyframe properties for one frame.
// Absent keys take each effect's documented default.
type PropertyMap map[string]float64

// Effect transforms an image in place given the frame's properties.
// verb is the verbosity level; effects narrate at verb >= 2.
type Effect interface {
	Apply(im *imgbuf.Image8, props PropertyMap, verb int) error
}

// Registry maps effect names to their instances. It is populated once
// before frames are scheduled and never mutated during processing.
type Registry struct {
	effects map[string]Effect
}

// NewRegistry returns a registry with the built-in effects.
func NewRegistry() *Registry {
	r := &Registry{effects: make(map[string]Effect)}
	r.Register("exposure", NewExposure())
	r.Register("whitebalance", NewWhiteBalance())
	r.Register("cropresize", &CropResize{})
	r.Register("pad", &Pad{})
	return r
}

// Register adds or replaces an effect under name.
func (r *Registry) Register(name string, e Effect) {
	r.effects[name] = e
}

// Get returns the effect registered under name.
func (r *Registry) Get(name string) (Effect, error) {
	e, ok := r.effects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return e, nil
}

// Names returns all registered effect names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.effects))
	for name := range r.effects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
