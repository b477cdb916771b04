// Package resizer resamples images through a pluggable sampler. A resize
// is separable: when both dimensions change it runs two passes through an
// intermediate buffer, scaling the more strongly reduced axis first to
// keep the intermediate small. Each pass splits the output's longer
// dimension into stripes and fans them out over worker goroutines.
package resizer

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/AnyUserName/lapse/internal/imgbuf"
	"github.com/AnyUserName/lapse/internal/sampler"
)

// ErrNoSampler is returned by Resize when no sampler has been set.
var ErrNoSampler = errors.New("resizer: no sampler set")

// ProgressFunc is notified with the completed fraction of the resize.
// Returning false requests cancellation; workers finish the current row
// and exit, leaving the result partially filled.
type ProgressFunc func(fraction float32) bool

// Resizer resamples images. The zero value has no sampler; configure with
// SetSampler before use. A Resizer is not safe for concurrent Resize
// calls.
type Resizer[T imgbuf.Element] struct {
	sampler    sampler.Sampler[T]
	progress   ProgressFunc
	maxThreads int

	pixelsOffset int64
	totalPixels  int64
	slots        []atomic.Int64
	notifyMu     sync.Mutex
	cancelled    atomic.Bool
}

// New returns a Resizer without a sampler.
func New[T imgbuf.Element]() *Resizer[T] {
	return &Resizer[T]{}
}

// SetSampler installs the sampler used for every output pixel.
func (r *Resizer[T]) SetSampler(s sampler.Sampler[T]) { r.sampler = s }

// SetProgress installs a progress callback.
func (r *Resizer[T]) SetProgress(p ProgressFunc) { r.progress = p }

// SetMaxThreads limits worker count; 0 means one worker per hardware
// thread, 1 forces single-threaded execution.
func (r *Resizer[T]) SetMaxThreads(n int) { r.maxThreads = n }

// Resize returns the image resampled to width × height. The result's
// pixel data is always uniquely owned; metadata and channel types are
// shallow-copied from the input. When the target equals the source size
// only the pixels are deep-copied.
func (r *Resizer[T]) Resize(im *imgbuf.Image[T], width, height int) (imgbuf.Image[T], error) {
	if width == im.Width() && height == im.Height() {
		result := im.Shallow()
		result.MakeUnique(imgbuf.SelImage)
		return result, nil
	}

	scaleX := float32(width) / float32(im.Width())
	scaleY := float32(height) / float32(im.Height())

	var result imgbuf.Image[T]
	result.Reshape(width, height)
	result.SetChannelCount(im.Channels())
	result.Allocate()

	r.pixelsOffset = 0
	r.totalPixels = int64(width) * int64(height)
	r.cancelled.Store(false)

	var err error
	switch {
	case width == im.Width():
		err = r.doResize(im, &result, sampler.Vertical)
	case height == im.Height():
		err = r.doResize(im, &result, sampler.Horizontal)
	default:
		// Two passes through an intermediate buffer; the axis with the
		// smaller scale factor goes first so the intermediate stays small.
		var interm imgbuf.Image[T]
		interm.SetChannelCount(im.Channels())
		if scaleX < scaleY {
			interm.Reshape(width, im.Height())
			interm.Allocate()

			partial := int64(interm.Width()) * int64(interm.Height())
			r.totalPixels += partial

			if err = r.doResize(im, &interm, sampler.Horizontal); err == nil {
				r.pixelsOffset = partial
				err = r.doResize(&interm, &result, sampler.Vertical)
			}
		} else {
			interm.Reshape(im.Width(), height)
			interm.Allocate()

			partial := int64(interm.Width()) * int64(interm.Height())
			r.totalPixels += partial

			if err = r.doResize(im, &interm, sampler.Vertical); err == nil {
				r.pixelsOffset = partial
				err = r.doResize(&interm, &result, sampler.Horizontal)
			}
		}
	}
	if err != nil {
		return imgbuf.Image[T]{}, err
	}

	imgbuf.CopyMetadataFrom(&result, im)
	result.SetChannelTypes(im.ChannelTypes())

	if r.progress != nil {
		r.progress(1)
	}
	return result, nil
}

func (r *Resizer[T]) doResize(im, result *imgbuf.Image[T], dir sampler.Direction) error {
	if r.sampler == nil {
		return ErrNoSampler
	}

	width := result.Width()
	height := result.Height()

	hwThreads := runtime.NumCPU()
	nThreads := hwThreads
	if r.maxThreads != 0 && r.maxThreads < nThreads {
		nThreads = r.maxThreads
	}
	// never more than one worker per four output lines
	maxDim := width
	if height > maxDim {
		maxDim = height
	}
	if limit := maxDim / 4; nThreads > limit {
		nThreads = limit
	}
	if nThreads < 1 {
		nThreads = 1
	}

	r.slots = make([]atomic.Int64, nThreads)
	if nThreads == 1 {
		r.resizeStripe(im, result, 0, 0, width, height, 0, dir)
		return nil
	}

	// split the output along its longer dimension into contiguous stripes
	step := float32(maxDim) / float32(nThreads)

	var wg sync.WaitGroup
	for i := 0; i < nThreads; i++ {
		lo, hi := int(float32(i)*step), int(float32(i+1)*step)
		if i == nThreads-1 {
			// the last stripe absorbs the rounding remainder
			hi = maxDim
		}
		var x1, y1, x2, y2 int
		if width > height {
			x1, x2 = lo, hi
			y1, y2 = 0, height
		} else {
			x1, x2 = 0, width
			y1, y2 = lo, hi
		}

		wg.Add(1)
		go func(x1, y1, x2, y2, idx int) {
			defer wg.Done()
			r.resizeStripe(im, result, x1, y1, x2, y2, idx, dir)
		}(x1, y1, x2, y2, i)
	}
	wg.Wait()
	return nil
}

// resizeStripe fills output pixels in [x1, x2) × [y1, y2).
func (r *Resizer[T]) resizeStripe(im, result *imgbuf.Image[T],
	x1, y1, x2, y2, idx int, dir sampler.Direction) {

	factorX := float32(im.Width()) / float32(result.Width())
	factorY := float32(im.Height()) / float32(result.Height())

	// widen the kernel when down-sampling so nothing aliases
	filterScaleX := float32(1)
	if factorX > 1 {
		filterScaleX = factorX
	}
	filterScaleY := float32(1)
	if factorY > 1 {
		filterScaleY = factorY
	}

	stripeWidth := int64(x2 - x1)
	origj := float32(y1) * factorY
	for j := y1; j < y2; j, origj = j+1, origj+factorY {
		origi := float32(x1) * factorX
		for i := x1; i < x2; i, origi = i+1, origi+factorX {
			r.sampler.Get(im, origi, origj, result.Pix(i, j), dir, filterScaleX, filterScaleY)
		}
		if !r.notify(idx, int64(j-y1+1)*stripeWidth) {
			break
		}
	}
}

// notify publishes the worker's completed-pixel count and reports overall
// progress. Returns false once cancellation was requested.
func (r *Resizer[T]) notify(idx int, pixels int64) bool {
	if r.progress == nil {
		return true
	}
	r.slots[idx].Store(pixels)
	if r.cancelled.Load() {
		return false
	}
	var all int64
	for i := range r.slots {
		all += r.slots[i].Load()
	}
	r.notifyMu.Lock()
	ok := r.progress(float32(r.pixelsOffset+all) / float32(r.totalPixels))
	r.notifyMu.Unlock()
	if !ok {
		r.cancelled.Store(true)
	}
	return ok
}
