// Package pipeline schedules the per-frame render: it expands frame
// ranges, resolves the keyframe program for each frame index, and drives
// load → color transform → effects → store for every frame in order.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/AnyUserName/lapse/internal/cms"
	"github.com/AnyUserName/lapse/internal/effects"
	"github.com/AnyUserName/lapse/internal/hasher"
	"github.com/AnyUserName/lapse/internal/imgbuf"
	"github.com/AnyUserName/lapse/internal/imgio"
	"github.com/AnyUserName/lapse/internal/metadata"
	"github.com/AnyUserName/lapse/internal/program"
	"github.com/AnyUserName/lapse/internal/report"
)

// Config holds all parameters for a render run.
type Config struct {
	Files     []string
	Output    string // output filename template, e.g. out/frameXXXX.jpg
	Program   *program.Program
	Verbosity int
	Quality   int // JPEG encode quality, 0 means the codec default (95)
	Threads   int // resizer worker cap, 0 means one per hardware thread
	SizeHintW int
	SizeHintH int
}

// Processor renders frames one at a time through the effect pipeline.
type Processor struct {
	cfg      Config
	registry *effects.Registry
	files    *imgio.Registry
}

// New creates a configured processor.
func New(cfg Config) *Processor {
	reg := effects.NewRegistry()
	if cfg.Threads != 0 {
		reg.Register("cropresize", &effects.CropResize{MaxThreads: cfg.Threads})
	}

	files := imgio.NewRegistry()
	quality := cfg.Quality
	if quality <= 0 {
		quality = 95
	}
	files.SetOptions(imgio.Options{
		Quality:   quality,
		SizeHintW: cfg.SizeHintW,
		SizeHintH: cfg.SizeHintH,
		// orientation was already applied (or deliberately kept) upstream;
		// the render loop must not rotate again
		ObeyOrientation: false,
	})

	return &Processor{cfg: cfg, registry: reg, files: files}
}

func (p *Processor) logf(level int, format string, args ...any) {
	if p.cfg.Verbosity >= level {
		fmt.Fprintf(os.Stderr, "[lapse] "+format+"\n", args...)
	}
}

// Run renders every frame and returns the collected report.
func (p *Processor) Run() (*report.Report, error) {
	tpl, err := parseTemplate(p.cfg.Output)
	if err != nil {
		return nil, err
	}

	srgb, err := cms.FromBuiltin("sRGB")
	if err != nil {
		return nil, err
	}

	rep := report.New(p.cfg.Output)

	for i, file := range p.cfg.Files {
		start := time.Now()
		p.logf(1, "working on frame %d (%s)...", i, file)

		loader, err := p.files.Get(file)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		im, err := loader.Load(file)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		if err := p.applyEmbeddedProfile(&im, srgb); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		for _, name := range p.cfg.Program.Order {
			props := effects.PropertyMap(p.cfg.Program.Resolve(name, i))
			eff, err := p.registry.Get(name)
			if err != nil {
				return nil, err
			}
			if err := eff.Apply(&im, props, p.cfg.Verbosity); err != nil {
				return nil, fmt.Errorf("frame %d: %s: %w", i, name, err)
			}
		}

		outName := tpl.name(i)
		p.logf(1, "writing to %s...", outName)

		writer, err := p.files.Get(outName)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if err := writer.Write(outName, &im); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		frame := report.Frame{
			Index:  i,
			Source: file,
			Output: outName,
			Width:  im.Width(),
			Height: im.Height(),
			Millis: time.Since(start).Milliseconds(),
		}
		if info, err := os.Stat(outName); err == nil {
			frame.Size = info.Size()
		}
		if hash, err := hashFile(outName); err == nil {
			frame.Hash = hash
			p.logf(2, "frame %d digest %s (%d bytes)", i, hash, frame.Size)
		}
		rep.Add(frame)
	}

	rep.ComputeStats()
	return rep, nil
}

// applyEmbeddedProfile converts the pixels from the image's own ICC
// profile to sRGB in place. Profiles the engine cannot evaluate (LUT
// tables, exotic device spaces) log a warning and leave the pixels alone;
// structurally broken profiles fail the run.
func (p *Processor) applyEmbeddedProfile(im *imgbuf.Image8, srgb *cms.Profile) error {
	d, ok := im.GetMetadatum(metadata.TagICC)
	if !ok {
		return nil
	}

	prof, err := cms.FromMemory(d.Blob)
	if err != nil {
		if errors.Is(err, cms.ErrUnsupportedProfile) {
			p.logf(1, "warning: skipping color transform: %v", err)
			return nil
		}
		return err
	}

	format, err := cms.ImageFormat(im)
	if err != nil {
		p.logf(1, "warning: skipping color transform: %v", err)
		return nil
	}
	transform, err := cms.New(prof, format, srgb, format, cms.Perceptual)
	if err != nil {
		if errors.Is(err, cms.ErrUnsupportedFormat) {
			p.logf(1, "warning: skipping color transform: %v", err)
			return nil
		}
		return err
	}

	im.MakeUnique(imgbuf.SelImage)
	im.Flatten()
	data := im.Data()[:im.Size()]
	return transform.Apply(data, data, im.Width()*im.Height())
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hasher.ContentHashReader(f, 16)
}
