package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/lapse/internal/pipeline"
	"github.com/AnyUserName/lapse/internal/program"
	"github.com/AnyUserName/lapse/internal/report"
)

var (
	renderSingle   bool
	renderOutput   string
	renderQuality  int
	renderThreads  int
	renderSizeHint string
	renderReport   string
)

func init() {
	rootCmd.Flags().BoolVarP(&renderSingle, "single", "s", false, "single file processing")
	rootCmd.Flags().StringVarP(&renderOutput, "output", "o", "",
		"format for output files, in the form [path/]nameXXXX.ext; the X's are "+
			"replaced with the zero-padded frame index")
	rootCmd.Flags().IntVar(&renderQuality, "quality", 95, "JPEG output quality 1-100")
	rootCmd.Flags().IntVar(&renderThreads, "threads", 0, "resizer worker cap (0 = hardware threads)")
	rootCmd.Flags().StringVar(&renderSizeHint, "size-hint", "",
		"approximate output size WxH; lets the decoder return reduced images")
	rootCmd.Flags().StringVar(&renderReport, "report", "", "write a JSON render report to this path")
}

func runRender(_ *cobra.Command, args []string) error {
	verb := effectiveVerbosity()
	start := time.Now()

	if len(args) == 0 {
		return fmt.Errorf("need some input files")
	}
	if renderSingle && len(args) != 1 {
		return fmt.Errorf("in single operation mode, a single input file is expected")
	}
	if renderOutput == "" {
		return fmt.Errorf("need an output file name template")
	}

	var files []string
	if renderSingle {
		files = args
	} else {
		var err error
		files, err = pipeline.ExpandRanges(args)
		if err != nil {
			return err
		}
	}
	if err := pipeline.CheckMissing(files); err != nil {
		return err
	}

	src, err := effectsSource()
	if err != nil {
		return err
	}
	prog, err := program.Parse(src)
	if err != nil {
		return err
	}

	hintW, hintH, err := parseSizeHint(renderSizeHint)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Config{
		Files:     files,
		Output:    renderOutput,
		Program:   prog,
		Verbosity: verb,
		Quality:   renderQuality,
		Threads:   renderThreads,
		SizeHintW: hintW,
		SizeHintH: hintH,
	})

	rep, err := p.Run()
	if err != nil {
		return err
	}

	if renderReport != "" {
		if err := report.WriteJSON(rep, renderReport); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if verb >= 1 {
		printRenderReport(rep, time.Since(start))
	}
	return nil
}

func parseSizeHint(s string) (int, int, error) {
	if s == "" {
		return 0, 0, nil
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size hint %q, expected WxH", s)
	}
	return w, h, nil
}

func printRenderReport(rep *report.Report, elapsed time.Duration) {
	fmt.Println()
	fmt.Printf("  Frames:      %d\n", rep.Stats.TotalFrames)
	fmt.Printf("  Output size: %s\n", formatBytes(rep.Stats.TotalOutputBytes))
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
