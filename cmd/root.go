package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	verbosity   int
	quiet       bool
	effectsStr  string
	effectsFile string
)

var rootCmd = &cobra.Command{
	Use:   "lapse [flags] <first> <last> [<first> <last> ...]",
	Short: "Render smooth photographic time-lapse sequences",
	Long: `lapse applies a keyframed pipeline of image effects (exposure, white
balance, crop-resize, pad) to an ordered run of JPEG frames. Effect
properties are linearly interpolated between keyframes, so a sequence
fades smoothly from one look to another.

Frames are given as <first_file> <last_file> pairs whose names share a
prefix, a run of digits and a suffix; every file in-between is processed.
Several pairs concatenate. With --single, one file is processed — handy
for testing parameters.

The effects program is a whitespace-separated list of keyframe labels
("0:", "42:") and assignments ("exposure.evrel=1.5").`,
	Version:      version,
	Args:         cobra.ArbitraryArgs,
	RunE:         runRender,
	SilenceUsage: true,
}

// Execute runs the CLI; a non-nil return means exit code 1.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 1, "select verbosity level")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "set verbosity to 0")
	rootCmd.PersistentFlags().StringVarP(&effectsStr, "effects", "e", "",
		"list of keyframed effects to be executed")
	rootCmd.PersistentFlags().StringVarP(&effectsFile, "effects-file", "f", "",
		"get list of effects from file")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"lapse %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// effectiveVerbosity folds --quiet into the verbosity level.
func effectiveVerbosity() int {
	if quiet {
		return 0
	}
	return verbosity
}

// effectsSource resolves the program text from --effects/--effects-file.
func effectsSource() (string, error) {
	if effectsStr != "" && effectsFile != "" {
		return "", fmt.Errorf("please specify either --effects or --effects-file, not both")
	}
	if effectsFile != "" {
		data, err := os.ReadFile(effectsFile)
		if err != nil {
			return "", fmt.Errorf("read effects file: %w", err)
		}
		return string(data), nil
	}
	return effectsStr, nil
}
