package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/lapse/internal/imgio"
)

var inspectRaw bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show an image file's header without decoding the pixels",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false,
		"report stored dimensions, ignoring the EXIF orientation tag")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	files := imgio.NewRegistry()
	files.SetOptions(imgio.Options{ObeyOrientation: !inspectRaw})

	loader, err := files.Get(args[0])
	if err != nil {
		return err
	}
	hdr, err := loader.Inspect(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("  File:       %s\n", args[0])
	fmt.Printf("  Size:       %d x %d\n", hdr.Width, hdr.Height)
	fmt.Printf("  Components: %d\n", hdr.Comps)
	fmt.Printf("  Colorspace: %s\n", hdr.Colorspace)
	return nil
}
