package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/lapse/internal/program"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate an effects program and summarize its keyframes",
	Long: `Parses the program given with --effects or --effects-file without
touching any image files, then lists every effect with its properties and
keyframe spans. Parse errors are reported with their byte position.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, _ []string) error {
	src, err := effectsSource()
	if err != nil {
		return err
	}
	prog, err := program.Parse(src)
	if err != nil {
		return err
	}

	if len(prog.Order) == 0 {
		fmt.Println("  Program is valid (no effects)")
		return nil
	}

	fmt.Println("  Program is valid")
	for _, effect := range prog.Order {
		fmt.Printf("  %s:\n", effect)
		for _, prop := range prog.PropertyNames(effect) {
			kf := prog.Keyframes(effect, prop)
			first, _ := kf.At(0)
			last, _ := kf.At(kf.Len() - 1)
			fmt.Printf("    %-16s %d keyframe(s), frames %d-%d\n",
				prop, kf.Len(), first, last)
		}
	}
	return nil
}
