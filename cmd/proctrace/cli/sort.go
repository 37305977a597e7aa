package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyproc/proctrace/internal/iohelpers"
	"github.com/tinyproc/proctrace/internal/logging"
	"github.com/tinyproc/proctrace/internal/sortrec"
)

var (
	sortInput  string
	sortOutput string
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Stable-sort a recording by timestamp",
	RunE:  runSort,
}

func init() {
	sortCmd.Flags().StringVarP(&sortInput, "input", "i", "", "input path, or - for stdin")
	sortCmd.Flags().StringVarP(&sortOutput, "output", "o", "-", "output path, or - for stdout")
	_ = sortCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(sortCmd)
}

func runSort(cmd *cobra.Command, args []string) error {
	in, err := iohelpers.OpenInput(sortInput)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := iohelpers.OpenOutput(sortOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := sortrec.Sort(out, in, func(line string, parseErr error) {
		logging.L().WithField("line", line).WithError(parseErr).Debug("unparseable line during sort")
	}); err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	return nil
}
