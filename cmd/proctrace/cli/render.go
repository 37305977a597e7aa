package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyproc/proctrace/internal/iohelpers"
	"github.com/tinyproc/proctrace/internal/logging"
	"github.com/tinyproc/proctrace/internal/render"
)

var (
	renderInput       string
	renderDisplayMode string
	renderOutput      string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a sorted recording as sequential, by-process, or Mermaid output",
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderInput, "input", "i", "", "input path, or - for stdin")
	renderCmd.Flags().StringVarP(&renderDisplayMode, "display-mode", "d", string(render.Sequential), "one of sequential, by-process, mermaid")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "-", "output path, or - for stdout")
	_ = renderCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	in, err := iohelpers.OpenInput(renderInput)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := iohelpers.OpenOutput(renderOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	mode := render.Mode(renderDisplayMode)
	if err := render.Render(out, in, mode, func(line string, parseErr error) {
		logging.L().WithField("line", line).WithError(parseErr).Debug("unparseable line during render")
	}); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
