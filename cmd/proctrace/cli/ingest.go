package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyproc/proctrace/internal/iohelpers"
	"github.com/tinyproc/proctrace/internal/ingest"
	"github.com/tinyproc/proctrace/internal/logging"
)

var (
	ingestInput   string
	ingestRootPID int32
	ingestOutput  string
	ingestDebug   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Replay a recording through the tree tracker rooted at a given PID",
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestInput, "input", "i", "", "input path, or - for stdin")
	ingestCmd.Flags().Int32VarP(&ingestRootPID, "root-pid", "p", 0, "root PID of the process tree to keep")
	ingestCmd.Flags().StringVarP(&ingestOutput, "output", "o", "-", "output path, or - for stdout")
	ingestCmd.Flags().BoolVarP(&ingestDebug, "debug", "d", false, "log recoverable parse errors and other detail")
	_ = ingestCmd.MarkFlagRequired("input")
	_ = ingestCmd.MarkFlagRequired("root-pid")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	logging.SetDebug(ingestDebug)

	in, err := iohelpers.OpenInput(ingestInput)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := iohelpers.OpenOutput(ingestOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	parseErrors := 0
	stats, err := ingest.Ingest(out, in, ingestRootPID, func(line string, parseErr error) {
		parseErrors++
		logging.L().WithField("line", line).WithError(parseErr).Debug("unparseable line during ingest")
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	logging.L().Debugf("read %d lines, admitted %d, %d unparseable, %d partials dropped at end of stream",
		stats.Read, stats.Admitted, stats.Unparseable, stats.DroppedPartial)

	if parseErrors > 0 {
		return exitCode2{}
	}
	return nil
}

// exitCode2 signals the "2 on parse error" exit convention from spec.md §6
// for the ingest subcommand, without being a user-visible error message.
type exitCode2 struct{}

func (exitCode2) Error() string { return "" }
