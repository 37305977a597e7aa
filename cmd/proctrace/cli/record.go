package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyproc/proctrace/internal/iohelpers"
	"github.com/tinyproc/proctrace/internal/logging"
	"github.com/tinyproc/proctrace/internal/recorder"
)

var (
	recordBpftracePath string
	recordOutput       string
	recordRaw          bool
	recordDebug        bool
)

var recordCmd = &cobra.Command{
	Use:   "record -- CMD...",
	Short: "Run a command under the tracer and write its event recording",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordBpftracePath, "bpftrace-path", "b", "bpftrace", "path to the bpftrace executable")
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "-", "output path, or - for stdout")
	recordCmd.Flags().BoolVarP(&recordRaw, "raw", "r", false, "emit every assembled event, skipping tree pruning")
	recordCmd.Flags().BoolVar(&recordDebug, "debug", false, "log recoverable parse errors and other detail")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	logging.SetDebug(recordDebug)

	out, err := iohelpers.OpenOutput(recordOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	result, err := recorder.Record(recorder.Options{
		BpftracePath: recordBpftracePath,
		Command:      args,
		Output:       out,
		Raw:          recordRaw,
	})
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}

	if result.UnparseableLines > 0 {
		logging.L().Debugf("skipped %d unparseable tracer lines", result.UnparseableLines)
	}
	if result.Signal != nil {
		return exitCodeError{signal: result.Signal}
	}
	return nil
}
