// Package cli implements the proctrace command-line interface using Cobra.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "proctrace",
	Short: "A process-lifecycle profiler built on a kernel-level tracer",
	Long: `proctrace supervises an external tracer that reports fork, exec, exit,
setsid, and setpgid events for a process tree, reconstructs a coherent
timeline rooted at a chosen process, and renders that timeline as
sequential JSON, grouped-by-process text, or a Mermaid Gantt chart.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
