package cli

import (
	"os"
	"syscall"
)

// exitCodeError carries the conventional exit code for a signal-terminated
// run (130 for SIGINT, 143 for SIGTERM) per spec.md §7, without printing an
// error message — the run ended gracefully, not in failure.
type exitCodeError struct {
	signal os.Signal
}

func (e exitCodeError) Error() string {
	return ""
}

// ExitCode reports the process exit code implied by err, or 1 for any
// other non-nil error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ce, ok := err.(exitCodeError); ok {
		switch ce.signal {
		case syscall.SIGINT:
			return 130
		case syscall.SIGTERM:
			return 143
		default:
			return 1
		}
	}
	if _, ok := err.(exitCode2); ok {
		return 2
	}
	return 1
}
