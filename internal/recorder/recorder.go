// Package recorder implements the Recorder operation described in
// spec.md §4.5: supervise the tracer subprocess and the user's command
// concurrently, feed the tracer's output through the parser, assembler,
// and tree tracker, and emit either a pruned or raw recording.
package recorder

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tinyproc/proctrace/internal/assembler"
	"github.com/tinyproc/proctrace/internal/event"
	"github.com/tinyproc/proctrace/internal/logging"
	"github.com/tinyproc/proctrace/internal/parser"
	"github.com/tinyproc/proctrace/internal/recording"
	"github.com/tinyproc/proctrace/internal/tree"
)

//go:embed assets/proctrace.bt
var tracerScript []byte

// Options configures a Record run.
type Options struct {
	// BpftracePath is the tracer binary to run. Default "bpftrace".
	BpftracePath string
	// PrivilegeCmd escalates privileges to launch the tracer. Default "sudo".
	PrivilegeCmd string
	// Command is the user's command and its arguments; Command[0] is the
	// executable.
	Command []string
	// Output receives the recording.
	Output io.Writer
	// Raw disables tree pruning: every assembled event is emitted,
	// regardless of tree membership.
	Raw bool
	// Signals, if non-nil, is consulted instead of a real signal.Notify
	// channel — for tests. Left nil, Record installs its own handler for
	// SIGINT and SIGTERM.
	Signals <-chan os.Signal
	// StartupDelay is how long to wait after launching the tracer before
	// starting the user command, giving bpftrace time to attach its
	// probes. Default 1 second, matching the original implementation.
	StartupDelay time.Duration
}

// Result reports how a Record run ended.
type Result struct {
	// Signal is set when the run ended due to an interrupt, nil otherwise.
	Signal os.Signal
	// UnparseableLines counts tracer lines that failed to parse.
	UnparseableLines int
}

func (o *Options) applyDefaults() {
	if o.BpftracePath == "" {
		o.BpftracePath = "bpftrace"
	}
	if o.PrivilegeCmd == "" {
		o.PrivilegeCmd = "sudo"
	}
	if o.StartupDelay == 0 {
		o.StartupDelay = time.Second
	}
}

// Record launches the tracer and the user command, streams admitted events
// to opts.Output, and returns once the tree has drained or an interrupt was
// received. See spec.md §4.5 for the termination and failure semantics.
func Record(opts Options) (Result, error) {
	opts.applyDefaults()
	if len(opts.Command) == 0 {
		return Result{}, errors.New("recorder: no command given to run")
	}

	scriptPath, cleanup, err := writeScriptToTempFile()
	if err != nil {
		return Result{}, fmt.Errorf("staging tracer script: %w", err)
	}
	defer cleanup()

	tracerCmd := exec.Command(opts.PrivilegeCmd, opts.BpftracePath, scriptPath)
	tracerCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	tracerCmd.Stderr = os.Stderr
	stdout, err := tracerCmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("recorder: piping tracer stdout: %w", err)
	}
	if err := tracerCmd.Start(); err != nil {
		return Result{}, fmt.Errorf("recorder: launching tracer (check privileges and --bpftrace-path): %w", err)
	}

	time.Sleep(opts.StartupDelay)

	userCmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	userCmd.Stdout = os.Stdout
	userCmd.Stderr = os.Stderr
	userCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := userCmd.Start(); err != nil {
		killGroup(tracerCmd.Process.Pid)
		_ = tracerCmd.Wait()
		return Result{}, fmt.Errorf("recorder: launching user command %q: %w", opts.Command[0], err)
	}
	rootPID := int32(userCmd.Process.Pid)
	logging.L().Infof("Process tree root was PID %d", rootPID)

	userDone := make(chan error, 1)
	go func() { userDone <- userCmd.Wait() }()

	sigCh := opts.Signals
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := recording.NewScanner(stdout)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	p := parser.New()
	asm := assembler.New()
	tr := tree.New(rootPID)
	w := recording.NewWriter(opts.Output)

	var result Result
	userExited := false

readLoop:
	for {
		select {
		case sig := <-sigCh:
			logging.L().Warnf("received %s, flushing buffered output", sig)
			result.Signal = sig
			forward := syscall.SIGTERM
			if s, ok := sig.(syscall.Signal); ok {
				forward = s
			}
			for _, pid := range []int{tracerCmd.Process.Pid, userCmd.Process.Pid} {
				if err := unix.Kill(-pid, forward); err != nil {
					logging.L().WithError(err).Debug("signaling process group")
				}
			}
			drainRemaining(lines, p, asm, tr, w, opts.Raw, &result.UnparseableLines)
			break readLoop

		case line, ok := <-lines:
			if !ok {
				if !userExited {
					return result, errors.New("recorder: tracer exited before user command completed")
				}
				break readLoop
			}
			if !processLine(line, p, asm, tr, w, opts.Raw, &result.UnparseableLines) {
				continue
			}
			if len(tr.Live()) == 0 {
				killGroup(tracerCmd.Process.Pid)
				break readLoop
			}

		case err := <-userDone:
			userExited = true
			if err != nil {
				logging.L().WithError(err).Debug("user command exited with error")
			}
		}
	}

	_ = tracerCmd.Wait()
	return result, nil
}

// processLine parses and assembles one tracer line, admitting it into the
// tree (or emitting it unconditionally in raw mode) and writing it to w. It
// returns true whenever the line completed a whole event, even one pruned
// from the tree and not written; it returns false for a buffered partial or
// an unparseable line (counted in *unparseable).
func processLine(line string, p *parser.Parser, asm *assembler.Assembler, tr *tree.Tracker, w *recording.Writer, raw bool, unparseable *int) bool {
	rec, err := p.ParseLine(line)
	if err != nil {
		*unparseable++
		logging.L().WithField("line", line).Debug("unparseable tracer line")
		return false
	}
	ev, ok := asm.Process(rec)
	if !ok {
		return false
	}
	admitted := tr.Admit(ev)
	if raw {
		writeOrLog(w, ev)
		return true
	}
	if admitted {
		writeOrLog(w, ev)
	}
	return true
}

func writeOrLog(w *recording.Writer, ev event.Event) {
	if err := w.WriteEvent(ev); err != nil {
		logging.L().WithError(err).Error("failed to write event")
	}
}

// drainRemaining processes any tracer lines already buffered on the
// channel, without blocking, so an interrupt still flushes output that had
// already been read (spec.md §4.5, §5).
func drainRemaining(lines <-chan string, p *parser.Parser, asm *assembler.Assembler, tr *tree.Tracker, w *recording.Writer, raw bool, unparseable *int) {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			processLine(line, p, asm, tr, w, raw, unparseable)
		default:
			return
		}
	}
}

func killGroup(pid int) {
	if pid <= 0 {
		return
	}
	if err := unix.Kill(-pid, syscall.SIGTERM); err != nil {
		logging.L().WithError(err).Debug("signaling process group")
	}
}

func writeScriptToTempFile() (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "proctrace-*.bt")
	if err != nil {
		return "", nil, err
	}
	if _, err := f.Write(tracerScript); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
