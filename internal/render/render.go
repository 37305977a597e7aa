// Package render implements the Render operation described in spec.md
// §4.8: three display modes (sequential, by-process, Gantt/Mermaid) over a
// recording of events.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tinyproc/proctrace/internal/event"
	"github.com/tinyproc/proctrace/internal/recording"
	"github.com/tinyproc/proctrace/internal/sortrec"
)

// Mode selects a display mode, matching the CLI's -d/--display-mode values.
type Mode string

const (
	Sequential Mode = "sequential"
	ByProcess  Mode = "by-process"
	Mermaid    Mode = "mermaid"
)

// Render reads events from r and writes the chosen display mode to w.
func Render(w io.Writer, r io.Reader, mode Mode, onParseError func(line string, err error)) error {
	events, err := recording.ReadAll(r, onParseError)
	if err != nil {
		return fmt.Errorf("reading recording to render: %w", err)
	}

	switch mode {
	case Sequential, "":
		return renderSequential(w, events)
	case ByProcess:
		return renderByProcess(w, events)
	case Mermaid:
		return renderMermaid(w, events)
	default:
		return fmt.Errorf("unknown display mode %q", mode)
	}
}

// owningPID is the PID an event is filed under: child_pid for Fork, pid for
// everything else (spec.md §4.8).
func owningPID(e event.Event) int32 {
	if f, ok := e.(event.Fork); ok {
		return f.ChildPID
	}
	return e.PID()
}

func renderSequential(w io.Writer, events []event.Event) error {
	sorted := append([]event.Event(nil), events...)
	sortrec.SortEvents(sorted)
	return recording.WriteAll(w, sorted)
}

func renderByProcess(w io.Writer, events []event.Event) error {
	groups := make(map[int32][]event.Event)
	var order []int32
	seen := make(map[int32]bool)

	sorted := append([]event.Event(nil), events...)
	sortrec.SortEvents(sorted)

	for _, e := range sorted {
		pid := owningPID(e)
		groups[pid] = append(groups[pid], e)
		if !seen[pid] {
			seen[pid] = true
			order = append(order, pid)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return groups[order[i]][0].Timestamp() < groups[order[j]][0].Timestamp()
	})

	for _, pid := range order {
		cmdline := initialCmdline(groups[pid])
		if _, err := fmt.Fprintf(w, "PID %d: %s\n", pid, cmdline); err != nil {
			return fmt.Errorf("writing group header: %w", err)
		}
		if err := recording.WriteAll(w, groups[pid]); err != nil {
			return fmt.Errorf("writing group events: %w", err)
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("writing group separator: %w", err)
		}
	}
	return nil
}

func initialCmdline(events []event.Event) string {
	for _, e := range events {
		if ex, ok := e.(event.Exec); ok {
			return ex.Cmdline
		}
	}
	return ""
}

func firstArgvToken(cmdline string) string {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return cmdline
	}
	return fields[0]
}

type execSpan struct {
	pid     int32
	label   string
	startMs int64
	endMs   int64
}

type pidEvents struct {
	execs []event.Exec
	exit  *event.Exit
}

// renderMermaid produces Mermaid Gantt chart source per spec.md §4.8/§6. The
// root PID is the child_pid of the first event in the recording, which must
// be a Fork (matching how the original tool's render command identifies its
// subject: see original_source/proctrace/src/render.rs's read_events).
// Durations are normalized from nanoseconds to milliseconds (render_single_span
// there divides both start and duration by 1_000_000).
func renderMermaid(w io.Writer, events []event.Event) error {
	sorted := append([]event.Event(nil), events...)
	sortrec.SortEvents(sorted)

	if len(sorted) == 0 {
		_, err := fmt.Fprintln(w, "gantt\n    dateFormat x\n    axisFormat %S.%L")
		return err
	}

	rootFork, ok := sorted[0].(event.Fork)
	if !ok {
		return fmt.Errorf("mermaid render requires the first event to be a Fork, got %T", sorted[0])
	}
	rootPID := rootFork.ChildPID

	var minTs uint64 = sorted[0].Timestamp()
	for _, e := range sorted {
		if e.Timestamp() < minTs {
			minTs = e.Timestamp()
		}
	}
	const nsPerMs = 1_000_000
	normalize := func(ts uint64) int64 { return int64(ts-minTs) / nsPerMs }

	byPID := make(map[int32]*pidEvents)
	var pidOrder []int32
	for _, e := range sorted {
		pid := owningPID(e)
		pe, ok := byPID[pid]
		if !ok {
			pe = &pidEvents{}
			byPID[pid] = pe
			pidOrder = append(pidOrder, pid)
		}
		switch ev := e.(type) {
		case event.Exec:
			pe.execs = append(pe.execs, ev)
		case event.Exit:
			exitCopy := ev
			pe.exit = &exitCopy
		}
	}

	var rootSpans, otherSpans []execSpan
	for _, pid := range pidOrder {
		pe := byPID[pid]
		if len(pe.execs) == 0 {
			continue
		}
		label := firstArgvToken(pe.execs[0].Cmdline)
		for i, ex := range pe.execs {
			start := normalize(ex.Ts)
			var end int64
			switch {
			case i+1 < len(pe.execs):
				end = normalize(pe.execs[i+1].Ts)
			case pe.exit != nil:
				end = normalize(pe.exit.Ts)
			default:
				end = start
			}
			span := execSpan{pid: pid, label: label, startMs: start, endMs: end}
			if pid == rootPID {
				rootSpans = append(rootSpans, span)
			} else {
				otherSpans = append(otherSpans, span)
			}
		}
	}

	var b strings.Builder
	b.WriteString("gantt\n")
	b.WriteString("    dateFormat x\n")
	b.WriteString("    axisFormat %S.%L\n")

	rootSection := firstArgvToken(initialCmdline(rootExecEvents(byPID[rootPID])))
	b.WriteString(fmt.Sprintf("    section %s\n", rootSection))
	for i, span := range rootSpans {
		fmt.Fprintf(&b, "    %s :root%d, %d, %d\n", span.label, i, span.startMs, span.endMs)
	}

	if len(otherSpans) > 0 {
		b.WriteString("    section other\n")
		for i, span := range otherSpans {
			fmt.Fprintf(&b, "    %s :p%d-%d, %d, %d\n", span.label, span.pid, i, span.startMs, span.endMs)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func rootExecEvents(pe *pidEvents) []event.Event {
	out := make([]event.Event, len(pe.execs))
	for i, e := range pe.execs {
		out[i] = e
	}
	return out
}
