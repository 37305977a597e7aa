// Package ingest implements the Ingest operation described in spec.md §4.6:
// read a recording (already-assembled Events, or raw tracer lines), replay
// it through the tree tracker seeded with a given root PID, and write the
// admitted events to a sink in arrival order.
package ingest

import (
	"fmt"
	"io"

	"github.com/tinyproc/proctrace/internal/assembler"
	"github.com/tinyproc/proctrace/internal/event"
	"github.com/tinyproc/proctrace/internal/parser"
	"github.com/tinyproc/proctrace/internal/recording"
	"github.com/tinyproc/proctrace/internal/tree"
)

// Stats reports what happened during an Ingest run, surfaced in debug mode
// per spec.md §4.5's failure-semantics note (unparseable lines are
// recoverable, counted, and surfaced).
type Stats struct {
	Read         int
	Admitted     int
	Unparseable  int
	DroppedPartial int
}

// Ingest reads line-delimited records from r, admits them into a process
// tree rooted at rootPID, and writes the admitted events to w in arrival
// order. Each line is tried first as a whole assembled Event (the common
// case: the raw recording already contains C3 output); if that fails, it is
// tried as a raw tracer line and pushed through the parser and assembler
// first, per spec.md §4.6's "when the input contains assembler-level
// partial records instead" clause. onParseError, if non-nil, is called for
// any line that is neither a valid Event nor a valid tracer line.
func Ingest(w io.Writer, r io.Reader, rootPID int32, onParseError func(line string, err error)) (Stats, error) {
	var stats Stats

	t := tree.New(rootPID)
	asm := assembler.New()
	p := parser.New()
	rw := recording.NewWriter(w)

	scanner := recording.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		stats.Read++

		ev, ok, err := resolveLine(p, asm, line)
		if err != nil {
			stats.Unparseable++
			if onParseError != nil {
				onParseError(line, err)
			}
			continue
		}
		if !ok {
			// A partial record was buffered in the assembler; nothing to
			// admit yet.
			continue
		}

		if !t.Admit(ev) {
			continue
		}
		if err := rw.WriteEvent(ev); err != nil {
			return stats, fmt.Errorf("writing admitted event: %w", err)
		}
		stats.Admitted++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading recording to ingest: %w", err)
	}

	stats.DroppedPartial = asm.Flush()

	return stats, nil
}

// resolveLine tries line first as a whole Event, falling back to the raw
// tracer-line grammar (parser + assembler) if that fails. ok is false when
// the line was consumed into the assembler's buffering without yet
// producing a complete event.
func resolveLine(p *parser.Parser, asm *assembler.Assembler, line string) (event.Event, bool, error) {
	if ev, err := event.Unmarshal([]byte(line)); err == nil {
		return ev, true, nil
	}

	rec, err := p.ParseLine(line)
	if err != nil {
		return nil, false, fmt.Errorf("line is neither a valid event nor a valid tracer line: %w", err)
	}
	ev, ok := asm.Process(rec)
	return ev, ok, nil
}
