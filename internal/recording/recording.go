// Package recording reads and writes the newline-delimited-JSON recording
// format described in spec.md §3/§6: one Event per line, no header, no
// trailer, no inter-line whitespace beyond "\n".
package recording

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tinyproc/proctrace/internal/event"
)

// Writer appends Events to a recording, one JSON line each.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w as a recording Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent serializes e and appends a trailing newline.
func (rw *Writer) WriteEvent(e event.Event) error {
	data, err := event.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	data = append(data, '\n')
	if _, err := rw.w.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// maxLineSize generously covers a recording line carrying a long argv.
const maxLineSize = 1 << 20

// NewScanner returns a bufio.Scanner over r configured for recording lines.
func NewScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// ReadAll reads every line of r as an Event, in file order. A line that
// fails to parse is recoverable (spec.md §7): onParseError, if non-nil, is
// called with the offending line and the error, and the line is skipped
// rather than aborting the read.
func ReadAll(r io.Reader, onParseError func(line string, err error)) ([]event.Event, error) {
	var events []event.Event
	scanner := NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ev, err := event.Unmarshal([]byte(line))
		if err != nil {
			if onParseError != nil {
				onParseError(line, err)
			}
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("reading recording: %w", err)
	}
	return events, nil
}

// WriteAll writes events to w in the order given.
func WriteAll(w io.Writer, events []event.Event) error {
	rw := NewWriter(w)
	for _, e := range events {
		if err := rw.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}
