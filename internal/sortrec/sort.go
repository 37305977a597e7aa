// Package sortrec implements the Sort operation described in spec.md §4.7:
// load an entire recording into memory, stably sort it by timestamp, and
// write it back out. Arrival order is the implicit tie-break for equal
// timestamps, via Go's stable sort, matching the Rust original's reliance on
// a single-key stable sort_by_key.
package sortrec

import (
	"fmt"
	"io"
	"sort"

	"github.com/tinyproc/proctrace/internal/event"
	"github.com/tinyproc/proctrace/internal/recording"
)

// Sort reads a recording from r, stably sorts its events by timestamp, and
// writes the result to w. onParseError, if non-nil, receives any line that
// failed to parse as an Event; such lines are skipped rather than aborting
// the sort (spec.md §7).
func Sort(w io.Writer, r io.Reader, onParseError func(line string, err error)) error {
	events, err := recording.ReadAll(r, onParseError)
	if err != nil {
		return fmt.Errorf("reading recording to sort: %w", err)
	}

	SortEvents(events)

	if err := recording.WriteAll(w, events); err != nil {
		return fmt.Errorf("writing sorted recording: %w", err)
	}
	return nil
}

// SortEvents stably sorts events in place by timestamp. Sorting is
// idempotent: SortEvents(SortEvents(x)) == SortEvents(x), since a stable
// sort over an already-sorted sequence reproduces it exactly.
func SortEvents(events []event.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp() < events[j].Timestamp()
	})
}
