package sortrec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyproc/proctrace/internal/event"
)

func TestSortEventsOrdersByTimestamp(t *testing.T) {
	events := []event.Event{
		event.Exit{Ts: 30, PID_: 101},
		event.Fork{Ts: 10, ParentPID: 100, ChildPID: 101},
		event.Exec{Ts: 20, PID_: 101, Cmdline: "/bin/echo hi"},
	}

	SortEvents(events)

	require.Len(t, events, 3)
	assert.Equal(t, uint64(10), events[0].Timestamp())
	assert.Equal(t, uint64(20), events[1].Timestamp())
	assert.Equal(t, uint64(30), events[2].Timestamp())
}

func TestSortEventsIsStableForEqualTimestamps(t *testing.T) {
	events := []event.Event{
		event.Exec{Ts: 5, PID_: 1, Cmdline: "first"},
		event.Exec{Ts: 5, PID_: 2, Cmdline: "second"},
		event.Exec{Ts: 5, PID_: 3, Cmdline: "third"},
	}

	SortEvents(events)

	assert.Equal(t, "first", events[0].(event.Exec).Cmdline)
	assert.Equal(t, "second", events[1].(event.Exec).Cmdline)
	assert.Equal(t, "third", events[2].(event.Exec).Cmdline)
}

func TestSortIsIdempotent(t *testing.T) {
	events := []event.Event{
		event.Exit{Ts: 30, PID_: 101},
		event.Fork{Ts: 10, ParentPID: 100, ChildPID: 101},
		event.Exec{Ts: 20, PID_: 101, Cmdline: "/bin/echo hi"},
	}

	SortEvents(events)
	once := append([]event.Event(nil), events...)
	SortEvents(events)

	assert.Equal(t, once, events)
}

func TestSortReadsAndWritesNdjson(t *testing.T) {
	input := "{\"Exit\":{\"ts\":30,\"pid\":101,\"ppid\":100,\"pgid\":101}}\n" +
		"{\"Fork\":{\"ts\":10,\"parent_pid\":100,\"child_pid\":101,\"parent_pgid\":99}}\n"

	var out bytes.Buffer
	require.NoError(t, Sort(&out, strings.NewReader(input), nil))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Fork")
	assert.Contains(t, lines[1], "Exit")
}

func TestSortSkipsUnparseableLines(t *testing.T) {
	input := "garbage\n{\"Fork\":{\"ts\":1,\"parent_pid\":1,\"child_pid\":2,\"parent_pgid\":1}}\n"

	var bad []string
	var out bytes.Buffer
	require.NoError(t, Sort(&out, strings.NewReader(input), func(line string, _ error) {
		bad = append(bad, line)
	}))

	assert.Len(t, bad, 1)
	assert.Contains(t, out.String(), "Fork")
}
