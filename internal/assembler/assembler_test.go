package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyproc/proctrace/internal/event"
	"github.com/tinyproc/proctrace/internal/parser"
)

func TestAssemblesExecInOrder(t *testing.T) {
	a := New()

	_, ok := a.Process(parser.ExecFilename{Ts: 20, PID: 101, Filename: "/bin/echo"})
	assert.False(t, ok)

	_, ok = a.Process(parser.ExecArgs{Ts: 20, PID: 101, Args: "/bin/echo hi"})
	assert.False(t, ok)

	ev, ok := a.Process(parser.ExecSuccess{Ts: 20, PID: 101, PPID: 100, PGID: 101})
	require.True(t, ok)
	assert.Equal(t, event.Exec{Ts: 20, PID_: 101, PPID: 100, PGID: 101, Cmdline: "/bin/echo hi"}, ev)
	assert.Equal(t, 0, a.Dropped())
}

func TestAssemblesExecWhenArgsArriveAfterSuccess(t *testing.T) {
	a := New()

	_, ok := a.Process(parser.ExecFilename{Ts: 20, PID: 101, Filename: "/bin/echo"})
	assert.False(t, ok)

	_, ok = a.Process(parser.ExecSuccess{Ts: 20, PID: 101, PPID: 100, PGID: 101})
	assert.False(t, ok, "success with no args yet must defer emission")

	ev, ok := a.Process(parser.ExecArgs{Ts: 20, PID: 101, Args: "/bin/echo hi"})
	require.True(t, ok)
	assert.Equal(t, "/bin/echo hi", ev.(event.Exec).Cmdline)
}

func TestBadExecEmitsNothing(t *testing.T) {
	a := New()
	a.Process(parser.ExecFilename{Ts: 20, PID: 101, Filename: "/bin/echo"})
	a.Process(parser.ExecArgs{Ts: 20, PID: 101, Args: "/bin/echo hi"})
	_, ok := a.Process(parser.BadExec{Ts: 20, PID: 101})
	assert.False(t, ok)
	assert.Equal(t, 1, a.Dropped())
}

func TestFlushDropsUnresolvedPartials(t *testing.T) {
	a := New()
	a.Process(parser.ExecFilename{Ts: 20, PID: 101, Filename: "/bin/echo"})
	n := a.Flush()
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, a.Dropped())
}

func TestDirectEventsPassThrough(t *testing.T) {
	a := New()

	ev, ok := a.Process(parser.Fork{Ts: 10, ParentPID: 100, ChildPID: 101, ParentPGID: 99})
	require.True(t, ok)
	assert.Equal(t, event.Fork{Ts: 10, ParentPID: 100, ChildPID: 101, ParentPGID: 99}, ev)

	ev, ok = a.Process(parser.Exit{Ts: 30, PID: 101, PPID: 100, PGID: 101})
	require.True(t, ok)
	assert.Equal(t, event.Exit{Ts: 30, PID_: 101, PPID: 100, PGID: 101}, ev)
}

func TestArgsLatestWins(t *testing.T) {
	a := New()
	a.Process(parser.ExecArgs{Ts: 20, PID: 101, Args: "first"})
	ev, ok := a.Process(parser.ExecArgs{Ts: 20, PID: 101, Args: "second"})
	assert.False(t, ok)
	_ = ev

	out, ok := a.Process(parser.ExecSuccess{Ts: 20, PID: 101, PPID: 100, PGID: 101})
	require.True(t, ok)
	assert.Equal(t, "second", out.(event.Exec).Cmdline)
}
