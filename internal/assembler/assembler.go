// Package assembler stitches the multi-line partial records produced by
// internal/parser into whole events (internal/event), per spec.md §4.3.
package assembler

import (
	"github.com/tinyproc/proctrace/internal/event"
	"github.com/tinyproc/proctrace/internal/parser"
)

type execKey struct {
	pid int32
	ts  uint64
}

// pendingExec is a PartialExec slot: the assembler-only bookkeeping for an
// execve that has not yet been fully reported (spec.md §3).
type pendingExec struct {
	filename *string
	args     *string
	success  bool
	ppid     int32
	pgid     int32
}

// Assembler consumes PartialRecords in arrival order and emits whole
// Events. It is not safe for concurrent use.
type Assembler struct {
	pending map[execKey]*pendingExec
	dropped int
}

// New returns an empty Assembler.
func New() *Assembler {
	return &Assembler{pending: make(map[execKey]*pendingExec)}
}

// Dropped returns the number of exec partials that were discarded: either
// by a BADEXEC, or because they were still unresolved at Flush.
func (a *Assembler) Dropped() int {
	return a.dropped
}

// Process consumes one PartialRecord and returns zero or one whole Events.
// FORK, EXIT, SETSID, and SETPGID always resolve to exactly one event.
// EXEC_FILENAME never resolves. EXEC and EXEC_ARGS for the same (pid, ts)
// resolve to one Exec on whichever of the two arrives second. BADEXEC never
// resolves and discards the pending exec.
func (a *Assembler) Process(rec parser.PartialRecord) (event.Event, bool) {
	switch r := rec.(type) {
	case parser.Fork:
		return event.Fork{
			Ts:         r.Ts,
			ParentPID:  r.ParentPID,
			ChildPID:   r.ChildPID,
			ParentPGID: r.ParentPGID,
		}, true

	case parser.Exit:
		return event.Exit{Ts: r.Ts, PID_: r.PID, PPID: r.PPID, PGID: r.PGID}, true

	case parser.SetSid:
		return event.SetSid{Ts: r.Ts, PID_: r.PID, PPID: r.PPID, PGID: r.PGID, SID: r.SID}, true

	case parser.SetPgid:
		return event.SetPgid{Ts: r.Ts, PID_: r.PID, PPID: r.PPID, PGID: r.PGID}, true

	case parser.ExecFilename:
		key := execKey{pid: r.PID, ts: r.Ts}
		slot := a.slot(key)
		filename := r.Filename
		slot.filename = &filename
		return nil, false

	case parser.ExecArgs:
		key := execKey{pid: r.PID, ts: r.Ts}
		slot := a.slot(key)
		args := r.Args
		slot.args = &args // latest wins
		if slot.success {
			delete(a.pending, key)
			return event.Exec{Ts: r.Ts, PID_: r.PID, PPID: slot.ppid, PGID: slot.pgid, Cmdline: args}, true
		}
		return nil, false

	case parser.ExecSuccess:
		key := execKey{pid: r.PID, ts: r.Ts}
		slot := a.slot(key)
		slot.success = true
		slot.ppid = r.PPID
		slot.pgid = r.PGID
		if slot.args != nil {
			delete(a.pending, key)
			return event.Exec{Ts: r.Ts, PID_: r.PID, PPID: r.PPID, PGID: r.PGID, Cmdline: *slot.args}, true
		}
		return nil, false

	case parser.BadExec:
		key := execKey{pid: r.PID, ts: r.Ts}
		if _, ok := a.pending[key]; ok {
			a.dropped++
		}
		delete(a.pending, key)
		return nil, false

	default:
		return nil, false
	}
}

func (a *Assembler) slot(key execKey) *pendingExec {
	slot, ok := a.pending[key]
	if !ok {
		slot = &pendingExec{}
		a.pending[key] = slot
	}
	return slot
}

// Flush discards any exec partials left unresolved at end of stream, per
// spec.md §3/§7 ("assembler timeout"). It returns the number discarded by
// this call.
func (a *Assembler) Flush() int {
	n := len(a.pending)
	a.dropped += n
	a.pending = make(map[execKey]*pendingExec)
	return n
}
