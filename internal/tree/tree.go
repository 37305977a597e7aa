// Package tree maintains the live set of PIDs descended from a root PID as
// events stream past, admitting only events that belong to that process
// tree. See spec.md §3 (TreeState) and §4.4 (Tree tracker).
package tree

import "github.com/tinyproc/proctrace/internal/event"

// Tracker is the TreeState described in spec.md §3: a live set of PIDs and
// the parent links observed among them. It is created empty except for its
// root, mutated as events are admitted (a PID joins on a Fork and leaves
// on an Exit), and
// should be dropped when the stream ends.
type Tracker struct {
	live   map[int32]struct{}
	parent map[int32]int32
}

// New seeds live with root, per spec.md §4.4 ("the root PID is seeded into
// live before any events are consumed").
func New(root int32) *Tracker {
	t := &Tracker{
		live:   map[int32]struct{}{root: {}},
		parent: make(map[int32]int32),
	}
	return t
}

// InTree reports whether pid is currently part of the tracked tree.
func (t *Tracker) InTree(pid int32) bool {
	_, ok := t.live[pid]
	return ok
}

// Admit applies one whole event to the tree state and reports whether it
// should be emitted downstream. Admission rules, in order (spec.md §4.4):
//
//  1. Fork{parent, child}: admitted iff parent is in live, in which case
//     child joins live and parent[child] is recorded.
//  2. Exec/SetSid/SetPgid{pid}: admitted iff pid is in live.
//  3. Exit{pid}: admitted iff pid is in live, after which pid leaves live.
//
// Once a PID leaves live via Exit, further events for it are dropped. A
// later admitted Fork that names it as the child adds it back as a fresh
// process: PID reuse within one session is not guarded against.
func (t *Tracker) Admit(e event.Event) bool {
	switch ev := e.(type) {
	case event.Fork:
		if !t.InTree(ev.ParentPID) {
			return false
		}
		t.live[ev.ChildPID] = struct{}{}
		t.parent[ev.ChildPID] = ev.ParentPID
		return true

	case event.Exit:
		if !t.InTree(ev.PID_) {
			return false
		}
		delete(t.live, ev.PID_)
		return true

	default:
		return t.InTree(e.PID())
	}
}

// Parent returns the recorded parent of pid, if any fork admitted it.
func (t *Tracker) Parent(pid int32) (int32, bool) {
	p, ok := t.parent[pid]
	return p, ok
}

// Live returns a snapshot of the currently tracked PIDs.
func (t *Tracker) Live() []int32 {
	pids := make([]int32, 0, len(t.live))
	for pid := range t.live {
		pids = append(pids, pid)
	}
	return pids
}
