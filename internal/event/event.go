// Package event defines the typed process-lifecycle events produced by the
// assembler and consumed by the tree tracker, sorter, and renderers.
package event

import (
	"encoding/json"
	"fmt"
)

// Kind names the event variant. It doubles as the single top-level JSON key
// each serialized event is wrapped in: {"Fork": {...}}.
type Kind string

const (
	KindFork    Kind = "Fork"
	KindExec    Kind = "Exec"
	KindExit    Kind = "Exit"
	KindSetSid  Kind = "SetSid"
	KindSetPgid Kind = "SetPgid"
)

// Event is implemented by every event variant. PID returns the "owning" PID
// used by the tree tracker and the by-process renderer: the child PID for
// Fork, the subject PID for everything else.
type Event interface {
	Kind() Kind
	Timestamp() uint64
	PID() int32
}

// Fork records that parent_pid forked child_pid.
type Fork struct {
	Ts         uint64 `json:"ts"`
	ParentPID  int32  `json:"parent_pid"`
	ChildPID   int32  `json:"child_pid"`
	ParentPGID int32  `json:"parent_pgid"`
}

func (f Fork) Kind() Kind        { return KindFork }
func (f Fork) Timestamp() uint64 { return f.Ts }
func (f Fork) PID() int32        { return f.ChildPID }

// Exec records a successful execve, with the fully assembled argv joined
// into a single display string.
type Exec struct {
	Ts      uint64 `json:"ts"`
	PID_    int32  `json:"pid"`
	PPID    int32  `json:"ppid"`
	PGID    int32  `json:"pgid"`
	Cmdline string `json:"cmdline"`
}

func (e Exec) Kind() Kind        { return KindExec }
func (e Exec) Timestamp() uint64 { return e.Ts }
func (e Exec) PID() int32        { return e.PID_ }

// Exit records that a process has exited.
type Exit struct {
	Ts   uint64 `json:"ts"`
	PID_ int32  `json:"pid"`
	PPID int32  `json:"ppid"`
	PGID int32  `json:"pgid"`
}

func (e Exit) Kind() Kind        { return KindExit }
func (e Exit) Timestamp() uint64 { return e.Ts }
func (e Exit) PID() int32        { return e.PID_ }

// SetSid records a setsid(2) call.
type SetSid struct {
	Ts   uint64 `json:"ts"`
	PID_ int32  `json:"pid"`
	PPID int32  `json:"ppid"`
	PGID int32  `json:"pgid"`
	SID  int32  `json:"sid"`
}

func (s SetSid) Kind() Kind        { return KindSetSid }
func (s SetSid) Timestamp() uint64 { return s.Ts }
func (s SetSid) PID() int32        { return s.PID_ }

// SetPgid records a setpgid(2) call.
type SetPgid struct {
	Ts   uint64 `json:"ts"`
	PID_ int32  `json:"pid"`
	PPID int32  `json:"ppid"`
	PGID int32  `json:"pgid"`
}

func (s SetPgid) Kind() Kind        { return KindSetPgid }
func (s SetPgid) Timestamp() uint64 { return s.Ts }
func (s SetPgid) PID() int32        { return s.PID_ }

// Marshal serializes an event as {"<Variant>": {<fields>}}.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(map[string]Event{string(e.Kind()): e})
}

// Unmarshal deserializes one line produced by Marshal. An unrecognized
// variant tag is a recoverable error (spec.md §6): the caller should skip
// the line and continue, not abort the stream.
func Unmarshal(data []byte) (Event, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("event envelope must have exactly one key, got %d", len(envelope))
	}
	for tag, raw := range envelope {
		switch Kind(tag) {
		case KindFork:
			var f Fork
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("decoding Fork: %w", err)
			}
			return f, nil
		case KindExec:
			var e Exec
			if err := json.Unmarshal(raw, &e); err != nil {
				return nil, fmt.Errorf("decoding Exec: %w", err)
			}
			return e, nil
		case KindExit:
			var e Exit
			if err := json.Unmarshal(raw, &e); err != nil {
				return nil, fmt.Errorf("decoding Exit: %w", err)
			}
			return e, nil
		case KindSetSid:
			var s SetSid
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("decoding SetSid: %w", err)
			}
			return s, nil
		case KindSetPgid:
			var s SetPgid
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("decoding SetPgid: %w", err)
			}
			return s, nil
		default:
			return nil, fmt.Errorf("unrecognized event variant %q", tag)
		}
	}
	panic("unreachable")
}
