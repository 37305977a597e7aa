// Package parser turns one line of tracer output into a PartialRecord, the
// raw material the assembler (internal/assembler) stitches into whole
// events. See spec.md §4.2 for the line grammar.
package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// PartialRecord is one parsed tracer line: either a directly-emittable
// event (Fork, Exit, SetSid, SetPgid) or a fragment of an in-progress exec
// (ExecFilename, ExecArgs, ExecSuccess, BadExec) that the assembler must
// stitch together.
type PartialRecord interface {
	Seq() uint64
}

type base struct {
	SeqNum uint64
}

func (b base) Seq() uint64 { return b.SeqNum }

type Fork struct {
	base
	Ts         uint64
	ParentPID  int32
	ChildPID   int32
	ParentPGID int32
}

type Exit struct {
	base
	Ts   uint64
	PID  int32
	PPID int32
	PGID int32
}

type SetSid struct {
	base
	Ts   uint64
	PID  int32
	PPID int32
	PGID int32
	SID  int32
}

type SetPgid struct {
	base
	Ts   uint64
	PID  int32
	PPID int32
	PGID int32
}

// ExecFilename carries the filename half of an execve enter event.
type ExecFilename struct {
	base
	Ts       uint64
	PID      int32
	Filename string
}

// ExecArgs carries the joined-argv half of an execve enter event.
type ExecArgs struct {
	base
	Ts   uint64
	PID  int32
	Args string
}

// ExecSuccess signals that sys_exit_execve reported success for (PID, Ts).
type ExecSuccess struct {
	base
	Ts   uint64
	PID  int32
	PPID int32
	PGID int32
}

// BadExec signals that sys_exit_execve reported failure for (PID, Ts).
type BadExec struct {
	base
	Ts  uint64
	PID int32
}

// Parser parses tracer lines. It assigns a synthesized, strictly monotonic
// Seq to any line that omits one, scoped to the lifetime of the Parser.
type Parser struct {
	nextSeq uint64
}

// New returns a Parser ready to consume a fresh stream.
func New() *Parser {
	return &Parser{}
}

// ParseLine parses one `\n`-stripped tracer line. An unrecognized prefix is
// a recoverable error per spec.md §7: the caller should log it at debug and
// continue, not abort the stream.
func (p *Parser) ParseLine(line string) (PartialRecord, error) {
	prefix, rest, ok := strings.Cut(line, ": ")
	if !ok {
		return nil, fmt.Errorf("line has no recognized \"PREFIX: \" separator: %q", line)
	}

	switch prefix {
	case "FORK":
		return p.parseFork(rest)
	case "EXEC_FILENAME":
		return p.parseExecFilename(rest)
	case "EXEC_ARGS":
		return p.parseExecArgs(rest)
	case "EXEC":
		return p.parseExecSuccess(rest)
	case "BADEXEC":
		return p.parseBadExec(rest)
	case "EXIT":
		return p.parseExit(rest)
	case "SETSID":
		return p.parseSetSid(rest)
	case "SETPGID":
		return p.parseSetPgid(rest)
	default:
		return nil, fmt.Errorf("unknown tracer line prefix %q", prefix)
	}
}

// consumeSeq consumes an optional leading "seq=N" field from rest. When the
// first field is a valid seq, it returns that value, true, and the rest of
// the line after it; otherwise it returns rest unchanged.
func (p *Parser) consumeSeq(rest string) (seq uint64, hasSeq bool, remainder string) {
	key, value, ok := cutField(rest)
	if ok && key == "seq" {
		n, err := strconv.ParseUint(value, 10, 64)
		if err == nil {
			rawRemainder := strings.TrimPrefix(rest, key+"="+value)
			rawRemainder = strings.TrimPrefix(rawRemainder, ",")
			return n, true, rawRemainder
		}
	}
	return 0, false, rest
}

// cutField splits off the first "key=value" field up to the next
// top-level comma, returning the key and value without consuming rest.
func cutField(rest string) (key, value string, ok bool) {
	comma := strings.Index(rest, ",")
	field := rest
	if comma >= 0 {
		field = rest[:comma]
	}
	k, v, found := strings.Cut(field, "=")
	if !found {
		return "", "", false
	}
	return k, v, true
}

// takeField consumes the next "key=value" field from rest, returning the
// value and what remains of the line.
func takeField(rest, wantKey string) (value, remainder string, err error) {
	comma := strings.Index(rest, ",")
	field := rest
	if comma >= 0 {
		field = rest[:comma]
		remainder = rest[comma+1:]
	}
	key, value, found := strings.Cut(field, "=")
	if !found || key != wantKey {
		return "", "", fmt.Errorf("expected field %q, got %q", wantKey, field)
	}
	return value, remainder, nil
}

func parseInt32(s, field string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %q: %w", field, s, err)
	}
	return int32(n), nil
}

func parseUint64(s, field string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %q: %w", field, s, err)
	}
	return n, nil
}

func (p *Parser) seqOrNext(has bool, seq uint64) uint64 {
	if has {
		if seq >= p.nextSeq {
			p.nextSeq = seq + 1
		}
		return seq
	}
	s := p.nextSeq
	p.nextSeq++
	return s
}

func (p *Parser) parseFork(rest string) (PartialRecord, error) {
	seq, hasSeq, rest := p.consumeSeq(rest)

	tsStr, rest, err := takeField(rest, "ts")
	if err != nil {
		return nil, fmt.Errorf("FORK: %w", err)
	}
	ts, err := parseUint64(tsStr, "ts")
	if err != nil {
		return nil, fmt.Errorf("FORK: %w", err)
	}

	ppidStr, rest, err := takeField(rest, "parent_pid")
	if err != nil {
		return nil, fmt.Errorf("FORK: %w", err)
	}
	ppid, err := parseInt32(ppidStr, "parent_pid")
	if err != nil {
		return nil, fmt.Errorf("FORK: %w", err)
	}

	cpidStr, rest, err := takeField(rest, "child_pid")
	if err != nil {
		return nil, fmt.Errorf("FORK: %w", err)
	}
	cpid, err := parseInt32(cpidStr, "child_pid")
	if err != nil {
		return nil, fmt.Errorf("FORK: %w", err)
	}

	pgidStr, _, err := takeField(rest, "parent_pgid")
	if err != nil {
		return nil, fmt.Errorf("FORK: %w", err)
	}
	pgid, err := parseInt32(pgidStr, "parent_pgid")
	if err != nil {
		return nil, fmt.Errorf("FORK: %w", err)
	}

	return Fork{
		base:       base{SeqNum: p.seqOrNext(hasSeq, seq)},
		Ts:         ts,
		ParentPID:  ppid,
		ChildPID:   cpid,
		ParentPGID: pgid,
	}, nil
}

func (p *Parser) parsePidTriple(prefix, rest string) (seqNum base, ts uint64, pid, ppid, pgid int32, err error) {
	seq, hasSeq, rest := p.consumeSeq(rest)

	tsStr, rest, err := takeField(rest, "ts")
	if err != nil {
		return base{}, 0, 0, 0, 0, fmt.Errorf("%s: %w", prefix, err)
	}
	ts, err = parseUint64(tsStr, "ts")
	if err != nil {
		return base{}, 0, 0, 0, 0, fmt.Errorf("%s: %w", prefix, err)
	}

	pidStr, rest, err := takeField(rest, "pid")
	if err != nil {
		return base{}, 0, 0, 0, 0, fmt.Errorf("%s: %w", prefix, err)
	}
	pid, err = parseInt32(pidStr, "pid")
	if err != nil {
		return base{}, 0, 0, 0, 0, fmt.Errorf("%s: %w", prefix, err)
	}

	ppidStr, rest, err := takeField(rest, "ppid")
	if err != nil {
		return base{}, 0, 0, 0, 0, fmt.Errorf("%s: %w", prefix, err)
	}
	ppid, err = parseInt32(ppidStr, "ppid")
	if err != nil {
		return base{}, 0, 0, 0, 0, fmt.Errorf("%s: %w", prefix, err)
	}

	pgidStr, _, err := takeField(rest, "pgid")
	if err != nil {
		return base{}, 0, 0, 0, 0, fmt.Errorf("%s: %w", prefix, err)
	}
	pgid, err = parseInt32(pgidStr, "pgid")
	if err != nil {
		return base{}, 0, 0, 0, 0, fmt.Errorf("%s: %w", prefix, err)
	}

	return base{SeqNum: p.seqOrNext(hasSeq, seq)}, ts, pid, ppid, pgid, nil
}

func (p *Parser) parseExit(rest string) (PartialRecord, error) {
	b, ts, pid, ppid, pgid, err := p.parsePidTriple("EXIT", rest)
	if err != nil {
		return nil, err
	}
	return Exit{base: b, Ts: ts, PID: pid, PPID: ppid, PGID: pgid}, nil
}

func (p *Parser) parseSetPgid(rest string) (PartialRecord, error) {
	b, ts, pid, ppid, pgid, err := p.parsePidTriple("SETPGID", rest)
	if err != nil {
		return nil, err
	}
	if pgid == -1 {
		return nil, fmt.Errorf("SETPGID: pgid=-1 indicates kernel failure, rejecting line")
	}
	return SetPgid{base: b, Ts: ts, PID: pid, PPID: ppid, PGID: pgid}, nil
}

func (p *Parser) parseSetSid(rest string) (PartialRecord, error) {
	seq, hasSeq, rest := p.consumeSeq(rest)

	tsStr, rest, err := takeField(rest, "ts")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}
	ts, err := parseUint64(tsStr, "ts")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}

	pidStr, rest, err := takeField(rest, "pid")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}
	pid, err := parseInt32(pidStr, "pid")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}

	ppidStr, rest, err := takeField(rest, "ppid")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}
	ppid, err := parseInt32(ppidStr, "ppid")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}

	pgidStr, rest, err := takeField(rest, "pgid")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}
	pgid, err := parseInt32(pgidStr, "pgid")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}

	sidStr, _, err := takeField(rest, "sid")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}
	sid, err := parseInt32(sidStr, "sid")
	if err != nil {
		return nil, fmt.Errorf("SETSID: %w", err)
	}

	return SetSid{
		base: base{SeqNum: p.seqOrNext(hasSeq, seq)},
		Ts:   ts,
		PID:  pid,
		PPID: ppid,
		PGID: pgid,
		SID:  sid,
	}, nil
}

func (p *Parser) parseExecFilename(rest string) (PartialRecord, error) {
	seq, hasSeq, rest := p.consumeSeq(rest)

	tsStr, rest, err := takeField(rest, "ts")
	if err != nil {
		return nil, fmt.Errorf("EXEC_FILENAME: %w", err)
	}
	ts, err := parseUint64(tsStr, "ts")
	if err != nil {
		return nil, fmt.Errorf("EXEC_FILENAME: %w", err)
	}

	pidStr, rest, err := takeField(rest, "pid")
	if err != nil {
		return nil, fmt.Errorf("EXEC_FILENAME: %w", err)
	}
	pid, err := parseInt32(pidStr, "pid")
	if err != nil {
		return nil, fmt.Errorf("EXEC_FILENAME: %w", err)
	}

	if !strings.HasPrefix(rest, "filename=") {
		return nil, fmt.Errorf("EXEC_FILENAME: expected \"filename=\", got %q", rest)
	}
	filename := strings.TrimPrefix(rest, "filename=")

	return ExecFilename{
		base:     base{SeqNum: p.seqOrNext(hasSeq, seq)},
		Ts:       ts,
		PID:      pid,
		Filename: filename,
	}, nil
}

func (p *Parser) parseExecArgs(rest string) (PartialRecord, error) {
	seq, hasSeq, rest := p.consumeSeq(rest)

	tsStr, rest, err := takeField(rest, "ts")
	if err != nil {
		return nil, fmt.Errorf("EXEC_ARGS: %w", err)
	}
	ts, err := parseUint64(tsStr, "ts")
	if err != nil {
		return nil, fmt.Errorf("EXEC_ARGS: %w", err)
	}

	pidStr, rest, err := takeField(rest, "pid")
	if err != nil {
		return nil, fmt.Errorf("EXEC_ARGS: %w", err)
	}
	pid, err := parseInt32(pidStr, "pid")
	if err != nil {
		return nil, fmt.Errorf("EXEC_ARGS: %w", err)
	}

	// Everything remaining is the joined argv, verbatim: it may itself
	// contain commas or spaces.
	return ExecArgs{
		base: base{SeqNum: p.seqOrNext(hasSeq, seq)},
		Ts:   ts,
		PID:  pid,
		Args: rest,
	}, nil
}

func (p *Parser) parseExecSuccess(rest string) (PartialRecord, error) {
	b, ts, pid, ppid, pgid, err := p.parsePidTriple("EXEC", rest)
	if err != nil {
		return nil, err
	}
	return ExecSuccess{base: b, Ts: ts, PID: pid, PPID: ppid, PGID: pgid}, nil
}

func (p *Parser) parseBadExec(rest string) (PartialRecord, error) {
	seq, hasSeq, rest := p.consumeSeq(rest)

	tsStr, rest, err := takeField(rest, "ts")
	if err != nil {
		return nil, fmt.Errorf("BADEXEC: %w", err)
	}
	ts, err := parseUint64(tsStr, "ts")
	if err != nil {
		return nil, fmt.Errorf("BADEXEC: %w", err)
	}

	pidStr, _, err := takeField(rest, "pid")
	if err != nil {
		return nil, fmt.Errorf("BADEXEC: %w", err)
	}
	pid, err := parseInt32(pidStr, "pid")
	if err != nil {
		return nil, fmt.Errorf("BADEXEC: %w", err)
	}

	return BadExec{base: base{SeqNum: p.seqOrNext(hasSeq, seq)}, Ts: ts, PID: pid}, nil
}
