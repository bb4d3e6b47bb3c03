// Package proc implements the procfs introspection the foreground
// tracker relies on: enumerating processes, parsing /proc/<pid>/stat,
// reading cmdline and cwd, and listing a process's open socket inodes.
package proc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	terrors "github.com/owtaylor/ttymon/errors"
)

// allNumbers matches the numeric-named entries under /proc that
// identify a process.
var allNumbers = regexp.MustCompile(`^[0-9]+$`)

// socketInode matches an fd symlink target of the form "socket:[N]".
var socketInode = regexp.MustCompile(`^socket:\[(\d+)\]$`)

// Process is a handle to a process by PID. It performs no caching: every
// accessor re-reads procfs, matching the kernel's always-current view.
type Process struct {
	Pid int
}

// Stat holds the fields of /proc/<pid>/stat this package cares about.
type Stat struct {
	Comm    string
	State   byte
	Ppid    int
	Pgrp    int
	Session int
	TTYPgrp int
}

// Processes enumerates every numeric-named entry under /proc.
func Processes() ([]Process, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrIntrospect, "read /proc")
	}
	procs := make([]Process, 0, len(entries))
	for _, e := range entries {
		if !allNumbers.MatchString(e.Name()) {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		procs = append(procs, Process{Pid: pid})
	}
	return procs, nil
}

// ListProcessGroup returns every process whose kernel process group
// matches pgrp.
func ListProcessGroup(pgrp int) ([]Process, error) {
	all, err := Processes()
	if err != nil {
		return nil, err
	}
	var members []Process
	for _, p := range all {
		g, err := p.ProcessGroup()
		if err != nil {
			continue
		}
		if g == pgrp {
			members = append(members, p)
		}
	}
	return members, nil
}

// Stat reads and parses /proc/<pid>/stat.
//
// The comm field is parenthesized and may itself contain spaces or
// parentheses, so it cannot be split on whitespace naively: find the
// first " (" from the left and the last ") " from the right, treat
// what precedes as field 0, what is enclosed as field 1 (comm), and
// split what follows (after the space following ")") on whitespace
// for the remaining fields.
func (p Process) Stat() (Stat, error) {
	raw, err := os.ReadFile(p.path("stat"))
	if err != nil {
		return Stat{}, terrors.Wrap(err, terrors.ErrIntrospect, "read stat")
	}
	st, err := parseStat(raw)
	if err != nil {
		return Stat{}, terrors.WrapWithDetail(err, terrors.ErrIntrospect, "parse stat", fmt.Sprintf("pid %d", p.Pid))
	}
	return st, nil
}

// parseStat parses the raw contents of a /proc/<pid>/stat file.
func parseStat(raw []byte) (Stat, error) {
	openIdx := bytes.Index(raw, []byte(" ("))
	closeIdx := bytes.LastIndex(raw, []byte(") "))
	if openIdx < 0 || closeIdx < 0 || closeIdx < openIdx {
		return Stat{}, terrors.ErrStatParse
	}

	comm := string(raw[openIdx+2 : closeIdx])
	rest := strings.Fields(string(raw[closeIdx+2:]))

	// rest[0] is field 2 (state) in the 0-indexed field numbering of
	// the whole stat line; rest[i] is field i+2.
	field := func(idx int) (string, error) {
		restIdx := idx - 2
		if restIdx < 0 || restIdx >= len(rest) {
			return "", terrors.WrapWithDetail(terrors.ErrStatParse, terrors.ErrIntrospect, "parse stat", fmt.Sprintf("field %d missing", idx))
		}
		return rest[restIdx], nil
	}

	stateStr, err := field(2)
	if err != nil {
		return Stat{}, err
	}
	ppidStr, err := field(3)
	if err != nil {
		return Stat{}, err
	}
	pgrpStr, err := field(4)
	if err != nil {
		return Stat{}, err
	}
	sessionStr, err := field(5)
	if err != nil {
		return Stat{}, err
	}
	ttyPgrpStr, err := field(7)
	if err != nil {
		return Stat{}, err
	}

	ppid, err := strconv.Atoi(ppidStr)
	if err != nil {
		return Stat{}, terrors.Wrap(err, terrors.ErrIntrospect, "parse ppid")
	}
	pgrp, err := strconv.Atoi(pgrpStr)
	if err != nil {
		return Stat{}, terrors.Wrap(err, terrors.ErrIntrospect, "parse pgrp")
	}
	session, err := strconv.Atoi(sessionStr)
	if err != nil {
		return Stat{}, terrors.Wrap(err, terrors.ErrIntrospect, "parse session")
	}
	ttyPgrp, err := strconv.Atoi(ttyPgrpStr)
	if err != nil {
		return Stat{}, terrors.Wrap(err, terrors.ErrIntrospect, "parse tty_pgrp")
	}

	return Stat{
		Comm:    comm,
		State:   stateStr[0],
		Ppid:    ppid,
		Pgrp:    pgrp,
		Session: session,
		TTYPgrp: ttyPgrp,
	}, nil
}

// Cmdline returns the NUL-separated argv of the process.
func (p Process) Cmdline() ([]string, error) {
	raw, err := os.ReadFile(p.path("cmdline"))
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrIntrospect, "read cmdline")
	}
	raw = bytes.TrimRight(raw, "\x00")
	if len(raw) == 0 {
		return nil, nil
	}
	parts := bytes.Split(raw, []byte{0})
	argv := make([]string, len(parts))
	for i, part := range parts {
		argv[i] = string(part)
	}
	return argv, nil
}

// Argv0 returns the first cmdline argument, or "???" if it cannot be
// determined.
func (p Process) Argv0() string {
	argv, err := p.Cmdline()
	if err != nil || len(argv) == 0 {
		return "???"
	}
	return argv[0]
}

// Cwd returns the target of the process's cwd symlink.
func (p Process) Cwd() (string, error) {
	target, err := os.Readlink(p.path("cwd"))
	if err != nil {
		return "", terrors.Wrap(err, terrors.ErrIntrospect, "readlink cwd")
	}
	return target, nil
}

// ListSocketInodes scans fd/* for symlinks targeting "socket:[N]" and
// returns the set of N values.
func (p Process) ListSocketInodes() ([]uint64, error) {
	dir := p.path("fd")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrIntrospect, "read fd dir")
	}
	var inodes []uint64
	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		m := socketInode.FindStringSubmatch(target)
		if m == nil {
			continue
		}
		ino, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		inodes = append(inodes, ino)
	}
	return inodes, nil
}

// Parent returns the process's parent, from the ppid field of stat.
func (p Process) Parent() (Process, error) {
	st, err := p.Stat()
	if err != nil {
		return Process{}, err
	}
	return Process{Pid: st.Ppid}, nil
}

// ProcessGroup returns the process's pgrp.
func (p Process) ProcessGroup() (int, error) {
	st, err := p.Stat()
	if err != nil {
		return 0, err
	}
	return st.Pgrp, nil
}

// TTYProcessGroup returns the foreground process group of the
// process's controlling terminal.
func (p Process) TTYProcessGroup() (int, error) {
	st, err := p.Stat()
	if err != nil {
		return 0, err
	}
	return st.TTYPgrp, nil
}

func (p Process) path(file string) string {
	return filepath.Join("/proc", strconv.Itoa(p.Pid), file)
}
