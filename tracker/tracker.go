// Package tracker maintains the foreground-process chain of a PTY
// session: an alternating walk of sessions (processes bound to a tty)
// and their foreground process groups, threading through any
// TTY-forwarding launchers (toolbox-style wrappers) into the
// containers they bridge to.
package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/owtaylor/ttymon/config"
	"github.com/owtaylor/ttymon/container"
	"github.com/owtaylor/ttymon/proc"
)

// sessionNode corresponds to a session: a set of processes sharing a
// controlling terminal. It points at the foreground group of that
// session, replaced wholesale whenever the kernel's notion of the
// foreground group changes.
type sessionNode struct {
	pid           int
	containerInfo *container.Info
	child         *groupNode
}

func newSessionNode(pid int, info *container.Info) *sessionNode {
	return &sessionNode{pid: pid, containerInfo: info}
}

func (s *sessionNode) update() {
	pgrp, err := proc.Process{Pid: s.pid}.TTYProcessGroup()
	if err != nil || pgrp <= 0 {
		s.child = nil
		return
	}
	if s.child == nil || s.child.pgrp != pgrp {
		s.child = newGroupNode(pgrp)
	}
}

// groupNode corresponds to a foreground process group. It only points
// to a child session if the group's argv0 is a recognized
// TTY-forwarding launcher and that launcher can be resolved to a
// contained process.
type groupNode struct {
	pgrp  int
	child *sessionNode
}

func newGroupNode(pgrp int) *groupNode {
	return &groupNode{pgrp: pgrp}
}

func (g *groupNode) update(ctx context.Context, cfg config.Config) {
	childPid := 0
	var info *container.Info

	argv0 := proc.Process{Pid: g.pgrp}.Argv0()
	if cfg.IsLauncher(argv0) {
		if peer, peerInfo, err := container.FindContainedPeer(ctx, cfg, g.pgrp); err == nil && peer != 0 {
			childPid = peer
			info = peerInfo
		}
	}

	if childPid == 0 {
		g.child = nil
		return
	}
	if g.child == nil || g.child.pid != childPid {
		g.child = newSessionNode(childPid, info)
	}
}

// ForegroundTracker walks the session/group chain rooted at the PTY
// relay's own shell process, producing the composite state the window
// title is derived from: the deepest foreground process's argv0 and
// cwd, and the container metadata of the deepest launcher crossed
// along the way.
type ForegroundTracker struct {
	cfg  config.Config
	root *sessionNode

	containerInfo   *container.Info
	foregroundArgv0 string
	foregroundCwd   string
}

// NewForegroundTracker creates a tracker rooted at rootPid, the PID of
// the shell directly forked under the PTY slave.
func NewForegroundTracker(cfg config.Config, rootPid int) *ForegroundTracker {
	return &ForegroundTracker{
		cfg:  cfg,
		root: newSessionNode(rootPid, nil),
	}
}

// Update re-walks the chain from the root session, re-resolving each
// node's child and refreshing the foreground argv0/cwd/container-info
// snapshot. It tolerates every introspection failure along the way by
// truncating the chain at the point of failure: a launcher that
// vanished, or a container that can no longer be inspected, simply
// stops contributing state until the next Update call succeeds again.
func (t *ForegroundTracker) Update(ctx context.Context) {
	t.root.update()

	group := t.root.child
	if group == nil {
		t.containerInfo = nil
		t.foregroundArgv0 = ""
		t.foregroundCwd = ""
		return
	}

	var groupPgrp int
	var info *container.Info

	for {
		groupPgrp = group.pgrp
		group.update(ctx, t.cfg)
		session := group.child
		if session == nil {
			break
		}

		session.update()
		info = session.containerInfo
		next := session.child
		if next == nil {
			break
		}
		group = next
	}

	p := proc.Process{Pid: groupPgrp}
	t.foregroundArgv0 = p.Argv0()
	if cwd, err := p.Cwd(); err == nil {
		t.foregroundCwd = cwd
	} else {
		t.foregroundCwd = ""
	}
	t.containerInfo = info
}

// ContainerInfo returns the container metadata of the deepest launcher
// crossed during the last Update, or nil if the chain never entered a
// container.
func (t *ForegroundTracker) ContainerInfo() *container.Info {
	return t.containerInfo
}

// ForegroundArgv0 returns the argv0 of the deepest foreground process
// group resolved during the last Update.
func (t *ForegroundTracker) ForegroundArgv0() string {
	return t.foregroundArgv0
}

// ForegroundCwd returns the cwd of the deepest foreground process
// group resolved during the last Update.
func (t *ForegroundTracker) ForegroundCwd() string {
	return t.foregroundCwd
}

// String renders the session-PID chain, for debug logging.
func (t *ForegroundTracker) String() string {
	var b strings.Builder
	b.WriteString("ForegroundTracker[")
	session := t.root
	for {
		fmt.Fprintf(&b, " S-%d", session.pid)
		group := session.child
		if group == nil {
			break
		}
		session = group.child
		if session == nil {
			break
		}
	}
	b.WriteString(" ]")
	return b.String()
}
