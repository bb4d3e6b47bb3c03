// Package relay implements the transparent PTY relay: it spawns the
// configured shell under a pseudoterminal, copies bytes between the
// controlling terminal and the shell with control-sequence filtering
// applied to the shell-to-terminal direction, and periodically
// refreshes and injects a composed window title.
package relay

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/owtaylor/ttymon/config"
	"github.com/owtaylor/ttymon/container"
	terrors "github.com/owtaylor/ttymon/errors"
	"github.com/owtaylor/ttymon/filter"
	"github.com/owtaylor/ttymon/hooks"
	"github.com/owtaylor/ttymon/logging"
	"github.com/owtaylor/ttymon/ptyio"
	"github.com/owtaylor/ttymon/tracker"
)

// Check at .1 / .5 / 2.5 / 12.5 / .... / 60 seconds.
const (
	minCheckInterval        = 100 * time.Millisecond
	maxCheckInterval        = 60 * time.Second
	checkIntervalMultiplier = 5

	bufSize = 4096

	epollMasterData = 0
	epollStdinData  = 1
)

// buffer is a fixed-size read/write staging area, matching the
// original implementation's single-read-then-drain-write approach.
type buffer struct {
	buf   []byte
	count int
}

func newBuffer() *buffer {
	return &buffer{buf: make([]byte, bufSize)}
}

// fill reads once into the unused tail of buf. It returns false on
// EOF.
func (b *buffer) fill(fd int) (bool, error) {
	n, err := unix.Read(fd, b.buf[b.count:])
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	b.count += n
	return true, nil
}

// flush writes the full buffered contents to fd and resets the count.
func (b *buffer) flush(fd int) error {
	if err := writeAll(fd, b.buf[:b.count]); err != nil {
		return err
	}
	b.count = 0
	return nil
}

func writeAll(fd int, buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := unix.Write(fd, buf[written:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		written += n
	}
	return nil
}

// filteredBuffer is a buffer whose fill step feeds the raw bytes
// through a ControlSequenceFilter before they become visible to
// flush, capturing any inbound OSC-0 title instead of passing it
// along.
type filteredBuffer struct {
	raw    *buffer
	filter *filter.Filter
}

func newFilteredBuffer() *filteredBuffer {
	return &filteredBuffer{raw: newBuffer(), filter: filter.New()}
}

func (f *filteredBuffer) fill(fd int) (bool, error) {
	ok, err := f.raw.fill(fd)
	if err != nil || !ok {
		return ok, err
	}
	f.filter.Feed(f.raw.buf[:f.raw.count])
	f.raw.count = 0
	return true, nil
}

func (f *filteredBuffer) flush(fd int) error {
	if err := writeAll(fd, f.filter.Output()); err != nil {
		return err
	}
	f.filter.ClearOutput()
	return nil
}

// EventLoop bridges a pseudoterminal master to the controlling
// terminal's stdin/stdout, applying the control-sequence filter and
// periodically refreshing and injecting the window title.
type EventLoop struct {
	pty      *ptyio.PTY
	cfg      config.Config
	hooksCfg hooks.Config
	home     string

	tracker *tracker.ForegroundTracker

	checkInterval time.Duration
	lastCheckTime time.Time
	hasChecked    bool

	// prevArgv0/prevCwd/prevContainerID snapshot the tracker's derived
	// output as of the last check, so maybeCheck can tell whether a
	// transition hook should fire this time.
	prevArgv0       string
	prevCwd         string
	prevContainerID string
}

// New creates an EventLoop for a shell already forked onto pty's
// slave end, identified by childPid. hooksCfg configures the optional
// external hooks fired on foreground/container transitions; its zero
// value disables both.
func New(cfg config.Config, hooksCfg hooks.Config, pty *ptyio.PTY, childPid int) *EventLoop {
	return &EventLoop{
		pty:           pty,
		cfg:           cfg,
		hooksCfg:      hooksCfg,
		home:          cfg.Home,
		tracker:       tracker.NewForegroundTracker(cfg, childPid),
		checkInterval: minCheckInterval,
	}
}

// Spawn allocates a pseudoterminal and forks the configured shell onto
// its slave end as a new session leader with the slave as its
// controlling terminal, mirroring the child_setup step of the original
// relay: dup the pty onto stdin/stdout/stderr, then setsid.
func Spawn(cfg config.Config) (*ptyio.PTY, *exec.Cmd, error) {
	pty, err := ptyio.Open()
	if err != nil {
		return nil, nil, err
	}

	slave, err := pty.OpenSlave()
	if err != nil {
		pty.Close()
		return nil, nil, err
	}

	cmd := exec.Command(cfg.Shell)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0,
	}

	if err := cmd.Start(); err != nil {
		pty.Close()
		return nil, nil, terrors.Wrap(err, terrors.ErrSetup, "fork shell")
	}

	if err := pty.CloseSlave(); err != nil {
		logging.Warn("failed to close parent's slave pty fd: " + err.Error())
	}

	return pty, cmd, nil
}

// maybeCheck runs a tracker update and title refresh if the check
// interval has elapsed, backing off the interval on every check and
// returning the duration to wait before the next poll (either until
// the next check is due, or indefinitely if i/o arrives first).
func (e *EventLoop) maybeCheck(ctx context.Context, fromChild *filteredBuffer) time.Duration {
	now := time.Now()
	nextCheckTime := now
	if e.hasChecked {
		nextCheckTime = e.lastCheckTime.Add(e.checkInterval)
	}

	if !nextCheckTime.After(now) {
		e.tracker.Update(ctx)

		var containerName string
		info := e.tracker.ContainerInfo()
		if info != nil {
			containerName = info.ContainerName
		}
		argv0 := e.tracker.ForegroundArgv0()
		cwd := e.tracker.ForegroundCwd()

		e.fireTransitionHooks(ctx, info, argv0, cwd)

		inTitle := fromChild.filter.InboundTitle()
		title := e.makeWindowTitle(containerName, cwd, argv0, inTitle)
		fromChild.filter.SetOutboundTitle(title)
		if err := fromChild.flush(unix.Stdout); err != nil {
			logging.Warn("failed to flush title update: " + err.Error())
		}

		e.checkInterval = minDuration(maxCheckInterval, e.checkInterval*checkIntervalMultiplier)
		e.lastCheckTime = now
		e.hasChecked = true
		return e.checkInterval
	}
	return nextCheckTime.Sub(now)
}

// fireTransitionHooks invokes the configured foreground/container
// change hooks, if any, when the tracker's derived output differs
// from the last check. A hook error is logged and otherwise ignored:
// hooks are an optional side effect, never a reason to disrupt the
// relay.
func (e *EventLoop) fireTransitionHooks(ctx context.Context, info *container.Info, argv0, cwd string) {
	state := hooks.State{ContainerInfo: info, ForegroundArgv0: argv0, ForegroundCwd: cwd}

	if argv0 != e.prevArgv0 || cwd != e.prevCwd {
		if err := hooks.Run(ctx, e.hooksCfg, hooks.ForegroundChange, state); err != nil {
			logging.Warn("foreground-change hook failed: " + err.Error())
		}
	}

	var containerID string
	if info != nil {
		containerID = info.ContainerID
	}
	if containerID != e.prevContainerID {
		if err := hooks.Run(ctx, e.hooksCfg, hooks.ContainerChange, state); err != nil {
			logging.Warn("container-change hook failed: " + err.Error())
		}
	}

	e.prevArgv0 = argv0
	e.prevCwd = cwd
	e.prevContainerID = containerID
}

// makeWindowTitle composes the outbound window title:
// "<container> - <cwd> - <argv0> - <inbound title>", with the
// container segment omitted when containerName is empty, and cwd
// abbreviated to "~"-relative when it falls under home.
func (e *EventLoop) makeWindowTitle(containerName, cwd, argv0, inTitle string) string {
	var b strings.Builder

	if containerName != "" {
		b.WriteString(containerName)
		b.WriteString(" - ")
	}

	if e.home != "" {
		if rel, ok := strings.CutPrefix(cwd, e.home); ok {
			if rel == "" {
				cwd = "~"
			} else if strings.HasPrefix(rel, string(filepath.Separator)) {
				cwd = "~" + rel
			}
		}
	}
	b.WriteString(cwd)
	b.WriteString(" - ")
	b.WriteString(argv0)
	b.WriteString(" - ")
	b.WriteString(inTitle)

	return b.String()
}

// Run drives the relay's epoll-based event loop until the child shell
// exits or stdin reaches EOF. It puts the controlling terminal's stdin
// into raw mode for the duration of the loop, restoring it on return.
func (e *EventLoop) Run(ctx context.Context) error {
	raw, err := ptyio.MakeRaw(unix.Stdin)
	if err != nil {
		return err
	}
	defer func() {
		if err := raw.Restore(); err != nil {
			logging.Warn("failed to restore terminal mode: " + err.Error())
		}
	}()

	masterFd := int(e.pty.Master().Fd())

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	if err := ptyio.Resize(e.pty.Master()); err != nil {
		logging.Warn("failed to propagate initial window size: " + err.Error())
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return terrors.Wrap(err, terrors.ErrIO, "epoll_create1")
	}
	defer unix.Close(epfd)

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, masterFd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: epollMasterData}); err != nil {
		return terrors.Wrap(err, terrors.ErrIO, "epoll_ctl add master")
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, unix.Stdin, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: epollStdinData}); err != nil {
		return terrors.Wrap(err, terrors.ErrIO, "epoll_ctl add stdin")
	}

	fromChild := newFilteredBuffer()
	toChild := newBuffer()

	events := make([]unix.EpollEvent, 2)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-winch:
			if err := ptyio.Resize(e.pty.Master()); err != nil {
				logging.Warn("failed to propagate window size: " + err.Error())
			}
		default:
		}

		remaining := e.maybeCheck(ctx, fromChild)

		n, err := unix.EpollWait(epfd, events, int(remaining.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return terrors.Wrap(err, terrors.ErrIO, "epoll_wait")
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			switch ev.Fd {
			case epollMasterData:
				if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP) == 0 {
					continue
				}
				ok, err := fromChild.fill(masterFd)
				if err != nil {
					return terrors.Wrap(err, terrors.ErrIO, "read pty master")
				}
				if !ok {
					return nil
				}
				if err := fromChild.flush(unix.Stdout); err != nil {
					return terrors.Wrap(err, terrors.ErrIO, "write stdout")
				}
				e.checkInterval = minCheckInterval
			case epollStdinData:
				if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP) == 0 {
					continue
				}
				ok, err := toChild.fill(unix.Stdin)
				if err != nil {
					return terrors.Wrap(err, terrors.ErrIO, "read stdin")
				}
				if !ok {
					return nil
				}
				if err := toChild.flush(masterFd); err != nil {
					return terrors.Wrap(err, terrors.ErrIO, "write pty master")
				}
			}
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
