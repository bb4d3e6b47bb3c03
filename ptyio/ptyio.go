// Package ptyio allocates and manages the pseudoterminal pair the
// relay bridges: a master end the event loop reads/writes, and a slave
// end the spawned shell is attached to as its controlling terminal.
package ptyio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	terrors "github.com/owtaylor/ttymon/errors"
)

// PTY is an allocated pseudoterminal pair.
type PTY struct {
	master *os.File
	slave  *os.File
	path   string
}

// Open allocates a new pseudoterminal pair via /dev/ptmx, unlocking
// the slave so it can be opened.
func Open() (*PTY, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrSetup, "open /dev/ptmx")
	}

	ptyno, err := unix.IoctlGetInt(int(master.Fd()), unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, terrors.Wrap(err, terrors.ErrSetup, "TIOCGPTN")
	}

	if err := unix.IoctlSetPointerInt(int(master.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, terrors.Wrap(err, terrors.ErrSetup, "TIOCSPTLCK")
	}

	return &PTY{
		master: master,
		path:   fmt.Sprintf("/dev/pts/%d", ptyno),
	}, nil
}

// Master returns the master end of the pseudoterminal.
func (p *PTY) Master() *os.File {
	return p.master
}

// SlavePath returns the path to the slave end.
func (p *PTY) SlavePath() string {
	return p.path
}

// OpenSlave opens the slave end, memoizing the result.
func (p *PTY) OpenSlave() (*os.File, error) {
	if p.slave != nil {
		return p.slave, nil
	}
	slave, err := os.OpenFile(p.path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrSetup, "open slave pty")
	}
	p.slave = slave
	return slave, nil
}

// Close closes both ends of the pseudoterminal, if open.
func (p *PTY) Close() {
	if p.master != nil {
		p.master.Close()
	}
	if p.slave != nil {
		p.slave.Close()
	}
}

// CloseSlave closes the slave end only, keeping the master open. The
// relay calls this once a shell has been forked onto the slave end, so
// the shell holds the only remaining open fds to it; without this, the
// parent's copy of the slave fd would keep the pty "open" for EOF
// purposes even after the child exits.
func (p *PTY) CloseSlave() error {
	if p.slave == nil {
		return nil
	}
	err := p.slave.Close()
	p.slave = nil
	return err
}

// GetWinsize reads the terminal window size of f.
func GetWinsize(f *os.File) (*unix.Winsize, error) {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrIO, "TIOCGWINSZ")
	}
	return ws, nil
}

// SetWinsize applies ws to the terminal at f.
func SetWinsize(f *os.File, ws *unix.Winsize) error {
	if err := unix.IoctlSetWinsize(int(f.Fd()), unix.TIOCSWINSZ, ws); err != nil {
		return terrors.Wrap(err, terrors.ErrIO, "TIOCSWINSZ")
	}
	return nil
}

// Resize copies the controlling terminal's current window size onto
// master, for propagating a SIGWINCH from the real terminal down to
// the relayed pty.
func Resize(master *os.File) error {
	ws, err := GetWinsize(os.Stdin)
	if err != nil {
		return err
	}
	return SetWinsize(master, ws)
}
