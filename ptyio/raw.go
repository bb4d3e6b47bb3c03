package ptyio

import (
	"golang.org/x/term"

	terrors "github.com/owtaylor/ttymon/errors"
)

// RawState is the saved terminal state needed to restore a file
// descriptor to its original (cooked) mode.
type RawState struct {
	fd    int
	state *term.State
}

// MakeRaw puts the terminal open on fd into raw mode, saving the
// previous state for Restore. This replaces hand-rolled Termios
// ioctl manipulation with golang.org/x/term, which already encodes the
// same BRKINT/ICRNL/... flag combination portably.
func MakeRaw(fd int) (*RawState, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, terrors.Wrap(err, terrors.ErrSetup, "make raw")
	}
	return &RawState{fd: fd, state: state}, nil
}

// Restore reverts the terminal to the mode captured by MakeRaw.
func (r *RawState) Restore() error {
	if r == nil {
		return nil
	}
	if err := term.Restore(r.fd, r.state); err != nil {
		return terrors.Wrap(err, terrors.ErrIO, "restore terminal mode")
	}
	return nil
}
