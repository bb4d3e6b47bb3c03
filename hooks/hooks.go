// Package hooks runs optional external programs in response to
// foreground-chain transitions the tracker observes, passing the new
// state as JSON on the program's stdin.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"time"

	"github.com/owtaylor/ttymon/container"
	terrors "github.com/owtaylor/ttymon/errors"
)

// Transition identifies which tracker-observed change triggered a hook.
type Transition string

const (
	// ForegroundChange fires when the foreground argv0 or cwd changes.
	ForegroundChange Transition = "foreground-change"

	// ContainerChange fires when the resolved container identity changes
	// (including entering or leaving a container).
	ContainerChange Transition = "container-change"
)

// defaultTimeout bounds a hook's execution so a hung hook cannot stall
// the event loop's check step.
const defaultTimeout = 5 * time.Second

// State is the JSON payload written to a hook's stdin: a snapshot of
// the tracker's derived output at the moment of transition.
type State struct {
	ContainerInfo   *container.Info `json:"container_info"`
	ForegroundArgv0 string          `json:"foreground_argv0"`
	ForegroundCwd   string          `json:"foreground_cwd"`
}

// Config holds the optional hook paths, one per transition, and the
// timeout applied to each invocation.
type Config struct {
	OnForegroundChange string
	OnContainerChange  string
	Timeout            time.Duration
}

// path returns the configured hook path for transition, or "" if none
// is configured.
func (c Config) path(transition Transition) string {
	switch transition {
	case ForegroundChange:
		return c.OnForegroundChange
	case ContainerChange:
		return c.OnContainerChange
	default:
		return ""
	}
}

// Run invokes the hook configured for transition, if any, with state
// serialized as JSON on its stdin. A transition with no configured
// hook is a silent no-op.
func Run(ctx context.Context, cfg Config, transition Transition, state State) error {
	path := cfg.path(transition)
	if path == "" {
		return nil
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return terrors.Wrap(err, terrors.ErrInternal, "marshal hook state")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path)
	cmd.Stdin = bytes.NewReader(stateJSON)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return terrors.WrapWithDetail(err, terrors.ErrIO, "run hook", string(transition))
	}
	return nil
}
