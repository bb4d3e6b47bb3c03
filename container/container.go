// Package container resolves container metadata for a foreground
// process group that has traversed a TTY-forwarding launcher: it finds
// the per-container supervisor process bridging the launcher's TTY to
// the contained shell, and the contained shell's PID.
package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/owtaylor/ttymon/config"
	terrors "github.com/owtaylor/ttymon/errors"
	"github.com/owtaylor/ttymon/proc"
	"github.com/owtaylor/ttymon/sockdiag"
)

// containerIDRegex defines the valid container ID format: alphanumeric
// with dashes/underscores/dots, no path separators or special chars.
var containerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateContainerID checks that a container ID extracted from a
// supervisor's cmdline is safe to pass to the external inspector.
func ValidateContainerID(id string) error {
	if id == "" {
		return terrors.ErrEmptyContainerID
	}
	if len(id) > 1024 {
		return terrors.WrapWithDetail(nil, terrors.ErrConfig, "validate",
			fmt.Sprintf("container id too long (max 1024 characters): %d", len(id)))
	}
	if !containerIDRegex.MatchString(id) {
		return terrors.WrapWithDetail(nil, terrors.ErrConfig, "validate",
			fmt.Sprintf("container id %q contains invalid characters", id))
	}
	if id == "." || id == ".." || filepath.Clean(id) != id {
		return terrors.WrapWithDetail(terrors.ErrPathTraversal, terrors.ErrConfig, "validate",
			fmt.Sprintf("container id %q contains path traversal", id))
	}
	return nil
}

// Info is the container metadata attached to a Session node once its
// launcher chain has been resolved.
type Info struct {
	ContainerID   string
	ContainerName string
	ImageID       string
	ImageName     string
}

// inspectTimeout bounds the external inspector invocation so a hung
// command cannot stall the event loop's check step indefinitely.
const inspectTimeout = 2 * time.Second

// FindContainedPeer implements the ContainerResolver algorithm: given
// the process group id of a TTY-forwarding launcher, it locates the
// container supervisor bridging the launcher to a contained shell and
// returns the contained shell's PID plus container metadata. It
// returns (0, nil, nil) when no supervisor can be found - this is the
// expected, non-error outcome when the launcher hasn't attached to a
// container (yet, or at all).
func FindContainedPeer(ctx context.Context, cfg config.Config, ttyPgrp int) (int, *Info, error) {
	members, err := proc.ListProcessGroup(ttyPgrp)
	if err != nil {
		return 0, nil, err
	}

	peerInodes := make(map[uint64]bool)
	for _, m := range members {
		inodes, err := m.ListSocketInodes()
		if err != nil {
			continue
		}
		for _, ino := range inodes {
			peer, err := sockdiag.PeerInode(ino)
			if err != nil || peer == 0 {
				continue
			}
			peerInodes[peer] = true
		}
	}
	if len(peerInodes) == 0 {
		return 0, nil, nil
	}

	all, err := proc.Processes()
	if err != nil {
		return 0, nil, err
	}

	var supervisor *proc.Process
	for i := range all {
		p := all[i]
		if p.Argv0() != cfg.SupervisorPath {
			continue
		}
		ownInodes, err := p.ListSocketInodes()
		if err != nil {
			continue
		}
		for _, ino := range ownInodes {
			if peerInodes[ino] {
				supervisor = &p
				break
			}
		}
		if supervisor != nil {
			break
		}
	}
	if supervisor == nil {
		return 0, nil, nil
	}

	cmdline, err := supervisor.Cmdline()
	if err != nil {
		return 0, nil, err
	}
	containerID, ok := extractContainerID(cmdline)
	if !ok {
		return 0, nil, nil
	}
	if err := ValidateContainerID(containerID); err != nil {
		return 0, nil, err
	}

	info, err := Inspect(ctx, cfg.InspectorCmd, containerID)
	if err != nil {
		return 0, nil, err
	}

	var childPid int
	for _, p := range all {
		st, err := p.Stat()
		if err != nil {
			continue
		}
		if st.Ppid == supervisor.Pid {
			childPid = p.Pid
			break
		}
	}
	if childPid == 0 {
		return 0, nil, nil
	}

	return childPid, info, nil
}

// extractContainerID scans a supervisor's cmdline for a "-c" flag
// followed by the container ID argument.
func extractContainerID(cmdline []string) (string, bool) {
	for i, arg := range cmdline {
		if arg == "-c" && i+1 < len(cmdline) {
			return cmdline[i+1], true
		}
	}
	return "", false
}

// Inspect invokes the external container inspector (e.g. `podman
// inspect <id> -f "{{ .Name }} {{ .Image }} {{ .ImageName }}"`) and
// parses its single-line, space-separated output.
func Inspect(ctx context.Context, inspectorCmd, containerID string) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, inspectTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, inspectorCmd, "inspect", containerID, "-f", "{{ .Name }} {{ .Image }} {{ .ImageName }}")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, terrors.Wrap(err, terrors.ErrIntrospect, "inspect container")
	}

	info, err := parseInspectOutput(stdout.String())
	if err != nil {
		return nil, err
	}
	info.ContainerID = containerID
	return info, nil
}

// parseInspectOutput splits the inspector's single line of output into
// exactly three space-separated fields.
func parseInspectOutput(output string) (*Info, error) {
	fields := strings.Fields(output)
	if len(fields) != 3 {
		return nil, terrors.WrapWithDetail(terrors.ErrInspectorFailed, terrors.ErrIntrospect, "parse inspect output",
			fmt.Sprintf("expected 3 fields, got %d", len(fields)))
	}
	return &Info{
		ContainerName: fields[0],
		ImageID:       fields[1],
		ImageName:     fields[2],
	}, nil
}
