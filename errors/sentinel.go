// Package errors provides predefined sentinel errors for common failure cases.
package errors

// PTY and terminal setup errors.
var (
	// ErrPTYAllocate indicates /dev/ptmx allocation failed.
	ErrPTYAllocate = &TtymonError{
		Kind:   ErrSetup,
		Detail: "failed to allocate pty",
	}

	// ErrForkFailed indicates the shell could not be forked.
	ErrForkFailed = &TtymonError{
		Kind:   ErrSetup,
		Detail: "failed to fork shell",
	}

	// ErrTermAttr indicates the terminal attributes could not be read
	// or applied.
	ErrTermAttr = &TtymonError{
		Kind:   ErrSetup,
		Detail: "failed to get or set terminal attributes",
	}
)

// procfs / netlink / container-resolver errors (non-fatal, tolerated per
// the tracker's retry-on-next-check behavior).
var (
	// ErrProcessNotFound indicates a process disappeared between being
	// listed and being queried.
	ErrProcessNotFound = &TtymonError{
		Kind:   ErrIntrospect,
		Detail: "process not found",
	}

	// ErrStatParse indicates /proc/<pid>/stat could not be parsed.
	ErrStatParse = &TtymonError{
		Kind:   ErrIntrospect,
		Detail: "failed to parse stat",
	}

	// ErrNoSupervisor indicates no conmon-like supervisor process was
	// found bridging the launcher to a contained shell.
	ErrNoSupervisor = &TtymonError{
		Kind:   ErrIntrospect,
		Detail: "no container supervisor found",
	}

	// ErrInspectorFailed indicates the external container inspector
	// command exited non-zero or produced unparsable output.
	ErrInspectorFailed = &TtymonError{
		Kind:   ErrIntrospect,
		Detail: "container inspector failed",
	}

	// ErrNetlinkRequest indicates the SOCK_DIAG netlink request failed
	// or returned an unexpected payload.
	ErrNetlinkRequest = &TtymonError{
		Kind:   ErrIntrospect,
		Detail: "netlink sock_diag request failed",
	}
)

// Configuration errors.
var (
	// ErrInvalidContainerID indicates a container ID extracted from a
	// supervisor's cmdline failed validation.
	ErrInvalidContainerID = &TtymonError{
		Kind:   ErrConfig,
		Detail: "invalid container id",
	}

	// ErrEmptyContainerID indicates the container ID is empty.
	ErrEmptyContainerID = &TtymonError{
		Kind:   ErrConfig,
		Detail: "container id cannot be empty",
	}

	// ErrPathTraversal indicates a path traversal attempt was detected
	// in a container ID.
	ErrPathTraversal = &TtymonError{
		Kind:   ErrConfig,
		Detail: "path traversal detected",
	}
)
