// Package config holds ttymon's runtime configuration: the shell to
// launch, the set of recognized TTY-forwarding launcher paths, the
// container supervisor path, and the container inspector command. All
// of these were hard-coded end-user-specific paths in the original
// implementation; this package makes them configurable.
package config

import (
	"os"
	"path/filepath"
)

// Config holds the paths and commands the foreground tracker and event
// loop need. All but Home are overridable via CLI flags; Home is always
// the current user's home directory.
type Config struct {
	// Home is the user's home directory, used to abbreviate the
	// foreground cwd in the composed window title.
	Home string

	// Shell is the interactive shell forked under the PTY slave.
	Shell string

	// LauncherPaths is the set of argv0 values recognized as
	// TTY-forwarding container launchers (e.g. toolbox).
	LauncherPaths []string

	// SupervisorPath is the argv0 of the per-container supervisor
	// process bridging a launcher's TTY to the contained process
	// (e.g. conmon).
	SupervisorPath string

	// InspectorCmd is the external command invoked to resolve
	// container metadata from a container ID (e.g. podman).
	InspectorCmd string
}

// DefaultConfig returns the configuration used when no overrides are
// given. The launcher path defaults to the canonical toolbox install
// location under the current user's home directory.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	cfg := Config{
		Home:           home,
		Shell:          "/bin/bash",
		SupervisorPath: "/usr/bin/conmon",
		InspectorCmd:   "podman",
	}
	if home != "" {
		cfg.LauncherPaths = []string{filepath.Join(home, "bin", "toolbox")}
	}
	return cfg
}

// IsLauncher reports whether argv0 matches one of the configured
// launcher paths.
func (c Config) IsLauncher(argv0 string) bool {
	for _, l := range c.LauncherPaths {
		if l == argv0 {
			return true
		}
	}
	return false
}
