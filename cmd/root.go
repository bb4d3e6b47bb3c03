// Package cmd implements ttymon's CLI: a cobra root command that runs
// the PTY relay by default, plus a version and a debug snapshot
// subcommand.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/owtaylor/ttymon/config"
	"github.com/owtaylor/ttymon/hooks"
	"github.com/owtaylor/ttymon/logging"
)

// Version information set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// Global flags, mirrored into a config.Config before each command runs.
var (
	flagShell          string
	flagLauncherPaths  []string
	flagSupervisorPath string
	flagInspectorCmd   string
	flagLog            string
	flagLogFormat      string
	flagLogLevel       string
	flagDebug          bool

	flagOnForegroundChange string
	flagOnContainerChange  string
	flagHookTimeout        time.Duration
)

// rootCmd is ttymon's base command. Running it with no subcommand
// spawns the configured shell under a pseudoterminal and relays it to
// the controlling terminal for the lifetime of the process — ttymon
// has no interactive subcommands of its own beyond the debug helpers
// below.
var rootCmd = &cobra.Command{
	Use:   "ttymon",
	Short: "Transparent PTY relay with container-aware window titles",
	Long: `ttymon wraps an interactive shell in a pseudoterminal relay.

It passes terminal output through untouched except for the window-title
escape sequence, which it rewrites with the shell's current foreground
command, working directory, and — when the foreground process chain has
traversed a container launcher — the container's name.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
	RunE: runRelay,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetContext returns a context that cancels on SIGINT/SIGTERM.
func GetContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

// buildConfig merges the CLI flags onto config.DefaultConfig(), so
// unset flags fall back to the original hard-coded defaults.
func buildConfig() config.Config {
	cfg := config.DefaultConfig()
	if flagShell != "" {
		cfg.Shell = flagShell
	}
	if len(flagLauncherPaths) > 0 {
		cfg.LauncherPaths = flagLauncherPaths
	}
	if flagSupervisorPath != "" {
		cfg.SupervisorPath = flagSupervisorPath
	}
	if flagInspectorCmd != "" {
		cfg.InspectorCmd = flagInspectorCmd
	}
	return cfg
}

// buildHooksConfig maps the hook CLI flags onto a hooks.Config.
func buildHooksConfig() hooks.Config {
	return hooks.Config{
		OnForegroundChange: flagOnForegroundChange,
		OnContainerChange:  flagOnContainerChange,
		Timeout:            flagHookTimeout,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagShell, "shell", "", "shell to spawn under the pty (default: /bin/bash)")
	rootCmd.PersistentFlags().StringSliceVar(&flagLauncherPaths, "launcher-path", nil, "argv0 path recognized as a tty-forwarding container launcher (repeatable; default: ~/bin/toolbox)")
	rootCmd.PersistentFlags().StringVar(&flagSupervisorPath, "supervisor-path", "", "argv0 path of the per-container supervisor process (default: /usr/bin/conmon)")
	rootCmd.PersistentFlags().StringVar(&flagInspectorCmd, "inspector-cmd", "", "external command used to resolve container metadata (default: podman)")

	rootCmd.PersistentFlags().StringVar(&flagLog, "log", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log output format (text or json)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging (shorthand for --log-level=debug)")

	rootCmd.PersistentFlags().StringVar(&flagOnForegroundChange, "on-foreground-change", "", "external command invoked with the new foreground state as JSON on stdin whenever it changes")
	rootCmd.PersistentFlags().StringVar(&flagOnContainerChange, "on-container-change", "", "external command invoked with the new container state as JSON on stdin whenever it changes")
	rootCmd.PersistentFlags().DurationVar(&flagHookTimeout, "hook-timeout", 0, "timeout for --on-foreground-change/--on-container-change commands (default: 5s)")
}

func setupLogging() {
	logOutput := os.Stderr
	if flagLog != "" {
		f, err := os.OpenFile(flagLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			logOutput = f
		}
	}

	level := logging.ParseLevel(flagLogLevel)
	if flagDebug {
		level = logrus.DebugLevel
	}

	logger := logging.New(logging.Config{
		Level:  level,
		Format: flagLogFormat,
		Output: logOutput,
	})
	logging.SetDefault(logger)
}
