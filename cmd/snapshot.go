package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/owtaylor/ttymon/tracker"
)

var snapshotPid int

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Resolve and print the foreground chain once, without spawning a shell",
	Long: `Walk the foreground-process chain rooted at --pid (default: this
process) a single time and print the resolved container info, foreground
command, and working directory as JSON. Useful for debugging the
foreground tracker against a running session without attaching a pty.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().IntVar(&snapshotPid, "pid", 0, "root pid to walk the foreground chain from (default: this process's pid)")
	rootCmd.AddCommand(snapshotCmd)
}

// snapshotOutput is the JSON shape printed by runSnapshot. It shares
// the foreground_argv0/foreground_cwd keys with hooks.State, but
// flattens the container fields into top-level keys instead of a nested
// container_info object, and adds foreground_pid, which holds the root
// pid the walk started from.
type snapshotOutput struct {
	ContainerID   string `json:"container_id,omitempty"`
	ContainerName string `json:"container_name,omitempty"`
	ImageID       string `json:"image_id,omitempty"`
	ImageName     string `json:"image_name,omitempty"`
	ForegroundPid int    `json:"foreground_pid"`
	Argv0         string `json:"foreground_argv0"`
	Cwd           string `json:"foreground_cwd"`
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	cfg := buildConfig()

	pid := snapshotPid
	if pid == 0 {
		pid = os.Getpid()
	}

	t := tracker.NewForegroundTracker(cfg, pid)
	t.Update(ctx)

	out := snapshotOutput{
		ForegroundPid: pid,
		Argv0:         t.ForegroundArgv0(),
		Cwd:           t.ForegroundCwd(),
	}
	if info := t.ContainerInfo(); info != nil {
		out.ContainerID = info.ContainerID
		out.ContainerName = info.ContainerName
		out.ImageID = info.ImageID
		out.ImageName = info.ImageName
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
