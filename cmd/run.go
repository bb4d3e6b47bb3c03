package cmd

import (
	"github.com/spf13/cobra"

	"github.com/owtaylor/ttymon/relay"
)

// runRelay is rootCmd's default action: spawn the configured shell
// under a fresh pseudoterminal and relay it to the controlling
// terminal until either side reaches EOF.
func runRelay(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	cfg := buildConfig()
	hooksCfg := buildHooksConfig()

	pty, shellCmd, err := relay.Spawn(cfg)
	if err != nil {
		return err
	}
	defer pty.Close()

	loop := relay.New(cfg, hooksCfg, pty, shellCmd.Process.Pid)

	runErr := loop.Run(ctx)

	// Closing the master hangs up the shell's terminal, so a shell that
	// is still running exits; reap it so it doesn't linger as a zombie.
	pty.Close()
	_ = shellCmd.Wait()

	return runErr
}
