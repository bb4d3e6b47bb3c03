// ttymon is a transparent PTY relay that wraps an interactive shell,
// rewriting the terminal's window title with the shell's current
// foreground command, working directory, and — when the foreground
// chain crosses a container launcher — the container's name.
package main

import (
	"fmt"
	"os"

	"github.com/owtaylor/ttymon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
