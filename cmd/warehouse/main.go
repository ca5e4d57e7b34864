// Command warehouse places products into a 3D grid of rows, shelves and
// zones and keeps the grid in a snapshot between runs.
package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/calvinalkan/warehouse/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Interrupts cancel the running command.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, envMap(os.Environ()), sigCh)
}

// envMap splits KEY=VALUE pairs. Entries without '=' are dropped.
func envMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))

	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	return env
}
