// GoNNTP - a command-line client for reaching NNTP servers over plain
// TCP, TLS or Noise, optionally through an SSH jump host.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gonntp/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gonntp: %v\n", err)
		os.Exit(1)
	}
}
