// Package main provides a CLI that resolves battle scenario files.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	autoresolvecmd "github.com/louisbranch/autoresolve/internal/cmd/autoresolve"
	"github.com/louisbranch/autoresolve/internal/platform/config"
)

func main() {
	cfg, err := autoresolvecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := autoresolvecmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}
