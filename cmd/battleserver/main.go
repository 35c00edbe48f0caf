// Package main starts the battle HTTP API server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	battleservercmd "github.com/louisbranch/autoresolve/internal/cmd/battleserver"
	"github.com/louisbranch/autoresolve/internal/platform/config"
)

func main() {
	cfg, err := battleservercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := battleservercmd.Run(ctx, cfg); err != nil {
		config.Exitf("Error: %v", err)
	}
}
