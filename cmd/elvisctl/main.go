package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lasselehtinen/elvis/internal/cli"
)

func main() {
	// Ctrl-C cancels the call in flight
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli.Execute(ctx)
}
