// Package main is the entry point for the sonar-setup binary.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "sonar-setup/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
