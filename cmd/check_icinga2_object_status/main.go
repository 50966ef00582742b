package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nmslite/check-icinga2-object-status/internal/checker"
)

func main() {
	// Stdout carries the plugin line, logs go to stderr
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	rc := checker.Run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	os.Exit(rc)
}
