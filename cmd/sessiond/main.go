// Command sessiond serves the sessionkit Engine over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sessiond:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings, cfg, err := loadSettings()
	if err != nil {
		return err
	}
	logger := newLogger(settings.LogLevel)

	a, err := newApp(ctx, settings, cfg, logger)
	if err != nil {
		return err
	}
	return a.run(ctx)
}
