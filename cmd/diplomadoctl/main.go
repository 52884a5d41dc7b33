package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/p-n-ai/diplomado/internal/app"
	"github.com/p-n-ai/diplomado/internal/cli"
	"github.com/p-n-ai/diplomado/internal/platform/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// Operator commands only report warnings and errors.
	if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	slog.SetDefault(app.NewLogger(os.Stderr, cfg.Log))

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return cli.NewRootCmd(a).ExecuteContext(ctx)
}
