package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/internal/server"
	"github.com/okian/scout/pkg/logger"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// The logger may not be initialized yet.
		_, _ = os.Stderr.WriteString("scout: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

// run loads configuration (defaults -> optional file -> env), initializes
// logging and serves until ctx ends.
func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.Get()

	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build server", logger.Error(err))
		return err
	}
	return srv.Run(ctx)
}
