// Command creditcore runs the lending credit core as a single process:
// the job runtime, the rabbitmq consumer, and a liveness-only HTTP
// server, all sharing one postgres pool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanakasan3/lana-bank-sub001/internal/bootstrap"
	"github.com/tanakasan3/lana-bank-sub001/internal/platform/mlog"
)

func main() {
	logger := mlog.InitializeLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.LoadConfig()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		logger.Errorf("creditcore: connect to postgres: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc, err := bootstrap.InitService(ctx, cfg, pool, logger)
	if err != nil {
		logger.Errorf("creditcore: init: %v", err)
		os.Exit(1)
	}

	logger.Info("creditcore: starting")

	if err := svc.Run(ctx); err != nil {
		logger.Errorf("creditcore: exited with error: %v", err)
		os.Exit(1)
	}
}
