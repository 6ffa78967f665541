package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"dabba-checkout/internal/config"
	"dabba-checkout/internal/db"
	"dabba-checkout/internal/logging"
	orderrepo "dabba-checkout/internal/repository/order"
	repairrepo "dabba-checkout/internal/repository/repair"
	"dabba-checkout/internal/service/repair"
)

func main() {
	once := flag.Bool("once", false, "process one batch and exit")
	flag.Parse()

	cfg := config.FromEnv()
	logger := logging.New(os.Stdout, "repair", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Error("connect db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	worker := repair.NewWorker(
		repairrepo.NewPostgres(pool),
		orderrepo.NewPostgres(pool, logger),
		repair.Options{
			Interval:    cfg.RepairInterval,
			BatchSize:   cfg.RepairBatchSize,
			MaxAttempts: cfg.RepairMaxAttempts,
		},
		logger,
	)

	if *once {
		n, err := worker.RunOnce(ctx)
		if err != nil {
			logger.Error("repair pass failed", "error", err)
			os.Exit(1)
		}
		logger.Info("repair pass finished", "repaired", n)
		return
	}

	logger.Info("repair worker started", "interval", cfg.RepairInterval.String(), "batchSize", cfg.RepairBatchSize, "maxAttempts", cfg.RepairMaxAttempts)
	worker.Run(ctx)
	logger.Info("repair worker stopped")
}
