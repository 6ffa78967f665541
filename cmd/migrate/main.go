package main

import (
	"context"
	"os"

	"dabba-checkout/internal/config"
	"dabba-checkout/internal/db"
	"dabba-checkout/internal/logging"
	"dabba-checkout/internal/migrate"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(os.Stdout, "migrate", cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Error("connect db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, logger); err != nil {
		logger.Error("apply migrations", "error", err)
		os.Exit(1)
	}

	logger.Info("migrations applied")
}
