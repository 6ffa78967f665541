package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dabba-checkout/internal/cache"
	"dabba-checkout/internal/config"
	"dabba-checkout/internal/db"
	"dabba-checkout/internal/httpserver"
	"dabba-checkout/internal/logging"
	"dabba-checkout/internal/metrics"
	orderrepo "dabba-checkout/internal/repository/order"
	repairrepo "dabba-checkout/internal/repository/repair"
	"dabba-checkout/internal/service/checkout"
	ordersvc "dabba-checkout/internal/service/order"
	"dabba-checkout/internal/service/payment"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(os.Stdout, "api", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	verifier, err := payment.NewVerifier(payment.Config{Secret: cfg.SigningSecret})
	if err != nil {
		logger.Error("init payment verifier", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Error("connect to db", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	var receipts cache.Receipts
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		receipts = cache.NewRedisReceipts(client, cfg.ReceiptTTL)
		logger.Info("receipt cache enabled", "addr", cfg.RedisAddr)
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckout(registry)

	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	repairRepo := repairrepo.NewPostgres(dbpool)
	orderService := ordersvc.New(orderRepo, repairRepo, receipts, logger)
	pipeline := checkout.NewPipeline(verifier, orderService, checkoutMetrics, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Checkout:    pipeline,
		Orders:      orderService,
		Metrics:     metrics.Handler(registry),
		CORSOrigins: cfg.CORSAllowedOrigins,
	}, cfg.ShutdownTimeout)
	if err != nil {
		logger.Error("init server", "error", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
