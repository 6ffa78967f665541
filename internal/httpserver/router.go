package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"dabba-checkout/internal/domain"
	"dabba-checkout/internal/service/checkout"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type checkoutPipeline interface {
	Verify(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type orderReader interface {
	GetForBuyer(ctx context.Context, id, buyerID string) (*domain.Order, error)
}

// Deps are the services the router exposes. Orders and Metrics are optional.
type Deps struct {
	Checkout    checkoutPipeline
	Orders      orderReader
	Metrics     http.Handler
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *slog.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.Checkout == nil {
		return nil, errors.New("checkout pipeline is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: deps.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := router.Group("/api")
	api.POST("/payments/verify", verifyPaymentHandler(logger, deps.Checkout))
	if deps.Orders != nil {
		api.GET("/orders/:orderId", getOrderHandler(logger, deps.Orders))
	}

	return router, nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latencyMs", time.Since(start).Milliseconds(),
			"clientIp", c.ClientIP(),
		)
	}
}
