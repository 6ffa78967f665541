package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"dabba-checkout/internal/domain"
	"dabba-checkout/internal/service/checkout"
	"github.com/gin-gonic/gin"
)

// getOrderHandler serves an order to the buyer who placed it. The buyerId query
// parameter is set by the authenticating front-end gateway; orders of other
// buyers are indistinguishable from missing ones.
func getOrderHandler(logger *slog.Logger, orders orderReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyerID := strings.TrimSpace(c.Query("buyerId"))
		if buyerID == "" {
			writeError(c, http.StatusBadRequest, checkout.CodeMissingFields, "missing required fields: buyerId", []string{"buyerId"})
			return
		}
		order, err := orders.GetForBuyer(c.Request.Context(), c.Param("orderId"), buyerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(c, http.StatusNotFound, "not_found", "order not found", nil)
				return
			}
			logger.ErrorContext(c.Request.Context(), "load order", "orderId", c.Param("orderId"), "error", err)
			writeError(c, http.StatusInternalServerError, "store_unavailable", "order could not be loaded", nil)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
