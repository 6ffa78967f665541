package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"dabba-checkout/internal/service/checkout"
	"github.com/gin-gonic/gin"
)

type verifyResponse struct {
	Success          bool   `json:"success"`
	OrderID          string `json:"orderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
}

func verifyPaymentHandler(logger *slog.Logger, pipeline checkoutPipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkout.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, checkout.CodeInvalidRequest, "request body is not valid JSON for a payment verification", nil)
			return
		}

		res, err := pipeline.Verify(c.Request.Context(), req)
		if err != nil {
			var perr *checkout.Error
			if !errors.As(err, &perr) {
				logger.ErrorContext(c.Request.Context(), "unclassified verification error", "error", err)
				writeError(c, http.StatusInternalServerError, checkout.CodeStoreUnavailable, "internal error", nil)
				return
			}
			writeError(c, statusForKind(perr.Kind), perr.Code, perr.Message, perr.Fields)
			return
		}

		if res.Degraded {
			logger.WarnContext(c.Request.Context(), "order accepted without line items, awaiting repair",
				"orderId", res.OrderID,
				"gatewayPaymentId", res.GatewayPaymentID,
			)
		}
		c.JSON(http.StatusOK, verifyResponse{
			Success:          true,
			OrderID:          res.OrderID,
			GatewayPaymentID: res.GatewayPaymentID,
		})
	}
}

func statusForKind(kind checkout.Kind) int {
	switch kind {
	case checkout.KindMalformed, checkout.KindAuthenticity, checkout.KindReconciliation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
