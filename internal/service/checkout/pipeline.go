package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"dabba-checkout/internal/metrics"
	ordersvc "dabba-checkout/internal/service/order"
	"dabba-checkout/internal/service/payment"
	"dabba-checkout/internal/service/reconcile"
)

type signatureVerifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) (payment.Verified, error)
}

type committer interface {
	Commit(ctx context.Context, in ordersvc.CommitInput) (*ordersvc.CommitResult, error)
}

// Pipeline turns a payment assertion plus cart snapshot into a committed order.
type Pipeline struct {
	verifier signatureVerifier
	commits  committer
	metrics  *metrics.Checkout
	logger   *slog.Logger
}

func NewPipeline(verifier *payment.Verifier, commits *ordersvc.Service, m *metrics.Checkout, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{verifier: verifier, commits: commits, metrics: m, logger: logger}
}

type Result struct {
	OrderID          string
	GatewayPaymentID string
	Existing         bool
	Degraded         bool
}

// Verify runs shape validation, signature verification, reconciliation and
// commit in that order. The first failure is returned as *Error and nothing
// after it runs. Nothing is retried here.
func (p *Pipeline) Verify(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	defer func() {
		p.metrics.Observe(outcome(res, err), time.Since(start))
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	verified, err := p.verifier.Verify(req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		p.auditRejected(ctx, req, err)
		return nil, &Error{Kind: KindAuthenticity, Code: CodeInvalidSignature, Message: "payment signature verification failed"}
	}

	cart, err := reconcile.Reconcile(req.Snapshot())
	if err != nil {
		var rerr *reconcile.Error
		if errors.As(err, &rerr) {
			return nil, &Error{Kind: KindReconciliation, Code: string(rerr.Reason), Message: rerr.Message}
		}
		return nil, &Error{Kind: KindReconciliation, Code: CodeInvalidRequest, Message: err.Error()}
	}

	committed, err := p.commits.Commit(ctx, ordersvc.CommitInput{
		Payment:       verified,
		Cart:          *cart,
		BuyerID:       req.BuyerID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "verified payment not recorded",
			"gatewayOrderId", verified.GatewayOrderID,
			"gatewayPaymentId", verified.GatewayPaymentID,
			"error", err,
		)
		return nil, &Error{
			Kind:    KindStore,
			Code:    CodeStoreUnavailable,
			Message: "order could not be recorded, retry with the same payment",
			Err:     err,
		}
	}

	switch {
	case committed.Existing:
		p.metrics.Replayed()
	case committed.Degraded:
		p.metrics.Degraded()
	}
	return &Result{
		OrderID:          committed.OrderID,
		GatewayPaymentID: committed.GatewayPaymentID,
		Existing:         committed.Existing,
		Degraded:         committed.Degraded,
	}, nil
}

func (p *Pipeline) auditRejected(ctx context.Context, req Request, err error) {
	var mismatch *payment.MismatchError
	if errors.As(err, &mismatch) {
		p.logger.WarnContext(ctx, "payment signature mismatch",
			"gatewayOrderId", req.GatewayOrderID,
			"gatewayPaymentId", req.GatewayPaymentID,
			"buyerId", req.BuyerID,
			"computedSignature", mismatch.Computed,
			"receivedSignature", mismatch.Received,
		)
		return
	}
	p.logger.ErrorContext(ctx, "payment signature not verifiable",
		"gatewayOrderId", req.GatewayOrderID,
		"gatewayPaymentId", req.GatewayPaymentID,
		"error", err,
	)
}

func outcome(res *Result, err error) string {
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			return perr.Code
		}
		return "error"
	}
	switch {
	case res.Existing:
		return "replayed"
	case res.Degraded:
		return "degraded"
	default:
		return "ok"
	}
}
