package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"dabba-checkout/internal/cache"
	"dabba-checkout/internal/domain"
	orderrepo "dabba-checkout/internal/repository/order"
	repairrepo "dabba-checkout/internal/repository/repair"
	"dabba-checkout/internal/service/payment"
	"dabba-checkout/internal/service/reconcile"
)

// ErrStoreUnavailable means the order could not be looked up or recorded.
// The payment is verified but not stored; the caller may retry with the same
// gateway payment id.
var ErrStoreUnavailable = errors.New("order store unavailable")

type orderRepo interface {
	Create(ctx context.Context, in orderrepo.CreateOrderInput) (*domain.Order, error)
	GetByPaymentID(ctx context.Context, gatewayPaymentID string) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error
}

type repairQueue interface {
	Enqueue(ctx context.Context, orderID string, items []domain.OrderItem, reason string) error
}

// Service commits verified, reconciled carts as orders.
type Service struct {
	repo     orderRepo
	repairs  repairQueue
	receipts cache.Receipts
	logger   *slog.Logger
}

// New creates a Service. receipts may be nil, in which case every idempotency
// check goes to the store.
func New(repo orderrepo.Repository, repairs repairrepo.Repository, receipts cache.Receipts, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, repairs: repairs, receipts: receipts, logger: logger}
}

type CommitInput struct {
	Payment       payment.Verified
	Cart          reconcile.Cart
	BuyerID       string
	PaymentMethod string
}

type CommitResult struct {
	OrderID          string
	GatewayPaymentID string
	// Existing is set when the payment had already been committed.
	Existing bool
	// Degraded is set when the order row was written but its items were not.
	Degraded bool
}

// Commit records the order for a verified payment exactly once.
//
// The order insert is the commit point. Once it succeeds the call no longer
// honours cancellation of ctx, and a failed item batch is reported as a
// degraded success and queued for repair instead of being rolled back.
func (s *Service) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	paymentID := in.Payment.GatewayPaymentID

	if orderID, ok := s.cachedReceipt(ctx, paymentID); ok {
		return &CommitResult{OrderID: orderID, GatewayPaymentID: paymentID, Existing: true}, nil
	}

	existing, err := s.repo.GetByPaymentID(ctx, paymentID)
	switch {
	case err == nil:
		s.remember(ctx, paymentID, existing.ID)
		return &CommitResult{OrderID: existing.ID, GatewayPaymentID: paymentID, Existing: true}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("%w: lookup payment %s: %w", ErrStoreUnavailable, paymentID, err)
	}

	created, err := s.repo.Create(ctx, orderrepo.CreateOrderInput{
		BuyerID:          in.BuyerID,
		CookID:           in.Cart.CookID,
		SubtotalCents:    in.Cart.SubtotalCents,
		TaxCents:         in.Cart.TaxCents,
		DeliveryFeeCents: in.Cart.DeliveryFeeCents,
		TotalCents:       in.Cart.TotalCents,
		DeliveryAddress:  in.Cart.DeliveryAddress,
		PaymentMethod:    in.PaymentMethod,
		GatewayOrderID:   in.Payment.GatewayOrderID,
		GatewayPaymentID: paymentID,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return s.concurrentWinner(ctx, paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: insert order: %w", ErrStoreUnavailable, err)
	}

	ctx = context.WithoutCancel(ctx)
	result := &CommitResult{OrderID: created.ID, GatewayPaymentID: paymentID}

	if err := s.repo.InsertItems(ctx, created.ID, in.Cart.Items); err != nil {
		result.Degraded = true
		s.logger.Warn("order committed without line items",
			"orderId", created.ID,
			"gatewayPaymentId", paymentID,
			"items", len(in.Cart.Items),
			"error", err,
		)
		if s.repairs == nil {
			s.logger.Error("no repair queue configured, order needs manual repair", "orderId", created.ID)
		} else if qerr := s.repairs.Enqueue(ctx, created.ID, in.Cart.Items, err.Error()); qerr != nil {
			s.logger.Error("enqueue order repair", "orderId", created.ID, "error", qerr)
		}
	}

	s.remember(ctx, paymentID, created.ID)
	s.logger.Info("order committed",
		"orderId", created.ID,
		"gatewayPaymentId", paymentID,
		"cookId", in.Cart.CookID,
		"totalCents", in.Cart.TotalCents,
		"degraded", result.Degraded,
	)
	return result, nil
}

// GetForBuyer returns an order with its line items. An order placed by a
// different buyer is reported as domain.ErrNotFound.
func (s *Service) GetForBuyer(ctx context.Context, id, buyerID string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// concurrentWinner resolves a lost insert race: another request committed the
// same payment between our lookup and our insert.
func (s *Service) concurrentWinner(ctx context.Context, paymentID string) (*CommitResult, error) {
	winner, err := s.repo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload payment %s after conflict: %w", ErrStoreUnavailable, paymentID, err)
	}
	s.logger.Info("concurrent commit resolved to existing order", "orderId", winner.ID, "gatewayPaymentId", paymentID)
	s.remember(ctx, paymentID, winner.ID)
	return &CommitResult{OrderID: winner.ID, GatewayPaymentID: paymentID, Existing: true}, nil
}

func (s *Service) cachedReceipt(ctx context.Context, paymentID string) (string, bool) {
	if s.receipts == nil {
		return "", false
	}
	orderID, err := s.receipts.Get(ctx, paymentID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("receipt cache read failed", "gatewayPaymentId", paymentID, "error", err)
		}
		return "", false
	}
	return orderID, true
}

func (s *Service) remember(ctx context.Context, paymentID, orderID string) {
	if s.receipts == nil {
		return
	}
	if err := s.receipts.Set(ctx, paymentID, orderID); err != nil {
		s.logger.Warn("receipt cache write failed", "gatewayPaymentId", paymentID, "error", err)
	}
}
