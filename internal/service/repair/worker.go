package repair

import (
	"context"
	"io"
	"log/slog"
	"time"

	"dabba-checkout/internal/domain"
	repairrepo "dabba-checkout/internal/repository/repair"
)

const (
	defaultInterval    = 30 * time.Second
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
	maxBackoff         = 6 * time.Hour
)

type queue interface {
	FetchPending(ctx context.Context, now time.Time, limit int) ([]repairrepo.Entry, error)
	MarkResolved(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string, retryAt time.Time) error
	MarkAbandoned(ctx context.Context, id int64, reason string) error
}

type itemWriter interface {
	InsertItems(ctx context.Context, orderID string, items []domain.OrderItem) error
}

// Options tunes the worker. Zero values fall back to defaults.
type Options struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// Worker restores line items for orders committed in degraded mode.
type Worker struct {
	queue       queue
	items       itemWriter
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	now         func() time.Time
}

func NewWorker(q queue, items itemWriter, opts Options, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Worker{
		queue:       q,
		items:       items,
		logger:      logger,
		interval:    opts.Interval,
		batchSize:   opts.BatchSize,
		maxAttempts: opts.MaxAttempts,
		now:         time.Now,
	}
}

// Run processes the queue on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("repair pass failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce processes one batch of due entries and returns how many orders were
// repaired. A failing entry is deferred with exponential backoff; after
// MaxAttempts failures it is abandoned and left for an operator.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	now := w.now()
	entries, err := w.queue.FetchPending(ctx, now, w.batchSize)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, e := range entries {
		if err := w.items.InsertItems(ctx, e.OrderID, e.Items); err != nil {
			w.recordFailure(ctx, e, now, err)
			continue
		}
		if err := w.queue.MarkResolved(ctx, e.ID); err != nil {
			w.logger.Error("mark repair resolved", "repairId", e.ID, "error", err)
			continue
		}
		resolved++
		w.logger.Info("order repaired", "orderId", e.OrderID, "items", len(e.Items))
	}
	return resolved, nil
}

func (w *Worker) recordFailure(ctx context.Context, e repairrepo.Entry, now time.Time, cause error) {
	attempt := e.Attempts + 1
	if attempt >= w.maxAttempts {
		w.logger.Error("order repair abandoned, needs manual repair",
			"orderId", e.OrderID,
			"repairId", e.ID,
			"attempts", attempt,
			"error", cause,
		)
		if err := w.queue.MarkAbandoned(ctx, e.ID, cause.Error()); err != nil {
			w.logger.Error("record repair abandonment", "repairId", e.ID, "error", err)
		}
		return
	}

	retryAt := now.Add(w.backoff(attempt))
	w.logger.Warn("order repair attempt failed",
		"orderId", e.OrderID,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", cause,
	)
	if err := w.queue.MarkFailed(ctx, e.ID, cause.Error(), retryAt); err != nil {
		w.logger.Error("record repair failure", "repairId", e.ID, "error", err)
	}
}

// backoff doubles the interval per failed attempt, capped at maxBackoff.
func (w *Worker) backoff(attempt int) time.Duration {
	d := w.interval
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
