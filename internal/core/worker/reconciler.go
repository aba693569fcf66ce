package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/smm"
)

const (
	pollInterval = 30 * time.Second
	minStaleAge  = 2 * time.Minute
	maxAttempts  = 10
)

type Orders interface {
	NextStale(ctx context.Context, minAge time.Duration, maxAttempts int) (*domain.Order, error)
	MarkCompleted(ctx context.Context, orderID uuid.UUID) error
	MarkSubmitted(ctx context.Context, orderID uuid.UUID, providerOrderID string) error
}

type Ledger interface {
	Refund(ctx context.Context, orderID uuid.UUID, providerErr []byte, final domain.OrderStatus) error
}

type StatusSource interface {
	OrderStatus(ctx context.Context, providerOrderID string) (string, error)
}

// Reconciler drives stale orders to a terminal state. Orders it touches were
// left behind by crashes or provider timeouts: the debit is already recorded,
// so the only safe moves are confirming the outcome upstream or refunding.
type Reconciler struct {
	orders Orders
	ledger Ledger
	panel  StatusSource
}

func NewReconciler(orders Orders, ledger Ledger, panel StatusSource) *Reconciler {
	return &Reconciler{orders: orders, ledger: ledger, panel: panel}
}

func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		slog.Info("👷 Order reconciler started", "interval", pollInterval)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("Order reconciler stopped")
				return
			case <-ticker.C:
				r.drain(ctx)
			}
		}
	}()
}

// drain reconciles stale orders until the queue is empty for this tick.
func (r *Reconciler) drain(ctx context.Context) {
	for {
		order, err := r.orders.NextStale(ctx, minStaleAge, maxAttempts)
		if errors.Is(err, domain.ErrNotFound) {
			return
		}
		if err != nil {
			slog.Error("Reconciler: failed to claim stale order", "error", err)
			return
		}
		if err := r.reconcile(ctx, order); err != nil {
			slog.Error("Reconciler: reconcile failed", "error", err, "order_id", order.ID)
		}
		if order.Attempts >= maxAttempts {
			slog.Warn("Reconciler: order reached max attempts, needs manual review",
				"order_id", order.ID, "attempts", order.Attempts)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context, order *domain.Order) error {
	// An order with no provider id never made it upstream: the submit call
	// died mid-flight. We cannot know whether the panel accepted it, so the
	// conservative move after enough attempts is to refund.
	if order.ProviderOrderID == "" {
		if order.Attempts >= maxAttempts {
			slog.Info("Reconciler: refunding unsubmitted order", "order_id", order.ID)
			return r.ledger.Refund(ctx, order.ID, []byte(`{"reason":"submission never acknowledged"}`), domain.OrderRefunded)
		}
		return nil
	}

	status, err := r.panel.OrderStatus(ctx, order.ProviderOrderID)
	if err != nil {
		if errors.Is(err, smm.ErrTransient) {
			return nil
		}
		return err
	}

	switch status {
	case "completed":
		slog.Info("✅ Reconciler: order completed upstream", "order_id", order.ID)
		return r.orders.MarkCompleted(ctx, order.ID)
	case "canceled", "cancelled", "refunded", "error", "fail", "failed":
		slog.Info("Reconciler: order failed upstream, refunding", "order_id", order.ID, "upstream_status", status)
		return r.ledger.Refund(ctx, order.ID, []byte(`{"upstream_status":"`+status+`"}`), domain.OrderRefunded)
	case "in progress", "pending", "processing", "partial":
		if order.Status == domain.OrderPending {
			// Submitted but never acknowledged locally; record that the
			// panel knows about it.
			return r.orders.MarkSubmitted(ctx, order.ID, order.ProviderOrderID)
		}
		return nil
	default:
		slog.Warn("Reconciler: unknown upstream status, leaving order alone",
			"order_id", order.ID, "upstream_status", status)
		return nil
	}
}
