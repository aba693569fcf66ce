// Package pipeline orchestrates one order end to end: validate, debit,
// submit upstream, and compensate on definitive failure. The debit happens
// strictly before the provider call; a failed submit is healed by a
// compensating credit, an ambiguous one is left for the reconciler.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/smm"
)

// DuplicateWindow is how long an identical (account, service, link, quantity)
// tuple is treated as a double submit, independent of any idempotency header.
const DuplicateWindow = 60 * time.Second

// Ledger is the balance-mutating slice of the transaction ledger.
type Ledger interface {
	Debit(ctx context.Context, order *domain.Order) error
	Refund(ctx context.Context, orderID uuid.UUID, providerErr []byte, final domain.OrderStatus) error
}

type Orders interface {
	HasRecentDuplicate(ctx context.Context, accountID, serviceID uuid.UUID, link string, quantity int, window time.Duration) (bool, error)
	MarkSubmitted(ctx context.Context, orderID uuid.UUID, providerOrderID string) error
}

type Services interface {
	GetService(ctx context.Context, id uuid.UUID) (*domain.Service, error)
}

// Submitter places orders on the upstream SMM provider.
type Submitter interface {
	AddOrder(ctx context.Context, serviceKey, link string, quantity int) (string, error)
}

type PlaceOrderInput struct {
	ServiceID uuid.UUID
	Link      string
	Quantity  int
}

type Pipeline struct {
	ledger    Ledger
	orders    Orders
	services  Services
	submitter Submitter
}

func New(ledger Ledger, orders Orders, services Services, submitter Submitter) *Pipeline {
	return &Pipeline{ledger: ledger, orders: orders, services: services, submitter: submitter}
}

// Place runs the full state machine:
// validated -> debited -> provider-submitted -> processing | cancelled.
// A transient upstream failure leaves the order pending with the debit
// retained; the reconciler drives it to a terminal state later.
func (p *Pipeline) Place(ctx context.Context, accountID uuid.UUID, in PlaceOrderInput) (*domain.Order, error) {
	svc, err := p.services.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.Enabled {
		return nil, domain.ErrServiceDisabled
	}
	if err := domain.ValidateQuantity(svc, in.Quantity); err != nil {
		return nil, err
	}
	if err := domain.ValidateLink(in.Link); err != nil {
		return nil, err
	}

	dup, err := p.orders.HasRecentDuplicate(ctx, accountID, svc.ID, in.Link, in.Quantity, DuplicateWindow)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		return nil, domain.ErrDuplicateOrder
	}

	order := &domain.Order{
		ID:        uuid.New(),
		AccountID: accountID,
		ServiceID: svc.ID,
		Link:      in.Link,
		Quantity:  in.Quantity,
		Charge:    domain.OrderCost(svc.Rate, in.Quantity),
		Status:    domain.OrderPending,
	}

	// Debit first. The compare-and-decrement in the ledger is the only
	// serialization point between concurrent orders on one account.
	if err := p.ledger.Debit(ctx, order); err != nil {
		return nil, err
	}

	providerOrderID, err := p.submitter.AddOrder(ctx, svc.ProviderKey, in.Link, in.Quantity)
	if err != nil {
		var rej *smm.Rejection
		if errors.As(err, &rej) {
			// Definitive no from upstream: compensate the debit and
			// surface the order as cancelled with the raw payload kept.
			if refundErr := p.ledger.Refund(ctx, order.ID, rej.Raw, domain.OrderCancelled); refundErr != nil {
				slog.Error("Compensating refund failed", "error", refundErr, "order_id", order.ID)
				return nil, fmt.Errorf("refund after rejection: %w", refundErr)
			}
			order.Status = domain.OrderCancelled
			order.ProviderError = rej.Raw
			slog.Warn("Order rejected upstream, debit refunded", "order_id", order.ID, "reason", rej.Message)
			return order, nil
		}
		// Ambiguous (timeout, 5xx): the provider may have the order. Keep
		// the debit, leave the order pending, let the reconciler decide.
		slog.Warn("Upstream submit ambiguous, leaving order pending",
			"error", err, "order_id", order.ID)
		return order, nil
	}

	if err := p.orders.MarkSubmitted(ctx, order.ID, providerOrderID); err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	order.Status = domain.OrderProcessing
	order.ProviderOrderID = providerOrderID
	slog.Info("Order placed upstream", "order_id", order.ID,
		"provider_order_id", providerOrderID, "charge", order.Charge)
	return order, nil
}
