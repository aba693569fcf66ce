// Package payments glues gateway verification to the ledger: verify a
// reference server-side, record the deposit once, settle it once.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/gateway"
)

// Ledger is the slice of the transaction ledger this service needs.
type Ledger interface {
	RecordDeposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, provider, externalRef string) (*domain.Transaction, bool, error)
	Settle(ctx context.Context, txID uuid.UUID, outcome domain.TransactionStatus) (*domain.Transaction, error)
	FindByExternalRef(ctx context.Context, provider, externalRef string) (*domain.Transaction, error)
}

type Result struct {
	Status      gateway.Outcome     `json:"status"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

type Service struct {
	gateways *gateway.Registry
	ledger   Ledger
}

func NewService(gateways *gateway.Registry, ledger Ledger) *Service {
	return &Service{gateways: gateways, ledger: ledger}
}

// VerifyDeposit checks a reference with the provider and settles the deposit.
// Safe to call any number of times with the same reference: the insert is
// deduplicated on (provider, external_ref) and settle is a no-op once the
// transaction is terminal.
func (s *Service) VerifyDeposit(ctx context.Context, provider string, account *domain.Account, reference string) (*Result, error) {
	gw, ok := s.gateways.Get(provider)
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrNotFound, provider)
	}

	verification, err := gw.Verify(ctx, reference)
	if err != nil {
		// Transient or definitive, nothing was verified; the caller decides
		// whether to retry. No ledger mutation on this path.
		return nil, err
	}

	// The payer the gateway saw must be the account presenting the
	// reference; otherwise a leaked reference would let a stranger capture
	// someone else's deposit.
	if verification.CustomerEmail != "" && !strings.EqualFold(verification.CustomerEmail, account.Email) {
		slog.Warn("Deposit reference presented by a different account",
			"provider", gw.Name(), "ref", reference, "account_id", account.ID)
		return nil, domain.ErrForeignReference
	}
	accountID := account.ID

	switch verification.Outcome {
	case gateway.OutcomeSuccess:
		tx, already, err := s.ledger.RecordDeposit(ctx, accountID, verification.Amount, gw.Name(), reference)
		if err != nil {
			return nil, fmt.Errorf("record deposit: %w", err)
		}
		if already {
			slog.Info("Deposit reference already recorded", "provider", gw.Name(), "ref", reference)
		}
		settled, err := s.ledger.Settle(ctx, tx.ID, domain.TxApproved)
		if err != nil {
			return nil, fmt.Errorf("settle deposit: %w", err)
		}
		return &Result{Status: gateway.OutcomeSuccess, Transaction: settled}, nil

	case gateway.OutcomeFailed:
		tx, _, err := s.ledger.RecordDeposit(ctx, accountID, verification.Amount, gw.Name(), reference)
		if err != nil {
			return nil, fmt.Errorf("record deposit: %w", err)
		}
		settled, err := s.ledger.Settle(ctx, tx.ID, domain.TxRejected)
		if err != nil {
			return nil, fmt.Errorf("settle deposit: %w", err)
		}
		return &Result{Status: gateway.OutcomeFailed, Transaction: settled}, nil

	default:
		// Pending (including any unmapped provider status). Record it so the
		// webhook can settle later, but touch no balance.
		tx, _, err := s.ledger.RecordDeposit(ctx, accountID, verification.Amount, gw.Name(), reference)
		if err != nil {
			return nil, fmt.Errorf("record deposit: %w", err)
		}
		return &Result{Status: gateway.OutcomePending, Transaction: tx}, nil
	}
}

// HandleWebhook settles a deposit announced by a provider callback. The
// webhook body is never trusted for the outcome: the reference is re-verified
// against the provider before any settlement. Unknown references are ignored
// (we cannot attribute them to an account) and reported as handled so the
// provider stops redelivering.
func (s *Service) HandleWebhook(ctx context.Context, provider, reference string) error {
	gw, ok := s.gateways.Get(provider)
	if !ok {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrNotFound, provider)
	}

	tx, err := s.ledger.FindByExternalRef(ctx, gw.Name(), reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("Webhook for unknown reference", "provider", gw.Name(), "ref", reference)
			return nil
		}
		return err
	}
	if tx.Status.Terminal() {
		return nil // duplicate delivery, already settled
	}

	verification, err := gw.Verify(ctx, reference)
	if err != nil {
		return err
	}

	switch verification.Outcome {
	case gateway.OutcomeSuccess:
		_, err = s.ledger.Settle(ctx, tx.ID, domain.TxApproved)
	case gateway.OutcomeFailed:
		_, err = s.ledger.Settle(ctx, tx.ID, domain.TxRejected)
	default:
		// Still pending at the provider; leave the row alone.
	}
	return err
}
