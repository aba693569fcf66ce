package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
)

// LedgerRepository is the single authority for balance mutation. Every write
// here is a conditional update or runs inside one storage transaction; no
// caller ever reads a balance, computes, and writes it back.
type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const txColumns = `id, account_id, type, amount, status, provider, external_ref, created_at, settled_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.Type, &t.Amount, &t.Status,
		&t.Provider, &t.ExternalRef, &t.CreatedAt, &t.SettledAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RecordDeposit inserts a pending deposit keyed by (provider, external_ref).
// A second call with the same reference returns the existing row with
// already=true instead of erroring; this is what makes repeated webhook
// delivery and retried verify calls safe.
func (r *LedgerRepository) RecordDeposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, provider, externalRef string) (*domain.Transaction, bool, error) {
	insert := `
		INSERT INTO transactions (id, account_id, type, amount, status, provider, external_ref)
		VALUES ($1, $2, 'deposit', $3, 'pending', $4, $5)
		ON CONFLICT (provider, external_ref) DO NOTHING
		RETURNING ` + txColumns

	tx, err := scanTransaction(r.db.QueryRow(ctx, insert, uuid.New(), accountID, amount, provider, externalRef))
	if err == nil {
		return tx, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("record deposit: %w", err)
	}

	// Conflict: the reference was already recorded. Return the winner.
	existing, err := r.FindByExternalRef(ctx, provider, externalRef)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

// FindByExternalRef fetches a transaction by its provider reference.
func (r *LedgerRepository) FindByExternalRef(ctx context.Context, provider, externalRef string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE provider = $1 AND external_ref = $2`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, provider, externalRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return tx, nil
}

// Settle moves a pending transaction to a terminal state. On approval the
// balance increment happens in the same storage transaction. Settling an
// already-terminal transaction is a no-op that returns the existing row.
func (r *LedgerRepository) Settle(ctx context.Context, txID uuid.UUID, outcome domain.TransactionStatus) (*domain.Transaction, error) {
	if !outcome.Terminal() {
		return nil, fmt.Errorf("settle: %q is not a terminal status", outcome)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row, err := scanTransaction(tx.QueryRow(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, txID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("settle: lock transaction: %w", err)
	}

	if row.Status.Terminal() {
		return row, nil // already settled, nothing to do
	}

	if _, err := tx.Exec(ctx,
		`UPDATE transactions SET status = $1, settled_at = now() WHERE id = $2`,
		outcome, txID); err != nil {
		return nil, fmt.Errorf("settle: update status: %w", err)
	}

	if outcome == domain.TxApproved {
		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET balance = balance + $1 WHERE id = $2`,
			row.Amount, row.AccountID); err != nil {
			return nil, fmt.Errorf("settle: credit balance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	row.Status = outcome
	return row, nil
}

// Debit charges the account and creates the order plus its debit transaction
// in one unit of work. The conditional UPDATE is the compare-and-decrement:
// two concurrent debits cannot both pass it if only one can be afforded.
func (r *LedgerRepository) Debit(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE id = $2 AND balance >= $1`,
		order.Charge, order.AccountID)
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, account_id, service_id, link, quantity, charge, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')`,
		order.ID, order.AccountID, order.ServiceID, order.Link, order.Quantity, order.Charge); err != nil {
		return fmt.Errorf("debit: insert order: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, account_id, type, amount, status, provider, external_ref, settled_at)
		VALUES ($1, $2, 'order_debit', $3, 'approved', 'ledger', $4, now())`,
		uuid.New(), order.AccountID, order.Charge, "order:"+order.ID.String()); err != nil {
		return fmt.Errorf("debit: insert transaction: %w", err)
	}

	return tx.Commit(ctx)
}

// Refund compensates an order's debit: balance re-credited, refund
// transaction written, order flipped to its terminal status, all in one
// storage transaction. Calling it on an already-terminal order is a no-op so
// the inline path and the reconciler cannot double-refund.
func (r *LedgerRepository) Refund(ctx context.Context, orderID uuid.UUID, providerErr []byte, final domain.OrderStatus) error {
	if final != domain.OrderCancelled && final != domain.OrderRefunded {
		return fmt.Errorf("refund: %q is not a refund status", final)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var accountID uuid.UUID
	var charge decimal.Decimal
	var status domain.OrderStatus
	err = tx.QueryRow(ctx,
		`SELECT account_id, charge, status FROM orders WHERE id = $1 FOR UPDATE`,
		orderID).Scan(&accountID, &charge, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("refund: lock order: %w", err)
	}

	if status == domain.OrderCancelled || status == domain.OrderRefunded || status == domain.OrderCompleted {
		return tx.Commit(ctx) // nothing to compensate
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2`,
		charge, accountID); err != nil {
		return fmt.Errorf("refund: credit balance: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status = $1, provider_error = $2 WHERE id = $3`,
		final, providerErr, orderID); err != nil {
		return fmt.Errorf("refund: update order: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, account_id, type, amount, status, provider, external_ref, settled_at)
		VALUES ($1, $2, 'refund', $3, 'approved', 'ledger', $4, now())`,
		uuid.New(), accountID, charge, "refund:"+orderID.String()); err != nil {
		return fmt.Errorf("refund: insert transaction: %w", err)
	}

	return tx.Commit(ctx)
}

// SumApprovedDeposits totals real (non-reward) approved deposits in [from, to)
// for the reward eligibility window.
func (r *LedgerRepository) SumApprovedDeposits(ctx context.Context, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1
		  AND type = 'deposit'
		  AND status = 'approved'
		  AND provider <> 'reward'
		  AND created_at >= $2 AND created_at < $3`

	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, accountID, from, to).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum deposits: %w", err)
	}
	return total, nil
}

// History returns the account's most recent transactions.
func (r *LedgerRepository) History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + txColumns + `
		FROM transactions WHERE account_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("transaction history: %w", err)
	}
	defer rows.Close()

	var history []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("transaction history: %w", err)
		}
		history = append(history, *tx)
	}
	return history, rows.Err()
}
