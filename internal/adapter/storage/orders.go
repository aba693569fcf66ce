package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
)

// OrderRepository reads and transitions orders. Balance-affecting order
// writes (the initial debit, refunds) live in LedgerRepository instead.
type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, account_id, service_id, link, quantity, charge, status,
	provider_order_id, provider_error, attempts, created_at, completed_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.AccountID, &o.ServiceID, &o.Link, &o.Quantity,
		&o.Charge, &o.Status, &o.ProviderOrderID, &o.ProviderError,
		&o.Attempts, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// HasRecentDuplicate reports whether the same (account, service, link,
// quantity) tuple was submitted within the window. Cancelled orders don't
// count; a user retrying a refunded order is not a double submit.
func (r *OrderRepository) HasRecentDuplicate(ctx context.Context, accountID, serviceID uuid.UUID, link string, quantity int, window time.Duration) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE account_id = $1 AND service_id = $2 AND link = $3 AND quantity = $4
			  AND status NOT IN ('cancelled', 'refunded')
			  AND created_at > now() - make_interval(secs => $5)
		)`

	var exists bool
	err := r.db.QueryRow(ctx, query, accountID, serviceID, link, quantity, window.Seconds()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return exists, nil
}

// MarkSubmitted records the upstream ack: provider order id stored, status
// moved to processing. Only a pending order can be acked.
func (r *OrderRepository) MarkSubmitted(ctx context.Context, orderID uuid.UUID, providerOrderID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = 'processing', provider_order_id = $1
		 WHERE id = $2 AND status = 'pending'`,
		providerOrderID, orderID)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkCompleted finalizes an order the upstream reports as delivered.
func (r *OrderRepository) MarkCompleted(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE orders SET status = 'completed', completed_at = now()
		 WHERE id = $1 AND status IN ('pending', 'processing')`, orderID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, accountID, orderID uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND account_id = $2`
	o, err := scanOrder(r.db.QueryRow(ctx, query, orderID, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// NextStale claims one order that has been sitting in pending or processing
// for longer than minAge, skipping rows other workers hold. The attempts
// counter is bumped as part of the claim so a crashing reconciler cannot
// retry a poisoned order forever.
func (r *OrderRepository) NextStale(ctx context.Context, minAge time.Duration, maxAttempts int) (*domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status IN ('pending', 'processing')
		  AND created_at < now() - make_interval(secs => $1)
		  AND attempts < $2
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	o, err := scanOrder(tx.QueryRow(ctx, query, minAge.Seconds(), maxAttempts))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("next stale order: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET attempts = attempts + 1 WHERE id = $1`, o.ID); err != nil {
		return nil, fmt.Errorf("next stale order: bump attempts: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	o.Attempts++
	return o, nil
}
