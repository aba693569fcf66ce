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

type RewardRepository struct {
	db *pgxpool.Pool
}

func NewRewardRepository(db *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{db: db}
}

// Award writes the claim row and the reward credit in one unit of work: the
// claim insert, the approved reward transaction, and the balance update
// commit or roll back together, so a claim can never persist uncredited. The
// (account_id, claim_date) unique constraint is the concurrency guard: of two
// simultaneous claims exactly one insert succeeds, the loser gets
// domain.ErrAlreadyClaimed.
func (r *RewardRepository) Award(ctx context.Context, claim *domain.RewardClaim) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO reward_claims (id, account_id, claim_date, deposit_total, reward_type, reward_amount, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		claim.ID, claim.AccountID, claim.ClaimDate, claim.DepositTotal,
		claim.RewardType, claim.RewardAmount, claim.Link); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyClaimed
		}
		return fmt.Errorf("award: insert claim: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, account_id, type, amount, status, provider, external_ref, settled_at)
		VALUES ($1, $2, 'deposit', $3, 'approved', 'reward', $4, now())`,
		uuid.New(), claim.AccountID, claim.RewardAmount, "reward:"+claim.ID.String()); err != nil {
		return fmt.Errorf("award: insert transaction: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2`,
		claim.RewardAmount, claim.AccountID); err != nil {
		return fmt.Errorf("award: credit balance: %w", err)
	}

	return tx.Commit(ctx)
}

// GetClaim returns the claim for the given UTC day, or nil if none exists.
func (r *RewardRepository) GetClaim(ctx context.Context, accountID uuid.UUID, day time.Time) (*domain.RewardClaim, error) {
	query := `
		SELECT id, account_id, claim_date, deposit_total, reward_type, reward_amount, link, created_at
		FROM reward_claims WHERE account_id = $1 AND claim_date = $2`

	var c domain.RewardClaim
	err := r.db.QueryRow(ctx, query, accountID, day).Scan(
		&c.ID, &c.AccountID, &c.ClaimDate, &c.DepositTotal,
		&c.RewardType, &c.RewardAmount, &c.Link, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return &c, nil
}
