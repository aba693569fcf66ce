package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SettingsRepository reads runtime-tunable values from the settings table.
// Reward policy is deliberately fetched on every call: an admin change takes
// effect on the very next eligibility check, and the reward engine never
// caches across a check and the claim that follows it.
type SettingsRepository struct {
	db               *pgxpool.Pool
	defaultThreshold decimal.Decimal
	defaultAmount    decimal.Decimal
}

func NewSettingsRepository(db *pgxpool.Pool, defaultThreshold, defaultAmount decimal.Decimal) *SettingsRepository {
	return &SettingsRepository{db: db, defaultThreshold: defaultThreshold, defaultAmount: defaultAmount}
}

func (r *SettingsRepository) RewardPolicy(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	query := `SELECT key, value FROM settings WHERE key IN ('reward_threshold', 'reward_amount')`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("load reward policy: %w", err)
	}
	defer rows.Close()

	threshold, amount := r.defaultThreshold, r.defaultAmount
	for rows.Next() {
		var key string
		var value decimal.Decimal
		if err := rows.Scan(&key, &value); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("load reward policy: %w", err)
		}
		switch key {
		case "reward_threshold":
			threshold = value
		case "reward_amount":
			amount = value
		}
	}
	return threshold, amount, rows.Err()
}

// SetRewardPolicy upserts both values; used by the admin endpoint.
func (r *SettingsRepository) SetRewardPolicy(ctx context.Context, threshold, amount decimal.Decimal) error {
	query := `
		INSERT INTO settings (key, value) VALUES
			('reward_threshold', $1),
			('reward_amount', $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	if _, err := r.db.Exec(ctx, query, threshold, amount); err != nil {
		return fmt.Errorf("set reward policy: %w", err)
	}
	return nil
}
