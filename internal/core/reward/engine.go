// Package reward decides and records daily promotional claims. Eligibility is
// a function of the ledger (approved deposits within the current UTC day);
// the claim itself is serialized by the (account, claim_date) unique
// constraint, never by an application-level check.
package reward

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
)

type Store interface {
	SumApprovedDeposits(ctx context.Context, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	GetClaim(ctx context.Context, accountID uuid.UUID, day time.Time) (*domain.RewardClaim, error)
	// Award writes the claim and its reward credit atomically: either the
	// claim row, the reward transaction, and the balance update all land, or
	// none do. Returns domain.ErrAlreadyClaimed on a (account, claim_date)
	// unique violation.
	Award(ctx context.Context, claim *domain.RewardClaim) error
}

// Settings yields the live reward policy. Implementations must read fresh
// state on every call; the engine never caches across check and claim.
type Settings interface {
	RewardPolicy(ctx context.Context) (threshold, amount decimal.Decimal, err error)
}

type State string

const (
	StateClaimed     State = "claimed"
	StateEligible    State = "eligible"
	StateNotEligible State = "not_eligible"
)

// Status carries the numeric totals so the caller can render progress.
type Status struct {
	State    State           `json:"status"`
	Required decimal.Decimal `json:"required"`
	Current  decimal.Decimal `json:"current"`
}

type Engine struct {
	store    Store
	settings Settings
	now      func() time.Time
}

func NewEngine(store Store, settings Settings) *Engine {
	return &Engine{store: store, settings: settings, now: time.Now}
}

// utcDay returns the UTC calendar day boundaries for t.
func utcDay(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// Check reports whether the account may claim today's reward.
func (e *Engine) Check(ctx context.Context, accountID uuid.UUID) (*Status, error) {
	threshold, _, err := e.settings.RewardPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reward policy: %w", err)
	}

	start, end := utcDay(e.now())
	if claim, err := e.store.GetClaim(ctx, accountID, start); err != nil {
		return nil, err
	} else if claim != nil {
		return &Status{State: StateClaimed, Required: threshold, Current: claim.DepositTotal}, nil
	}

	total, err := e.store.SumApprovedDeposits(ctx, accountID, start, end)
	if err != nil {
		return nil, err
	}

	state := StateNotEligible
	if total.GreaterThanOrEqual(threshold) {
		state = StateEligible
	}
	return &Status{State: state, Required: threshold, Current: total}, nil
}

// Claim re-validates eligibility and records the claim. An earlier "eligible"
// answer is never trusted; the threshold is re-read and the deposit total
// recomputed here. Concurrent claims race on the unique constraint and
// exactly one wins.
func (e *Engine) Claim(ctx context.Context, accountID uuid.UUID, link, rewardType string) (*domain.RewardClaim, error) {
	threshold, amount, err := e.settings.RewardPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reward policy: %w", err)
	}

	start, end := utcDay(e.now())
	total, err := e.store.SumApprovedDeposits(ctx, accountID, start, end)
	if err != nil {
		return nil, err
	}
	if total.LessThan(threshold) {
		return nil, fmt.Errorf("%w: have %s, need %s", domain.ErrNotEligible, total, threshold)
	}

	claim := &domain.RewardClaim{
		ID:           uuid.New(),
		AccountID:    accountID,
		ClaimDate:    start,
		DepositTotal: total,
		RewardType:   rewardType,
		RewardAmount: amount,
		Link:         link,
	}
	// Claim and credit land in one storage transaction: a failure here
	// leaves no claim row behind, so the user can simply retry.
	if err := e.store.Award(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}
