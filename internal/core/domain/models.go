package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

// Account is a user's wallet. Balance is only ever written by the ledger.
type Account struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	PasswordHash string          `json:"-"`
	Balance      decimal.Decimal `json:"balance"`
	Role         Role            `json:"role"`
	Status       AccountStatus   `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Service is a resold SMM offering. Rate is the price per 1000 units.
type Service struct {
	ID          uuid.UUID       `json:"id"`
	Platform    string          `json:"platform"`
	ServiceType string          `json:"service_type"`
	Name        string          `json:"name"`
	Rate        decimal.Decimal `json:"rate"`
	MinQuantity int             `json:"min_quantity"`
	MaxQuantity int             `json:"max_quantity"`
	Enabled     bool            `json:"enabled"`
	ProviderKey string          `json:"-"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// Order is one placement against the upstream provider. Charge is always
// computed server-side from the service rate, never taken from the client.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	AccountID       uuid.UUID       `json:"account_id"`
	ServiceID       uuid.UUID       `json:"service_id"`
	Link            string          `json:"link"`
	Quantity        int             `json:"quantity"`
	Charge          decimal.Decimal `json:"charge"`
	Status          OrderStatus     `json:"status"`
	ProviderOrderID string          `json:"provider_order_id,omitempty"`
	ProviderError   []byte          `json:"-"`
	Attempts        int             `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxOrderDebit TransactionType = "order_debit"
	TxRefund     TransactionType = "refund"
)

type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxApproved TransactionStatus = "approved"
	TxRejected TransactionStatus = "rejected"
	TxFailed   TransactionStatus = "failed"
)

// Terminal reports whether a transaction status can never change again.
func (s TransactionStatus) Terminal() bool {
	return s == TxApproved || s == TxRejected || s == TxFailed
}

// Transaction is one movement of money. (Provider, ExternalRef) is unique at
// the storage layer, which is what makes repeated webhook delivery safe.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	AccountID   uuid.UUID         `json:"account_id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Status      TransactionStatus `json:"status"`
	Provider    string            `json:"provider,omitempty"`
	ExternalRef string            `json:"external_ref,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	SettledAt   *time.Time        `json:"settled_at,omitempty"`
}

// RewardClaim records a daily promotional claim. At most one row exists per
// (account, claim date); the storage unique constraint is the concurrency guard.
type RewardClaim struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	ClaimDate    time.Time       `json:"claim_date"`
	DepositTotal decimal.Decimal `json:"deposit_total"`
	RewardType   string          `json:"reward_type"`
	RewardAmount decimal.Decimal `json:"reward_amount"`
	Link         string          `json:"link"`
	CreatedAt    time.Time       `json:"created_at"`
}
