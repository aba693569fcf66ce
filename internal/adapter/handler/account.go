package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub007/internal/adapter/middleware"
	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
)

type TransactionReader interface {
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error)
	Settle(ctx context.Context, txID uuid.UUID, outcome domain.TransactionStatus) (*domain.Transaction, error)
}

type ServiceLister interface {
	List(ctx context.Context, platform string) ([]domain.Service, error)
}

type PolicyWriter interface {
	SetRewardPolicy(ctx context.Context, threshold, amount decimal.Decimal) error
}

type AccountHandler struct {
	Ledger   TransactionReader
	Services ServiceLister
	Settings PolicyWriter
}

func (h *AccountHandler) Balance(c *fiber.Ctx) error {
	account := middleware.Account(c)
	return c.JSON(fiber.Map{
		"balance":  account.Balance,
		"currency": "NGN",
	})
}

func (h *AccountHandler) Transactions(c *fiber.Ctx) error {
	account := middleware.Account(c)
	txs, err := h.Ledger.History(c.Context(), account.ID, 100)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": txs})
}

func (h *AccountHandler) ListServices(c *fiber.Ctx) error {
	services, err := h.Services.List(c.Context(), c.Query("platform"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"services": services})
}

type SettleDepositRequest struct {
	Action string `json:"action"`
}

// SettleDeposit is the manual admin path for deposits the gateway left
// pending. It goes through the same ledger settle as automatic
// verification, so a deposit already settled by a webhook is a no-op.
func (h *AccountHandler) SettleDeposit(c *fiber.Ctx) error {
	txID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_transaction", "Invalid transaction id")
	}

	var req SettleDepositRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_body", "Invalid request body")
	}

	var outcome domain.TransactionStatus
	switch req.Action {
	case "approve":
		outcome = domain.TxApproved
	case "reject":
		outcome = domain.TxRejected
	default:
		return errorJSON(c, http.StatusBadRequest, "invalid_action", "Action must be approve or reject")
	}

	tx, err := h.Ledger.Settle(c.Context(), txID, outcome)
	if err != nil {
		return writeError(c, err)
	}

	admin := middleware.Account(c)
	slog.Info("Deposit settled by admin", "transaction_id", tx.ID, "status", tx.Status, "admin_id", admin.ID)
	return c.JSON(tx)
}

type RewardPolicyRequest struct {
	Threshold string `json:"threshold"`
	Amount    string `json:"amount"`
}

func (h *AccountHandler) UpdateRewardPolicy(c *fiber.Ctx) error {
	var req RewardPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_body", "Invalid request body")
	}

	threshold, err := decimal.NewFromString(req.Threshold)
	if err != nil || threshold.IsNegative() {
		return errorJSON(c, http.StatusBadRequest, "invalid_policy", "Threshold must be a non-negative decimal")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		return errorJSON(c, http.StatusBadRequest, "invalid_policy", "Amount must be a non-negative decimal")
	}

	if err := h.Settings.SetRewardPolicy(c.Context(), threshold, amount); err != nil {
		return writeError(c, err)
	}

	slog.Info("Reward policy updated", "threshold", threshold, "amount", amount)
	return c.JSON(fiber.Map{"threshold": threshold, "amount": amount})
}
