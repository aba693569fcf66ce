package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/derrickappah/smm-panel-sub007/internal/adapter/middleware"
	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/reward"
)

type RewardEngine interface {
	Check(ctx context.Context, accountID uuid.UUID) (*reward.Status, error)
	Claim(ctx context.Context, accountID uuid.UUID, link, rewardType string) (*domain.RewardClaim, error)
}

type RewardHandler struct {
	Engine RewardEngine
}

func (h *RewardHandler) Check(c *fiber.Ctx) error {
	account := middleware.Account(c)
	status, err := h.Engine.Check(c.Context(), account.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status)
}

type ClaimRewardRequest struct {
	Link       string `json:"link"`
	RewardType string `json:"reward_type"`
}

func (h *RewardHandler) Claim(c *fiber.Ctx) error {
	var req ClaimRewardRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_body", "Invalid request body")
	}
	if req.Link == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_body", "Link is required")
	}

	account := middleware.Account(c)
	claim, err := h.Engine.Claim(c.Context(), account.ID, req.Link, req.RewardType)
	if err != nil {
		return writeError(c, err)
	}

	slog.Info("Reward claimed 🎁", "claim_id", claim.ID, "account_id", account.ID, "amount", claim.RewardAmount)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"claim_id": claim.ID,
		"amount":   claim.RewardAmount,
		"status":   "credited",
	})
}
