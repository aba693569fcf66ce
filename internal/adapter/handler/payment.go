package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/derrickappah/smm-panel-sub007/internal/adapter/middleware"
	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/gateway"
	"github.com/derrickappah/smm-panel-sub007/internal/core/payments"
	"github.com/derrickappah/smm-panel-sub007/internal/core/security"
)

type DepositVerifier interface {
	VerifyDeposit(ctx context.Context, provider string, account *domain.Account, reference string) (*payments.Result, error)
	HandleWebhook(ctx context.Context, provider, reference string) error
}

type PaymentHandler struct {
	Payments DepositVerifier

	// Webhook signing secrets, per provider.
	PaystackSecret string
	KorapaySecret  string
}

type VerifyRequest struct {
	Reference string `json:"reference"`
}

// Verify is the client-initiated settlement path: the user paid at the
// gateway and hands us the reference. The outcome comes from a server-side
// provider call, never from the request.
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil || req.Reference == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_body", "A payment reference is required")
	}

	account := middleware.Account(c)
	result, err := h.Payments.VerifyDeposit(c.Context(), c.Params("provider"), account, req.Reference)
	if err != nil {
		return writeError(c, err)
	}

	slog.Info("Deposit verification", "account_id", account.ID,
		"provider", c.Params("provider"), "status", result.Status)
	return c.JSON(fiber.Map{
		"success": result.Status == gateway.OutcomeSuccess,
		"status":  result.Status,
		"data":    result.Transaction,
	})
}

type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// Webhook receives provider callbacks. The caller's identity is proven by the
// provider's signature scheme; the payload itself is only trusted for the
// reference, the outcome is re-verified against the provider in the service.
// Processing is idempotent, so redelivery always gets a 200.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	provider := c.Params("provider")
	body := c.Body()

	var reference string
	switch provider {
	case "paystack":
		if !security.VerifyPaystackSignature(h.PaystackSecret, body, c.Get("x-paystack-signature")) {
			slog.Warn("Webhook signature rejected", "provider", provider, "ip", c.IP())
			return errorJSON(c, http.StatusUnauthorized, "bad_signature", "Signature verification failed")
		}
		var env webhookEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid_body", "Malformed webhook payload")
		}
		reference = env.Data.Reference

	case "korapay":
		if !security.VerifyKorapaySignature(h.KorapaySecret, body, c.Get("x-korapay-signature")) {
			slog.Warn("Webhook signature rejected", "provider", provider, "ip", c.IP())
			return errorJSON(c, http.StatusUnauthorized, "bad_signature", "Signature verification failed")
		}
		var env webhookEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid_body", "Malformed webhook payload")
		}
		reference = env.Data.Reference

	case "voguepay":
		// Voguepay pings with a bare transaction id and no signature. Safe
		// only because the outcome is always re-verified server-side.
		reference = c.FormValue("transaction_id")

	default:
		return errorJSON(c, http.StatusNotFound, "not_found", "Unknown provider")
	}

	if reference == "" {
		return errorJSON(c, http.StatusBadRequest, "invalid_body", "Missing payment reference")
	}

	if err := h.Payments.HandleWebhook(c.Context(), provider, reference); err != nil {
		// Transient: let the provider redeliver later.
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"received": true})
}
