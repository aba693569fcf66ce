package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/gateway"
)

// writeError maps domain errors onto the wire format. The code tells clients
// whether retrying can help; the message is safe to show to users.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return errorJSON(c, http.StatusPaymentRequired, "insufficient_funds", "Balance is too low for this order")
	case errors.Is(err, domain.ErrDuplicateOrder):
		return errorJSON(c, http.StatusConflict, "duplicate_order", "An identical order was just submitted")
	case errors.Is(err, domain.ErrAlreadyClaimed):
		return errorJSON(c, http.StatusBadRequest, "already_claimed", "Reward already claimed today")
	case errors.Is(err, domain.ErrNotEligible):
		return errorJSON(c, http.StatusBadRequest, "not_eligible", "Deposit total is below the reward threshold")
	case errors.Is(err, domain.ErrServiceDisabled):
		return errorJSON(c, http.StatusUnprocessableEntity, "service_disabled", "This service is currently disabled")
	case errors.Is(err, domain.ErrInvalidQuantity):
		return errorJSON(c, http.StatusUnprocessableEntity, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrInvalidLink):
		return errorJSON(c, http.StatusUnprocessableEntity, "invalid_link", "Link must be an absolute http(s) URL")
	case errors.Is(err, domain.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, domain.ErrForeignReference):
		// Deliberately indistinguishable from an unknown reference.
		return errorJSON(c, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, gateway.ErrTransient):
		// Retryable: the provider never gave a definitive answer.
		return errorJSON(c, http.StatusBadGateway, "provider_unavailable", "Payment provider is unreachable, try again")
	default:
		slog.Error("Unhandled error", "error", err, "path", c.Path())
		return errorJSON(c, http.StatusInternalServerError, "server_error", "Something went wrong")
	}
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"code": code, "message": message},
	})
}
