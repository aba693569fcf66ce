package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/security"
)

// AccountLocal is the c.Locals key the authenticated account is stored under.
const AccountLocal = "account"

// AccountSource resolves token subjects to accounts.
type AccountSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// Protected verifies the bearer token and loads the account. Every mutating
// route sits behind this; there is no unauthenticated proxy path.
func Protected(secret string, accounts AccountSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Missing bearer token")
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return unauthorized(c, "Invalid Authorization header")
		}

		accountID, err := security.ParseToken(secret, parts[1])
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		account, err := accounts.GetByID(c.Context(), accountID)
		if err != nil {
			return unauthorized(c, "Account not found")
		}
		if account.Status != domain.AccountActive {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{
				"error": fiber.Map{"code": "account_suspended", "message": "Account is suspended"},
			})
		}

		c.Locals(AccountLocal, account)
		return c.Next()
	}
}

// AdminOnly must run after Protected.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, _ := c.Locals(AccountLocal).(*domain.Account)
		if account == nil || account.Role != domain.RoleAdmin {
			return c.Status(http.StatusForbidden).JSON(fiber.Map{
				"error": fiber.Map{"code": "forbidden", "message": "Admin access required"},
			})
		}
		return c.Next()
	}
}

// Account returns the authenticated account stored by Protected.
func Account(c *fiber.Ctx) *domain.Account {
	account, _ := c.Locals(AccountLocal).(*domain.Account)
	return account
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
		"error": fiber.Map{"code": "unauthorized", "message": msg},
	})
}
