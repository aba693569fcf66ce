package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/ratelimit"
)

// RateLimit is the outermost guard on order/claim routes: it rejects before
// any ledger or provider work happens. IP and user buckets are independent;
// the user bucket only applies once Protected has resolved an account.
func RateLimit(ips, users *ratelimit.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ips.Allow(c.IP()) {
			return tooMany(c)
		}
		if account, ok := c.Locals(AccountLocal).(*domain.Account); ok && account != nil {
			if !users.Allow(account.ID.String()) {
				return tooMany(c)
			}
		}
		return c.Next()
	}
}

func tooMany(c *fiber.Ctx) error {
	return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{"code": "rate_limited", "message": "Too many requests, slow down"},
	})
}
