package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// inFlightTTL bounds how long a claimed key with no stored response blocks
// retries. A handler that dies mid-flight (or whose response store failed)
// releases its claim after this long instead of poisoning the key forever.
const inFlightTTL = 5 * time.Minute

// IdempotencyDB is the slice of pgxpool.Pool the middleware uses.
type IdempotencyDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Idempotency collapses duplicate requests carrying the same Idempotency-Key
// header. The key is claimed with a unique insert BEFORE the handler runs: a
// concurrent duplicate sees the claim without a stored response and gets 409,
// a later retry replays the stored response instead of re-executing. A claim
// whose response never landed is reclaimable once it is older than
// inFlightTTL, so one crashed attempt cannot block the operation for good.
func Idempotency(db IdempotencyDB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}

		tag, err := db.Exec(c.Context(), `
			INSERT INTO idempotency_keys (key_id) VALUES ($1)
			ON CONFLICT (key_id) DO UPDATE SET created_at = now()
			WHERE idempotency_keys.response_status IS NULL
			  AND idempotency_keys.created_at < now() - make_interval(secs => $2)`,
			key, inFlightTTL.Seconds())
		if err != nil {
			slog.Error("Failed to claim idempotency key", "error", err, "key", key)
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"error": fiber.Map{"code": "server_error", "message": "Could not process request"},
			})
		}

		if tag.RowsAffected() == 0 {
			// Key already claimed: replay the stored response, or report the
			// original request as still in flight.
			var status *int
			var body []byte
			err := db.QueryRow(c.Context(),
				`SELECT response_status, response_body FROM idempotency_keys WHERE key_id = $1`,
				key).Scan(&status, &body)
			if err != nil {
				slog.Error("Failed to load idempotency key", "error", err, "key", key)
				return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
					"error": fiber.Map{"code": "server_error", "message": "Could not process request"},
				})
			}
			if status == nil {
				return c.Status(http.StatusConflict).JSON(fiber.Map{
					"error": fiber.Map{"code": "in_flight", "message": "Original request is still being processed"},
				})
			}
			slog.Info("Idempotency hit, returning cached response", "key", key)
			c.Set("X-Idempotency-Hit", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(*status).Send(body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		resStatus := c.Response().StatusCode()
		resBody := c.Response().Body()
		if _, err := db.Exec(c.Context(),
			`UPDATE idempotency_keys SET response_status = $1, response_body = $2 WHERE key_id = $3`,
			resStatus, resBody, key); err != nil {
			// The claim stays NULL and unblocks itself after inFlightTTL.
			slog.Error("Failed to store idempotency response", "error", err, "key", key)
		}
		return nil
	}
}
