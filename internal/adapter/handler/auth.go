package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/derrickappah/smm-panel-sub007/internal/adapter/middleware"
	"github.com/derrickappah/smm-panel-sub007/internal/adapter/storage"
	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/security"
)

type Accounts interface {
	CreateAccount(ctx context.Context, email, name, passwordHash string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

type AuthHandler struct {
	Accounts  Accounts
	JWTSecret string
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_body", "Invalid request body")
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_email", "A valid email is required")
	}
	if len(req.Password) < 8 {
		return errorJSON(c, http.StatusBadRequest, "weak_password", "Password must be at least 8 characters")
	}
	if req.Name == "" {
		return errorJSON(c, http.StatusBadRequest, "missing_name", "Name is required")
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return writeError(c, err)
	}

	account, err := h.Accounts.CreateAccount(c.Context(), req.Email, req.Name, hash)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return errorJSON(c, http.StatusBadRequest, "email_taken", "Email already registered")
		}
		return writeError(c, err)
	}

	token, err := security.IssueToken(h.JWTSecret, account.ID)
	if err != nil {
		return writeError(c, err)
	}

	slog.Info("Account registered", "account_id", account.ID, "email", account.Email)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"token": token, "user": account})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_body", "Invalid request body")
	}

	account, err := h.Accounts.GetByEmail(c.Context(), req.Email)
	if err != nil || !security.CheckPassword(req.Password, account.PasswordHash) {
		// one message for both cases, no account enumeration
		return errorJSON(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	}

	token, err := security.IssueToken(h.JWTSecret, account.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": account})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.Account(c))
}
