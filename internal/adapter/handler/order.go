package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/derrickappah/smm-panel-sub007/internal/adapter/middleware"
	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/pipeline"
)

type OrderPlacer interface {
	Place(ctx context.Context, accountID uuid.UUID, in pipeline.PlaceOrderInput) (*domain.Order, error)
}

type OrderReader interface {
	GetByID(ctx context.Context, accountID, orderID uuid.UUID) (*domain.Order, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Order, error)
}

type OrderHandler struct {
	Pipeline OrderPlacer
	Orders   OrderReader
}

type CreateOrderRequest struct {
	ServiceID string `json:"service_id"`
	Link      string `json:"link"`
	Quantity  int    `json:"quantity"`
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_body", "Invalid request body")
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_service", "Invalid service id")
	}

	account := middleware.Account(c)
	order, err := h.Pipeline.Place(c.Context(), account.ID, pipeline.PlaceOrderInput{
		ServiceID: serviceID,
		Link:      req.Link,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}

	slog.Info("Order created", "order_id", order.ID, "account_id", account.ID,
		"status", order.Status, "charge", order.Charge)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"order_id": order.ID,
		"status":   order.Status,
		"charge":   order.Charge,
	})
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	account := middleware.Account(c)
	orders, err := h.Orders.ListByAccount(c.Context(), account.ID, 100)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid_order", "Invalid order id")
	}

	account := middleware.Account(c)
	order, err := h.Orders.GetByID(c.Context(), account.ID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}
