package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"microshop/internal/auth"
	"microshop/internal/domain"
	"microshop/internal/service"
)

// IdempotencyKeyHeader carries the checkout attempt key from cart to order.
const IdempotencyKeyHeader = "Idempotency-Key"

type orderHandler struct {
	orders service.OrderService
	logger *slog.Logger
}

func OrderPolicy() auth.Policy {
	return auth.NewPolicy(
		auth.Rule{Method: http.MethodPost, Path: "/orders", Roles: auth.Authenticated},
		auth.Rule{Method: http.MethodGet, Path: "/orders", Roles: auth.Authenticated},
		auth.Rule{Method: http.MethodDelete, Path: "/orders", Roles: auth.Authenticated},
		auth.Rule{Method: http.MethodGet, Path: "/orders/:ref", Roles: auth.Authenticated},
	)
}

func RegisterOrderRoutes(r gin.IRouter, orders service.OrderService, logger *slog.Logger) {
	h := &orderHandler{orders: orders, logger: defaultLogger(logger)}

	r.POST("/orders", h.handleCreateOrder)
	r.GET("/orders", h.handleListOrders)
	r.DELETE("/orders", h.handleDeleteOrders)
	r.GET("/orders/:ref", h.handleGetOrder)
}

func (h *orderHandler) handleCreateOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var draft domain.OrderDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, created, err := h.orders.CreateOrder(c.Request.Context(), p, draft, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.Header("Location", "/orders/id="+strconv.FormatInt(order.ID, 10))
	if !created {
		c.JSON(http.StatusOK, order)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *orderHandler) handleListOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), p)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	if len(orders) == 0 {
		c.String(http.StatusOK, "You have not made any order yet.")
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *orderHandler) handleGetOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, err := refID(c)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *orderHandler) handleDeleteOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	n, err := h.orders.DeleteOrders(c.Request.Context(), p)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	if n == 0 {
		c.String(http.StatusOK, "%s, your order history is already empty.", p.Identity)
		return
	}
	c.String(http.StatusOK, "%s, your order history has been removed successfully.", p.Identity)
}
