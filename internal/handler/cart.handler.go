package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"microshop/internal/auth"
	"microshop/internal/checkout"
	"microshop/internal/domain"
	"microshop/internal/service"
)

type Confirmer interface {
	Confirm(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type cartHandler struct {
	cart      service.CartService
	confirmer Confirmer
	logger    *slog.Logger
}

var userOnly = []domain.Role{domain.RoleUser}

func CartPolicy() auth.Policy {
	return auth.NewPolicy(
		auth.Rule{Method: http.MethodGet, Path: "/cart", Roles: userOnly},
		auth.Rule{Method: http.MethodPost, Path: "/cart", Roles: userOnly},
		auth.Rule{Method: http.MethodDelete, Path: "/cart", Roles: userOnly},
		auth.Rule{Method: http.MethodPost, Path: "/cart/confirm", Roles: userOnly},
	)
}

func RegisterCartRoutes(r gin.IRouter, cart service.CartService, confirmer Confirmer, logger *slog.Logger) {
	h := &cartHandler{cart: cart, confirmer: confirmer, logger: defaultLogger(logger)}

	r.GET("/cart", h.handleGetCart)
	r.POST("/cart", h.handleAddItem)
	r.DELETE("/cart", h.handleClearCart)
	r.POST("/cart/confirm", h.handleConfirm)
}

func (h *cartHandler) handleGetCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	lines, err := h.cart.RetrieveCart(c.Request.Context(), p)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	if len(lines) == 0 {
		c.String(http.StatusOK, "%s, your shopping cart is empty.\nYou can add some awesome products from our catalogue!", p.Identity)
		return
	}
	c.JSON(http.StatusOK, lines)
}

// productIDFromBody accepts either a bare JSON number or {"productId": n}.
func productIDFromBody(body []byte) (int64, bool) {
	var id int64
	if err := json.Unmarshal(body, &id); err == nil {
		return id, true
	}
	var req struct {
		ProductID *int64 `json:"productId"`
	}
	if err := json.Unmarshal(body, &req); err == nil && req.ProductID != nil {
		return *req.ProductID, true
	}
	return 0, false
}

func (h *cartHandler) handleAddItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "unreadable request body"})
		return
	}
	productID, ok := productIDFromBody(body)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "body must be a product id"})
		return
	}

	if err := h.cart.AddItem(c.Request.Context(), p, productID); err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.String(http.StatusOK, "Product added to your shopping cart.")
}

func (h *cartHandler) handleClearCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	n, err := h.cart.ClearCart(c.Request.Context(), p)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	if n == 0 {
		c.String(http.StatusOK, "%s, your shopping cart is already empty.", p.Identity)
		return
	}
	c.String(http.StatusOK, "%s, your shopping cart has been emptied successfully.", p.Identity)
}

type cartNotClearedResponse struct {
	Error   string        `json:"error"`
	Order   *domain.Order `json:"order"`
	Message string        `json:"message"`
}

func (h *cartHandler) handleConfirm(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	res, err := h.confirmer.Confirm(c.Request.Context(), checkout.Request{
		Principal:      p,
		Token:          auth.TokenFrom(c.Request.Context()),
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if errors.Is(err, domain.ErrCartNotCleared) {
		// The order exists; a blind retry would place it twice.
		c.AbortWithStatusJSON(http.StatusInternalServerError, cartNotClearedResponse{
			Error:   domain.ErrCartNotCleared.Error(),
			Order:   res.Order,
			Message: res.Message,
		})
		return
	}
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.String(http.StatusOK, "%s", res.Message)
}
