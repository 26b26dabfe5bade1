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

type identityHandler struct {
	accounts service.AccountService
	logger   *slog.Logger
}

func IdentityPolicy() auth.Policy {
	return auth.NewPolicy(
		auth.Rule{Method: http.MethodPost, Path: "/login/refresh", Roles: auth.Authenticated},
		auth.Rule{Method: http.MethodGet, Path: "/accounts/:ref", Roles: auth.Authenticated},
		auth.Rule{Method: http.MethodPut, Path: "/accounts/:ref", Roles: auth.Authenticated},
		auth.Rule{Method: http.MethodDelete, Path: "/accounts/:ref", Roles: auth.Authenticated},
	)
}

func RegisterIdentityRoutes(r gin.IRouter, accounts service.AccountService, logger *slog.Logger) {
	h := &identityHandler{accounts: accounts, logger: defaultLogger(logger)}

	r.POST("/login", h.handleLogin)
	r.POST("/login/refresh", h.handleRefresh)
	r.POST("/accounts", h.handleRegister)
	r.GET("/accounts/:ref", h.handleGetAccount)
	r.PUT("/accounts/:ref", h.handleUpdateAccount)
	r.DELETE("/accounts/:ref", h.handleDeleteAccount)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *identityHandler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "username and password are required"})
		return
	}

	token, account, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.Header("Authorization", "Bearer "+token)
	c.JSON(http.StatusOK, account)
}

func (h *identityHandler) handleRefresh(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	token, err := h.accounts.Refresh(c.Request.Context(), p)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.Header("Authorization", "Bearer "+token)
	c.Status(http.StatusNoContent)
}

func (h *identityHandler) handleRegister(c *gin.Context) {
	var in service.AccountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), in)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.Header("Location", "/accounts/id="+strconv.FormatInt(account.ID, 10))
	c.String(http.StatusCreated, "Account was successfully created.")
}

func (h *identityHandler) handleGetAccount(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, err := refID(c)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	account, err := h.accounts.GetAccount(c.Request.Context(), p, id)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *identityHandler) handleUpdateAccount(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, err := refID(c)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	var in service.AccountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.accounts.UpdateAccount(c.Request.Context(), p, id, in); err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.String(http.StatusOK, "Account has been updated successfully.")
}

func (h *identityHandler) handleDeleteAccount(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, err := refID(c)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if err := h.accounts.DeleteAccount(c.Request.Context(), p, id); err != nil {
		handleError(c, h.logger, err)
		return
	}

	msg := "OK: your account has been removed."
	if p.AccountID != id && p.Role == domain.RoleAdmin {
		msg = "OK: account " + strconv.FormatInt(id, 10) + " has been removed."
	}
	c.String(http.StatusOK, msg)
}
