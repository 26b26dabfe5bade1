// Package handler holds the gin handlers and route policies of the four
// services.
package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"microshop/internal/auth"
	"microshop/internal/domain"
	"microshop/internal/remote"
)

type errorResponse struct {
	Error string `json:"error"`
}

// handleError maps domain errors to status codes. Upstream 401/403/404
// answers are passed through so the caller sees the real reason.
func handleError(c *gin.Context, logger *slog.Logger, err error) {
	var upstream *remote.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, err)
	case errors.Is(err, domain.ErrForbidden):
		writeError(c, http.StatusForbidden, err)
	case errors.Is(err, domain.ErrNotFound):
		writeError(c, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrConflict):
		writeError(c, http.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(c, http.StatusServiceUnavailable, err)
	case errors.As(err, &upstream):
		switch upstream.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			writeError(c, upstream.StatusCode, err)
		default:
			logger.Error("upstream call failed", slog.String("path", c.FullPath()), slog.Any("error", err))
			writeError(c, http.StatusBadGateway, err)
		}
	default:
		logger.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

// parseRef splits a "key=value" path segment such as "id=3".
func parseRef(ref string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(ref, "=")
	if !ok || key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

// refID reads the numeric id out of an "id=N" path segment.
func refID(c *gin.Context) (int64, error) {
	key, value, ok := parseRef(c.Param("ref"))
	if !ok || key != "id" {
		return 0, fmt.Errorf("%w: expected id=<number>, got %q", domain.ErrInvalidInput, c.Param("ref"))
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", domain.ErrInvalidInput, value)
	}
	return id, nil
}

// principal returns the authenticated caller. Routes calling it are covered
// by a policy rule, so a missing principal is a wiring bug.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := auth.PrincipalFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	}
	return p, ok
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
