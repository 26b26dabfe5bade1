package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"microshop/internal/auth"
	"microshop/internal/domain"
	"microshop/internal/service"
)

type catalogueHandler struct {
	catalogue service.CatalogueService
	logger    *slog.Logger
}

var adminOnly = []domain.Role{domain.RoleAdmin}

func CataloguePolicy() auth.Policy {
	return auth.NewPolicy(
		auth.Rule{Method: http.MethodPost, Path: "/catalogue/products", Roles: adminOnly},
		auth.Rule{Method: http.MethodPut, Path: "/catalogue/products/:ref", Roles: adminOnly},
		auth.Rule{Method: http.MethodDelete, Path: "/catalogue/products/:ref", Roles: adminOnly},
	)
}

func RegisterCatalogueRoutes(r gin.IRouter, catalogue service.CatalogueService, logger *slog.Logger) {
	h := &catalogueHandler{catalogue: catalogue, logger: defaultLogger(logger)}

	g := r.Group("/catalogue")
	g.GET("/products", h.handleListProducts)
	g.GET("/products/:ref", h.handleProductRef)
	g.POST("/products", h.handleCreateProduct)
	g.PUT("/products/:ref", h.handleUpdateProduct)
	g.DELETE("/products/:ref", h.handleDeleteProduct)
	g.GET("/categories", h.handleCategories)
	g.GET("/categories/:ref", h.handleCategory)
}

func (h *catalogueHandler) handleListProducts(c *gin.Context) {
	products, err := h.catalogue.ListProducts(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	writeList(c, products)
}

// handleProductRef serves both /products/id=N and /products/color=C.
func (h *catalogueHandler) handleProductRef(c *gin.Context) {
	key, value, ok := parseRef(c.Param("ref"))
	if !ok {
		handleError(c, h.logger, fmt.Errorf("%w: bad product reference %q", domain.ErrInvalidInput, c.Param("ref")))
		return
	}

	switch key {
	case "id":
		id, err := refID(c)
		if err != nil {
			handleError(c, h.logger, err)
			return
		}
		product, err := h.catalogue.GetProduct(c.Request.Context(), id)
		if err != nil {
			handleError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, product)
	case "color":
		products, err := h.catalogue.ListByColor(c.Request.Context(), value)
		if err != nil {
			handleError(c, h.logger, err)
			return
		}
		writeList(c, products)
	default:
		handleError(c, h.logger, fmt.Errorf("%w: unknown product filter %q", domain.ErrInvalidInput, key))
	}
}

func (h *catalogueHandler) handleCreateProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	product, err := h.catalogue.CreateProduct(c.Request.Context(), in)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	c.Header("Location", "/catalogue/products/id="+strconv.FormatInt(product.ID, 10))
	c.JSON(http.StatusCreated, product)
}

func (h *catalogueHandler) handleUpdateProduct(c *gin.Context) {
	id, err := refID(c)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.catalogue.UpdateProduct(c.Request.Context(), id, in); err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.String(http.StatusOK, "Product has been updated successfully.")
}

func (h *catalogueHandler) handleDeleteProduct(c *gin.Context) {
	id, err := refID(c)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	if err := h.catalogue.DeleteProduct(c.Request.Context(), id); err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.String(http.StatusOK, "The product with ID: %d has been removed.", id)
}

func (h *catalogueHandler) handleCategories(c *gin.Context) {
	categories, err := h.catalogue.Categories(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	writeList(c, categories)
}

func (h *catalogueHandler) handleCategory(c *gin.Context) {
	key, value, ok := parseRef(c.Param("ref"))
	if !ok || key != "category" {
		handleError(c, h.logger, fmt.Errorf("%w: expected category=<name>, got %q", domain.ErrInvalidInput, c.Param("ref")))
		return
	}

	products, err := h.catalogue.ListByCategory(c.Request.Context(), value)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	writeList(c, products)
}

// writeList answers 204 for an empty result.
func writeList[T any](c *gin.Context, items []T) {
	if len(items) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, items)
}
