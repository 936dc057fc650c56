package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"storefront-service/internal/entity"
	"storefront-service/internal/service"
)

type ProductHandler struct {
	catalogService *service.CatalogService
}

func NewProductHandler(catalogService *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalogService: catalogService}
}

// paging reads skip and limit; absent values are zero and left to the service
// defaults.
func paging(c echo.Context) (skip, limit int, err error) {
	if v := c.QueryParam("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil || skip < 0 {
			return 0, 0, fmt.Errorf("invalid skip %q: %w", v, entity.ErrInvalidInput)
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("invalid limit %q: %w", v, entity.ErrInvalidInput)
		}
	}
	return skip, limit, nil
}

// ListProducts --> GET /products
func (h *ProductHandler) ListProducts(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return respondError(c, err)
	}
	filter := entity.ProductFilter{
		CategoryID:   c.QueryParam("category_id"),
		Search:       c.QueryParam("search"),
		FeaturedOnly: c.QueryParam("featured_only") == "true",
		Skip:         skip,
		Limit:        limit,
	}

	products, err := h.catalogService.ListProducts(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct --> GET /products/:id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	product, err := h.catalogService.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// ListCategories --> GET /products/categories
func (h *ProductHandler) ListCategories(c echo.Context) error {
	categories, err := h.catalogService.ListCategories(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

// ListByCategory --> GET /products/category/:id
func (h *ProductHandler) ListByCategory(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return respondError(c, err)
	}
	products, err := h.catalogService.ListByCategory(c.Request().Context(), c.Param("id"), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// Search --> GET /products/search?q=
func (h *ProductHandler) Search(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return respondError(c, err)
	}
	products, err := h.catalogService.Search(c.Request().Context(), c.QueryParam("q"), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// Featured --> GET /products/featured
func (h *ProductHandler) Featured(c echo.Context) error {
	_, limit, err := paging(c)
	if err != nil {
		return respondError(c, err)
	}
	products, err := h.catalogService.Featured(c.Request().Context(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// CreateProduct --> POST /products (admin)
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	product := entity.Product{}
	if err := c.Bind(&product); err != nil {
		return invalidPayload(c)
	}

	created, err := h.catalogService.CreateProduct(c.Request().Context(), &product)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, created)
}

// UpdateProduct --> PUT /products/:id (admin)
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	update := entity.ProductUpdate{}
	if err := c.Bind(&update); err != nil {
		return invalidPayload(c)
	}

	product, err := h.catalogService.UpdateProduct(c.Request().Context(), c.Param("id"), update)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct --> DELETE /products/:id (admin)
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	if err := h.catalogService.DeleteProduct(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}
