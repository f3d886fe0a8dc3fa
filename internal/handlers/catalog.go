package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stoa-market/stoa-market-api/internal/middleware"
)

// BrowseCatalog handles GET /api/v1/catalog with optional gender and
// category query parameters. Only in-stock listings are returned.
func (h *Handlers) BrowseCatalog(c *gin.Context) {
	products, err := h.catalog.Browse(c.Request.Context(), c.Query("gender"), c.Query("category"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// TopFavorited handles GET /api/v1/catalog/top-favorited.
func (h *Handlers) TopFavorited(c *gin.Context) {
	products, err := h.catalog.TopFavorited(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// GetProduct handles GET /api/v1/products/:id. Out-of-stock listings are
// hidden from everyone but admins.
func (h *Handlers) GetProduct(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalog.ProductDetail(c.Request.Context(), productID, middleware.IsAdmin(c))
	if err != nil {
		handleError(c, err)
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// ToggleFavorite handles POST /api/v1/favorites. Adds the product to the
// caller's favorites, or removes it if already present.
func (h *Handlers) ToggleFavorite(c *gin.Context) {
	var req struct {
		ProductID int64 `json:"product_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	favorited, err := h.favorites.Toggle(c.Request.Context(), middleware.UserID(c), req.ProductID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorited": favorited})
}

// ListFavorites handles GET /api/v1/favorites.
func (h *Handlers) ListFavorites(c *gin.Context) {
	products, err := h.favorites.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}
