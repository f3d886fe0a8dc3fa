package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/middleware"
	"github.com/stoa-market/stoa-market-api/internal/service"
)

// Checkout handles POST /api/v1/checkout. The order is built from the
// caller's stored cart; the cart is cleared on success.
func (h *Handlers) Checkout(c *gin.Context) {
	var req struct {
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID := middleware.UserID(c)
	cart, err := h.carts.Get(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	order, err := h.checkout.Checkout(c.Request.Context(), userID, cart, req.PaymentMethod)
	if err != nil {
		middleware.CheckoutsTotal.WithLabelValues(checkoutOutcome(err)).Inc()
		h.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Checkout failed")
		handleError(c, err)
		return
	}

	middleware.CheckoutsTotal.WithLabelValues("created").Inc()
	c.JSON(http.StatusCreated, order)
}

func checkoutOutcome(err error) string {
	var stockErr *apperrors.InsufficientStockError
	switch {
	case errors.Is(err, apperrors.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, apperrors.ErrProductsUnavailable), errors.As(err, &stockErr):
		return "insufficient_stock"
	default:
		return "error"
	}
}

// GetOrder handles GET /api/v1/orders/:id (order confirmation view).
// Visible to the buyer, any of the order's sellers, and admins.
func (h *Handlers) GetOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	viewer, err := h.currentUser(c)
	if err != nil {
		handleError(c, err)
		return
	}

	order, err := h.checkout.GetOrder(c.Request.Context(), orderID, viewer)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus handles POST /api/v1/orders/:id/status. The new status
// is applied to the caller's own lines only.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.status.UpdateLineStatus(c.Request.Context(), orderID, middleware.UserID(c), req.Status); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MyOrders handles GET /api/v1/orders/mine: the caller's sales, grouped
// per order and status. filter=Pending (default) or filter=History.
func (h *Handlers) MyOrders(c *gin.Context) {
	groups, err := h.listings.MyOrders(c.Request.Context(), middleware.UserID(c), listingFilter(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": groups, "count": len(groups)})
}

// MyPurchases handles GET /api/v1/purchases/mine: the caller's purchases,
// grouped per order and status.
func (h *Handlers) MyPurchases(c *gin.Context) {
	groups, err := h.listings.MyPurchases(c.Request.Context(), middleware.UserID(c), listingFilter(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": groups, "count": len(groups)})
}

func listingFilter(c *gin.Context) string {
	if c.Query("filter") == service.FilterHistory {
		return service.FilterHistory
	}
	return service.FilterPending
}
