package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AllOrders handles GET /api/v1/admin/orders.
func (h *Handlers) AllOrders(c *gin.Context) {
	viewer, err := h.currentUser(c)
	if err != nil {
		handleError(c, err)
		return
	}

	orders, err := h.admin.AllOrders(c.Request.Context(), viewer)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// DeleteOrder handles DELETE /api/v1/admin/orders/:id. Remaining stock on
// the order's lines is returned to the catalog.
func (h *Handlers) DeleteOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	viewer, err := h.currentUser(c)
	if err != nil {
		handleError(c, err)
		return
	}

	if err := h.admin.DeleteOrder(c.Request.Context(), viewer, orderID); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
