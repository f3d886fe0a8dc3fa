package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/middleware"
	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/service"
)

// RelatedProducts handles GET /api/v1/products/:id/related. Scoring
// failures degrade to an empty list rather than an error page.
func (h *Handlers) RelatedProducts(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	related, err := h.recommendations.RelatedProducts(c.Request.Context(), productID, middleware.UserID(c))
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"product_id": productID,
			"error":      err.Error(),
		}).Warn("Related products lookup failed")
		related = []models.Recommendation{}
	}

	c.JSON(http.StatusOK, gin.H{"products": related, "count": len(related)})
}

// Recommendations handles GET /api/v1/recommendations with optional size,
// gender, category, min_price and max_price query parameters.
func (h *Handlers) Recommendations(c *gin.Context) {
	filter := service.RecommendFilter{
		Size:     c.Query("size"),
		Gender:   c.Query("gender"),
		Category: c.Query("category"),
		MinPrice: parsePrice(c.Query("min_price")),
		MaxPrice: parsePrice(c.Query("max_price")),
	}

	recs, err := h.recommendations.FilteredRecommendations(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		h.logger.WithField("error", err.Error()).Warn("Recommendations lookup failed")
		recs = []models.Recommendation{}
	}

	c.JSON(http.StatusOK, gin.H{"products": recs, "count": len(recs)})
}

func parsePrice(raw string) *decimal.Decimal {
	if raw == "" {
		return nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil || price.IsNegative() {
		return nil
	}
	return &price
}
