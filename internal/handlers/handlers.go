package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/config"
	"github.com/stoa-market/stoa-market-api/internal/middleware"
	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/repository"
	"github.com/stoa-market/stoa-market-api/internal/service"
)

// Handlers holds all HTTP handlers for the marketplace API.
type Handlers struct {
	cart            *service.CartService
	checkout        *service.CheckoutService
	status          *service.OrderStatusService
	listings        *service.ListingService
	recommendations *service.RecommendationService
	catalog         *service.CatalogService
	favorites       *service.FavoriteService
	admin           *service.AdminService
	carts           repository.CartStore
	users           repository.UserRepository
	config          *config.Config
	logger          *logrus.Entry
}

// NewHandlers creates a new handlers instance.
func NewHandlers(
	cart *service.CartService,
	checkout *service.CheckoutService,
	status *service.OrderStatusService,
	listings *service.ListingService,
	recommendations *service.RecommendationService,
	catalog *service.CatalogService,
	favorites *service.FavoriteService,
	admin *service.AdminService,
	carts repository.CartStore,
	users repository.UserRepository,
	cfg *config.Config,
	logger *logrus.Logger,
) *Handlers {
	return &Handlers{
		cart:            cart,
		checkout:        checkout,
		status:          status,
		listings:        listings,
		recommendations: recommendations,
		catalog:         catalog,
		favorites:       favorites,
		admin:           admin,
		carts:           carts,
		users:           users,
		config:          cfg,
		logger:          logger.WithField("component", "handlers"),
	}
}

// currentUser loads the authenticated caller's profile. Returns nil without
// an error for anonymous requests so callers can decide how to react.
func (h *Handlers) currentUser(c *gin.Context) (*models.User, error) {
	userID := middleware.UserID(c)
	if userID == 0 {
		return nil, nil
	}
	return h.users.GetByID(c.Request.Context(), userID)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, apperrors.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	case errors.Is(err, apperrors.ErrProductsUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "some products are no longer available"})
	case errors.Is(err, apperrors.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order status"})
	default:
		var stockErr *apperrors.InsufficientStockError
		if errors.As(err, &stockErr) {
			c.JSON(http.StatusConflict, gin.H{"error": stockErr.Error()})
			return
		}
		var validationErr *apperrors.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": validationErr.Message,
				"field": validationErr.Field,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
