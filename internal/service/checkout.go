package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/config"
	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/repository"
)

// OrderEventPublisher publishes order lifecycle events. Publish failures
// are logged and never fail the surrounding request.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error
	PublishOrderCancelled(ctx context.Context, order *models.Order) error
}

// CheckoutService turns a session cart into a persisted order. All gates
// run before anything is written; the write itself is one atomic unit in
// the order repository, so a failure at any point leaves stock and ledger
// untouched and the cart intact for retry.
type CheckoutService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	carts     repository.CartStore
	cache     repository.OrderCache
	publisher OrderEventPublisher
	features  config.FeatureFlags
	log       *logrus.Entry
	now       func() time.Time
}

func NewCheckoutService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	carts repository.CartStore,
	cache repository.OrderCache,
	publisher OrderEventPublisher,
	features config.FeatureFlags,
	logger *logrus.Logger,
) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		products:  products,
		users:     users,
		carts:     carts,
		cache:     cache,
		publisher: publisher,
		features:  features,
		log:       logger.WithField("component", "checkout-service"),
		now:       time.Now,
	}
}

// Checkout validates the cart against the catalog, freezes prices, and
// persists order + line items + one simulated transaction while stock is
// decremented, all atomically. On success the session cart is cleared and
// the new order returned.
func (s *CheckoutService) Checkout(ctx context.Context, buyerID int64, cart models.Cart, paymentMethod string) (*models.Order, error) {
	if cart.IsEmpty() {
		return nil, apperrors.ErrEmptyCart
	}

	buyer, err := s.users.GetByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	ids := cart.ProductIDs()
	products, err := s.products.GetManyByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(products) < len(ids) {
		return nil, apperrors.ErrProductsUnavailable
	}

	// Fail fast on the first shortage; the conditional decrement inside
	// the repository re-checks under the transaction.
	for _, p := range products {
		if cart[p.ID] > p.Quantity {
			return nil, &apperrors.InsufficientStockError{ProductTitle: p.Title}
		}
	}

	now := s.now()
	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(products))
	for _, p := range products {
		item := models.NewOrderItem(p, cart[p.ID])
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}

	order := &models.Order{
		BuyerID:         buyerID,
		Total:           total,
		Status:          models.OrderStatusProcessing,
		OrderDate:       now,
		ShippingAddress: buyer.ShippingAddress(),
		Items:           items,
		Transactions: []models.Transaction{{
			Reference:     uuid.NewString(),
			Amount:        total,
			PaymentMethod: paymentMethod,
			Status:        models.TransactionStatusCompleted,
			Date:          now,
		}},
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.log.WithFields(logrus.Fields{
			"buyer_id": buyerID,
			"error":    err.Error(),
		}).Error("Checkout failed, cart preserved")
		return nil, err
	}

	if err := s.carts.Clear(ctx, buyerID); err != nil {
		// The order exists; a stale cart is the lesser problem.
		s.log.WithFields(logrus.Fields{
			"buyer_id": buyerID,
			"error":    err.Error(),
		}).Warn("Failed to clear cart after checkout")
	}

	if s.features.EnableOrderCaching {
		if err := s.cache.Set(ctx, order); err != nil {
			s.log.WithFields(logrus.Fields{"order_id": order.ID, "error": err.Error()}).Warn("Failed to cache order")
		}
	}

	if s.features.EnableOrderEvents {
		if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
			s.log.WithFields(logrus.Fields{"order_id": order.ID, "error": err.Error()}).Error("Failed to publish order created event")
		}
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"buyer_id": buyerID,
		"total":    order.Total.String(),
		"lines":    len(order.Items),
	}).Info("Checkout completed")

	return order, nil
}

// GetOrder retrieves one order for the confirmation page. Only the buyer, a
// seller with a line in the order, or an admin may read it.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID int64, viewer *models.User) (*models.Order, error) {
	if viewer == nil {
		return nil, apperrors.ErrUnauthorized
	}

	var order *models.Order
	if s.features.EnableOrderCaching {
		if cached, err := s.cache.Get(ctx, orderID); err == nil && cached != nil {
			order = cached
		}
	}

	if order == nil {
		var err error
		order, err = s.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if s.features.EnableOrderCaching {
			if err := s.cache.Set(ctx, order); err != nil {
				s.log.WithField("order_id", orderID).Debug("Failed to cache order")
			}
		}
	}

	if !canViewOrder(order, viewer) {
		return nil, apperrors.ErrForbidden
	}
	return order, nil
}

func canViewOrder(order *models.Order, viewer *models.User) bool {
	if viewer.IsAdmin() || order.BuyerID == viewer.ID {
		return true
	}
	for _, item := range order.Items {
		if item.SellerID == viewer.ID {
			return true
		}
	}
	return false
}
