package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/config"
	"github.com/stoa-market/stoa-market-api/internal/models"
)

func newCheckoutFixture(t *testing.T) (*CheckoutService, *fakeProductRepo, *fakeOrderRepo, *fakeCartStore, *fakeOrderCache, *fakePublisher) {
	t.Helper()

	products := newFakeProductRepo(
		&models.Product{ID: 1, SellerID: 2, Title: "Wool coat", Category: "Coats", Price: price("10.00"), Quantity: 3},
		&models.Product{ID: 2, SellerID: 3, Title: "Silk scarf", Category: "Accessories", Price: price("5.00"), Quantity: 1},
	)
	orders := newFakeOrderRepo(products)
	users := newFakeUserRepo(&models.User{ID: 7, Address: "12 Ermou St", City: "Athens", Country: "Greece"})
	carts := newFakeCartStore()
	cache := newFakeOrderCache()
	publisher := &fakePublisher{}

	features := config.FeatureFlags{EnableOrderCaching: true, EnableOrderEvents: true}
	svc := NewCheckoutService(orders, products, users, carts, cache, publisher, features, testLogger())
	return svc, products, orders, carts, cache, publisher
}

func TestCheckout_CreatesOrderAndDecrementsStock(t *testing.T) {
	svc, products, _, carts, cache, publisher := newCheckoutFixture(t)
	ctx := context.Background()

	cart := models.Cart{1: 2, 2: 1}
	carts.carts[7] = cart

	order, err := svc.Checkout(ctx, 7, cart, "card")
	require.NoError(t, err)

	assert.True(t, order.Total.Equal(price("25.00")), "want total 25.00, got %s", order.Total)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, "12 Ermou St, Athens, Greece", order.ShippingAddress)
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		assert.Equal(t, models.OrderStatusProcessing, item.Status)
	}

	require.Len(t, order.Transactions, 1)
	tx := order.Transactions[0]
	assert.Equal(t, models.TransactionStatusCompleted, tx.Status)
	assert.Equal(t, "card", tx.PaymentMethod)
	assert.True(t, tx.Amount.Equal(order.Total))
	assert.NotEmpty(t, tx.Reference)

	assert.Equal(t, 1, products.products[1].Quantity)
	assert.Equal(t, 0, products.products[2].Quantity)

	assert.Empty(t, carts.carts[7], "cart should be cleared")
	assert.Contains(t, cache.entries, order.ID)
	assert.Equal(t, []int64{order.ID}, publisher.created)
}

func TestCheckout_FreezesUnitPrices(t *testing.T) {
	svc, products, _, _, _, _ := newCheckoutFixture(t)

	cart := models.Cart{1: 1}
	order, err := svc.Checkout(context.Background(), 7, cart, "card")
	require.NoError(t, err)

	// A later catalog price change must not leak into the stored order.
	products.products[1].Price = price("99.00")

	assert.True(t, order.Items[0].UnitPrice.Equal(price("10.00")))
	assert.True(t, order.Total.Equal(price("10.00")))
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _, _, _, _, publisher := newCheckoutFixture(t)

	_, err := svc.Checkout(context.Background(), 7, models.Cart{}, "card")
	assert.ErrorIs(t, err, apperrors.ErrEmptyCart)
	assert.Empty(t, publisher.created)
}

func TestCheckout_VanishedProduct(t *testing.T) {
	svc, _, _, _, _, _ := newCheckoutFixture(t)

	_, err := svc.Checkout(context.Background(), 7, models.Cart{1: 1, 99: 1}, "card")
	assert.ErrorIs(t, err, apperrors.ErrProductsUnavailable)
}

func TestCheckout_InsufficientStockLeavesEverythingUntouched(t *testing.T) {
	svc, products, _, carts, _, publisher := newCheckoutFixture(t)

	cart := models.Cart{1: 5}
	carts.carts[7] = cart

	_, err := svc.Checkout(context.Background(), 7, cart, "card")

	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Wool coat", stockErr.ProductTitle)

	assert.Equal(t, 3, products.products[1].Quantity, "stock must not change on failure")
	assert.NotEmpty(t, carts.carts[7], "cart must survive a failed checkout")
	assert.Empty(t, publisher.created)
}

func TestCheckout_RepositoryFailurePreservesCart(t *testing.T) {
	svc, products, orders, carts, _, publisher := newCheckoutFixture(t)

	orders.createErr = &apperrors.PersistenceError{Op: "checkout", Err: errors.New("connection reset")}
	cart := models.Cart{1: 1}
	carts.carts[7] = cart

	_, err := svc.Checkout(context.Background(), 7, cart, "card")

	var persistErr *apperrors.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, 3, products.products[1].Quantity)
	assert.NotEmpty(t, carts.carts[7])
	assert.Empty(t, publisher.created)
}

func TestCheckout_UnknownBuyer(t *testing.T) {
	svc, _, _, _, _, _ := newCheckoutFixture(t)

	_, err := svc.Checkout(context.Background(), 404, models.Cart{1: 1}, "card")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetOrder_Visibility(t *testing.T) {
	svc, _, _, _, _, _ := newCheckoutFixture(t)
	ctx := context.Background()

	order, err := svc.Checkout(ctx, 7, models.Cart{1: 1}, "card")
	require.NoError(t, err)

	tests := []struct {
		name    string
		viewer  *models.User
		wantErr error
	}{
		{"buyer", &models.User{ID: 7}, nil},
		{"line seller", &models.User{ID: 2}, nil},
		{"admin", &models.User{ID: 50, Role: models.RoleAdmin}, nil},
		{"stranger", &models.User{ID: 99}, apperrors.ErrForbidden},
		{"anonymous", nil, apperrors.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetOrder(ctx, order.ID, tt.viewer)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, order.ID, got.ID)
		})
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	svc, _, _, _, _, _ := newCheckoutFixture(t)

	_, err := svc.GetOrder(context.Background(), 123, &models.User{ID: 7})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
