package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/repository"
)

// CartService manages the session-scoped shopping cart. It only reads the
// catalog (prices, stock); stock is never mutated here.
type CartService struct {
	carts    repository.CartStore
	products repository.ProductRepository
	log      *logrus.Entry
}

func NewCartService(carts repository.CartStore, products repository.ProductRepository, logger *logrus.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		log:      logger.WithField("component", "cart-service"),
	}
}

// AddItem adds qty units of the product to the user's cart, creating the
// entry or increasing an existing one. The product must resolve; stock
// limits are enforced later at checkout.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return apperrors.NewValidationError("quantity", "quantity must be positive")
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return err
	}

	cart.Add(productID, qty)
	if err := s.carts.Set(ctx, userID, cart); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   qty,
	}).Debug("Cart item added")
	return nil
}

// RemoveItem drops the product from the cart; removing an absent product is
// a no-op.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return err
	}

	cart.Remove(productID)
	return s.carts.Set(ctx, userID, cart)
}

// SetQuantity overwrites the requested quantity (zero or less removes the
// entry) and returns the recomputed cart total at current catalog prices.
// Unlike an order's frozen total, this one always tracks live prices.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID int64, qty int) (decimal.Decimal, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	cart.Set(productID, qty)
	if err := s.carts.Set(ctx, userID, cart); err != nil {
		return decimal.Zero, err
	}

	products, err := s.products.GetManyByID(ctx, cart.ProductIDs())
	if err != nil {
		return decimal.Zero, err
	}

	prices := make(map[int64]decimal.Decimal, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}

	// Entries whose product no longer resolves contribute nothing.
	total := decimal.Zero
	for id, n := range cart {
		if price, ok := prices[id]; ok {
			total = total.Add(price.Mul(decimal.NewFromInt(int64(n))))
		}
	}
	return total, nil
}

// View returns the cart's lines restricted to products currently in stock.
// Out-of-stock entries stay in the stored cart but are hidden from display.
func (s *CartService) View(ctx context.Context, userID int64) ([]models.CartLine, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return []models.CartLine{}, nil
	}

	products, err := s.products.GetManyByID(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}

	lines := make([]models.CartLine, 0, len(products))
	for _, p := range products {
		if !p.InStock() {
			continue
		}
		lines = append(lines, models.CartLine{Product: p, Quantity: cart[p.ID]})
	}
	return lines, nil
}
