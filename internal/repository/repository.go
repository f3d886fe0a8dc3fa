package repository

import (
	"context"

	"github.com/stoa-market/stoa-market-api/internal/models"
)

// ProductRepository is the catalog store boundary. Stock quantities are
// mutated only through the order repository's atomic operations, so reads
// are all this interface exposes.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetManyByID(ctx context.Context, ids []int64) ([]*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	TopFavorited(ctx context.Context, limit int) ([]*models.Product, error)
}

// StockRestore is one stock increment applied when a line is cancelled or
// an order deleted.
type StockRestore struct {
	ProductID int64
	Quantity  int
}

// StatusUpdate is the atomic write applied by the order status engine:
// the selected line items move to NewStatus, the listed restocks are
// applied, and the order's aggregate status is rewritten, all in one
// transaction.
type StatusUpdate struct {
	OrderID   int64
	ItemIDs   []int64
	NewStatus models.OrderStatus
	Aggregate models.OrderStatus
	Restocks  []StockRestore
}

// OrderRepository is the durable order ledger.
type OrderRepository interface {
	// Create persists the order, its line items and its transaction, and
	// decrements product stock, as a single transaction. Decrements are
	// conditional on remaining stock so two racing checkouts cannot both
	// take the last unit; a conflict rolls everything back and returns
	// InsufficientStockError.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	// ListBySeller returns orders containing at least one line whose
	// product belongs to the seller, newest first, items loaded.
	ListBySeller(ctx context.Context, sellerID int64) ([]*models.Order, error)
	// ListByBuyer returns the buyer's orders, newest first, items loaded.
	ListByBuyer(ctx context.Context, buyerID int64) ([]*models.Order, error)
	ListAll(ctx context.Context) ([]*models.Order, error)
	ApplyStatusUpdate(ctx context.Context, upd *StatusUpdate) error
	// Delete removes the order with its items and transactions and
	// restores the stock of every line, in one transaction.
	Delete(ctx context.Context, id int64) error
	// ListPurchasedProducts returns the distinct products the buyer has
	// ever ordered, for recommendation exclusions and affinity counts.
	ListPurchasedProducts(ctx context.Context, buyerID int64) ([]*models.Product, error)
}

// FavoriteRepository is the favorites collaborator.
type FavoriteRepository interface {
	// Toggle adds the favorite if absent, removes it otherwise, and reports
	// whether it is now present.
	Toggle(ctx context.Context, userID, productID int64) (bool, error)
	ListProductIDs(ctx context.Context, userID int64) ([]int64, error)
	// ListProducts returns the user's favorited products that are still in
	// stock.
	ListProducts(ctx context.Context, userID int64) ([]*models.Product, error)
	// ListAllProducts returns every favorited product regardless of stock,
	// for affinity scoring.
	ListAllProducts(ctx context.Context, userID int64) ([]*models.Product, error)
}

// UserRepository supplies buyer profiles for address snapshots.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// OrderCache defines caching operations for single orders.
type OrderCache interface {
	Get(ctx context.Context, id int64) (*models.Order, error)
	Set(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id int64) error
}

// CartStore is the session-scoped key-value store holding each user's cart
// as a JSON-serialized map. The cart core never touches it directly: the
// HTTP layer loads the value, hands it to the services, and writes it back.
type CartStore interface {
	Get(ctx context.Context, userID int64) (models.Cart, error)
	Set(ctx context.Context, userID int64, cart models.Cart) error
	Clear(ctx context.Context, userID int64) error
}
