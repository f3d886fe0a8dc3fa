package service

import (
	"context"
	"io"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/repository"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeProductRepo is an in-memory catalog. The product map is shared with
// fakeOrderRepo so stock mutations are visible to both.
type fakeProductRepo struct {
	products map[int64]*models.Product
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: make(map[int64]*models.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductRepo) GetByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) GetManyByID(_ context.Context, ids []int64) ([]*models.Product, error) {
	out := make([]*models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProductRepo) List(_ context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	out := make([]*models.Product, 0, len(f.products))
	for _, p := range f.products {
		if filter.Gender != "" && p.Gender != filter.Gender {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.InStock && !p.InStock() {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProductRepo) TopFavorited(_ context.Context, limit int) ([]*models.Product, error) {
	out, _ := f.List(context.Background(), models.ProductFilter{InStock: true})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeOrderRepo mimics the atomic semantics of the Postgres repository:
// Create either decrements stock for every line or changes nothing.
type fakeOrderRepo struct {
	products  map[int64]*models.Product
	orders    map[int64]*models.Order
	purchases map[int64][]*models.Product
	nextID    int64
	createErr error
	updates   []*repository.StatusUpdate
}

func newFakeOrderRepo(products *fakeProductRepo) *fakeOrderRepo {
	return &fakeOrderRepo{
		products:  products.products,
		orders:    make(map[int64]*models.Order),
		purchases: make(map[int64][]*models.Product),
	}
}

func (f *fakeOrderRepo) Create(_ context.Context, order *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, item := range order.Items {
		p, ok := f.products[item.ProductID]
		if !ok {
			return apperrors.ErrProductsUnavailable
		}
		if p.Quantity < item.Quantity {
			return &apperrors.InsufficientStockError{ProductTitle: p.Title}
		}
	}
	for _, item := range order.Items {
		f.products[item.ProductID].Quantity -= item.Quantity
	}

	f.nextID++
	order.ID = f.nextID
	for i := range order.Items {
		order.Items[i].ID = f.nextID*100 + int64(i)
		order.Items[i].OrderID = order.ID
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) ListBySeller(_ context.Context, sellerID int64) ([]*models.Order, error) {
	return f.list(func(o *models.Order) bool {
		for _, item := range o.Items {
			if item.SellerID == sellerID {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeOrderRepo) ListByBuyer(_ context.Context, buyerID int64) ([]*models.Order, error) {
	return f.list(func(o *models.Order) bool { return o.BuyerID == buyerID }), nil
}

func (f *fakeOrderRepo) ListAll(_ context.Context) ([]*models.Order, error) {
	return f.list(func(*models.Order) bool { return true }), nil
}

func (f *fakeOrderRepo) list(keep func(*models.Order) bool) []*models.Order {
	out := make([]*models.Order, 0, len(f.orders))
	for _, o := range f.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeOrderRepo) ApplyStatusUpdate(_ context.Context, upd *repository.StatusUpdate) error {
	f.updates = append(f.updates, upd)

	order, ok := f.orders[upd.OrderID]
	if !ok {
		return apperrors.ErrNotFound
	}
	selected := make(map[int64]bool, len(upd.ItemIDs))
	for _, id := range upd.ItemIDs {
		selected[id] = true
	}
	for i := range order.Items {
		if selected[order.Items[i].ID] {
			order.Items[i].Status = upd.NewStatus
		}
	}
	for _, r := range upd.Restocks {
		if p, ok := f.products[r.ProductID]; ok {
			p.Quantity += r.Quantity
		}
	}
	order.Status = upd.Aggregate
	return nil
}

func (f *fakeOrderRepo) Delete(_ context.Context, id int64) error {
	order, ok := f.orders[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	for _, item := range order.Items {
		if p, ok := f.products[item.ProductID]; ok {
			p.Quantity += item.Quantity
		}
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) ListPurchasedProducts(_ context.Context, buyerID int64) ([]*models.Product, error) {
	return f.purchases[buyerID], nil
}

type fakeFavoriteRepo struct {
	products map[int64]*models.Product
	favs     map[int64]map[int64]bool
}

func newFakeFavoriteRepo(products *fakeProductRepo) *fakeFavoriteRepo {
	return &fakeFavoriteRepo{
		products: products.products,
		favs:     make(map[int64]map[int64]bool),
	}
}

func (f *fakeFavoriteRepo) add(userID int64, productIDs ...int64) {
	if f.favs[userID] == nil {
		f.favs[userID] = make(map[int64]bool)
	}
	for _, id := range productIDs {
		f.favs[userID][id] = true
	}
}

func (f *fakeFavoriteRepo) Toggle(_ context.Context, userID, productID int64) (bool, error) {
	if f.favs[userID] == nil {
		f.favs[userID] = make(map[int64]bool)
	}
	if f.favs[userID][productID] {
		delete(f.favs[userID], productID)
		return false, nil
	}
	f.favs[userID][productID] = true
	return true, nil
}

func (f *fakeFavoriteRepo) ListProductIDs(_ context.Context, userID int64) ([]int64, error) {
	ids := make([]int64, 0, len(f.favs[userID]))
	for id := range f.favs[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeFavoriteRepo) ListProducts(ctx context.Context, userID int64) ([]*models.Product, error) {
	all, err := f.ListAllProducts(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Product, 0, len(all))
	for _, p := range all {
		if p.InStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeFavoriteRepo) ListAllProducts(_ context.Context, userID int64) ([]*models.Product, error) {
	ids, _ := f.ListProductIDs(context.Background(), userID)
	out := make([]*models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[int64]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[int64]*models.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}

type fakeCartStore struct {
	carts   map[int64]models.Cart
	cleared []int64
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{carts: make(map[int64]models.Cart)}
}

func (f *fakeCartStore) Get(_ context.Context, userID int64) (models.Cart, error) {
	if cart, ok := f.carts[userID]; ok {
		return cart, nil
	}
	return models.Cart{}, nil
}

func (f *fakeCartStore) Set(_ context.Context, userID int64, cart models.Cart) error {
	f.carts[userID] = cart
	return nil
}

func (f *fakeCartStore) Clear(_ context.Context, userID int64) error {
	delete(f.carts, userID)
	f.cleared = append(f.cleared, userID)
	return nil
}

type fakeOrderCache struct {
	entries map[int64]*models.Order
	deletes []int64
}

func newFakeOrderCache() *fakeOrderCache {
	return &fakeOrderCache{entries: make(map[int64]*models.Order)}
}

func (f *fakeOrderCache) Get(_ context.Context, id int64) (*models.Order, error) {
	return f.entries[id], nil
}

func (f *fakeOrderCache) Set(_ context.Context, order *models.Order) error {
	f.entries[order.ID] = order
	return nil
}

func (f *fakeOrderCache) Delete(_ context.Context, id int64) error {
	delete(f.entries, id)
	f.deletes = append(f.deletes, id)
	return nil
}

type fakePublisher struct {
	created       []int64
	statusChanged []int64
	cancelled     []int64
}

func (f *fakePublisher) PublishOrderCreated(_ context.Context, order *models.Order) error {
	f.created = append(f.created, order.ID)
	return nil
}

func (f *fakePublisher) PublishOrderStatusChanged(_ context.Context, order *models.Order, _ models.OrderStatus) error {
	f.statusChanged = append(f.statusChanged, order.ID)
	return nil
}

func (f *fakePublisher) PublishOrderCancelled(_ context.Context, order *models.Order) error {
	f.cancelled = append(f.cancelled, order.ID)
	return nil
}
