package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/repository"
)

// Listing filters.
const (
	FilterPending = "Pending"
	FilterHistory = "History"
)

// ListingService synthesizes the virtual order groupings shown in "my
// orders" and "my purchases". The persisted Order/OrderItem rows stay the
// normalized truth; grouping is pure view-model computation and one
// underlying order can appear as several display rows.
type ListingService struct {
	orders repository.OrderRepository
	log    *logrus.Entry
}

func NewListingService(orders repository.OrderRepository, logger *logrus.Logger) *ListingService {
	return &ListingService{
		orders: orders,
		log:    logger.WithField("component", "listing-service"),
	}
}

// MyOrders is the seller view: for each order containing the viewer's
// products, only the lines the viewer owns are considered.
func (s *ListingService) MyOrders(ctx context.Context, viewerID int64, filter string) ([]models.OrderGroup, error) {
	orders, err := s.orders.ListBySeller(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return groupOrders(orders, filter, func(item models.OrderItem) bool {
		return item.SellerID == viewerID
	}), nil
}

// MyPurchases is the buyer view: the viewer's own orders, restricted to
// lines sold by other users.
func (s *ListingService) MyPurchases(ctx context.Context, viewerID int64, filter string) ([]models.OrderGroup, error) {
	orders, err := s.orders.ListByBuyer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return groupOrders(orders, filter, func(item models.OrderItem) bool {
		return item.SellerID != viewerID
	}), nil
}

// groupOrders partitions each order's items by the viewer-relative
// ownership predicate, then groups by status. Pending emits a single merged
// Processing row per order; History emits one row per (order, terminal-or-
// shipped status) combination.
func groupOrders(orders []*models.Order, filter string, owned func(models.OrderItem) bool) []models.OrderGroup {
	groups := make([]models.OrderGroup, 0, len(orders))

	for _, order := range orders {
		byStatus := make(map[models.OrderStatus][]models.OrderItem)
		for _, item := range order.Items {
			if owned(item) {
				byStatus[item.Status] = append(byStatus[item.Status], item)
			}
		}
		if len(byStatus) == 0 {
			continue
		}

		switch filter {
		case FilterHistory:
			// Stable display order across the closed status set.
			for _, status := range []models.OrderStatus{
				models.OrderStatusShipped,
				models.OrderStatusCompleted,
				models.OrderStatusCancelled,
			} {
				if items, ok := byStatus[status]; ok {
					groups = append(groups, newGroup(order, status, items))
				}
			}
		default: // FilterPending
			if items, ok := byStatus[models.OrderStatusProcessing]; ok {
				groups = append(groups, newGroup(order, models.OrderStatusProcessing, items))
			}
		}
	}
	return groups
}

func newGroup(order *models.Order, status models.OrderStatus, items []models.OrderItem) models.OrderGroup {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return models.OrderGroup{
		OrderID:         order.ID,
		Status:          status,
		OrderDate:       order.OrderDate,
		ShippingAddress: order.ShippingAddress,
		BuyerID:         order.BuyerID,
		Items:           items,
		Total:           total,
	}
}
