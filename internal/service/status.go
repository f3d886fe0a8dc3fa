package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/config"
	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/repository"
)

// OrderStatusService mutates per-line fulfillment statuses. Every update is
// scoped to one seller's lines: a multi-seller order is partitioned by
// product ownership and one seller's action never touches another's lines.
type OrderStatusService struct {
	orders    repository.OrderRepository
	cache     repository.OrderCache
	publisher OrderEventPublisher
	features  config.FeatureFlags
	log       *logrus.Entry
}

func NewOrderStatusService(
	orders repository.OrderRepository,
	cache repository.OrderCache,
	publisher OrderEventPublisher,
	features config.FeatureFlags,
	logger *logrus.Logger,
) *OrderStatusService {
	return &OrderStatusService{
		orders:    orders,
		cache:     cache,
		publisher: publisher,
		features:  features,
		log:       logger.WithField("component", "order-status-service"),
	}
}

// UpdateLineStatus moves every line owned by actingUserID to newStatus.
// A transition into Cancelled restores the product stock of each affected
// line exactly once: lines already Cancelled are skipped, so repeating the
// request cannot double-restore. The order's aggregate status is recomputed
// across all lines of the order (uniform set -> that status, mixed ->
// Processing) and everything is persisted in one transaction.
func (s *OrderStatusService) UpdateLineStatus(ctx context.Context, orderID, actingUserID int64, status string) error {
	newStatus, err := models.ParseOrderStatus(status)
	if err != nil {
		return apperrors.ErrInvalidStatus
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	previous := order.AggregateStatus()

	itemIDs := make([]int64, 0, len(order.Items))
	restocks := make([]repository.StockRestore, 0)
	for i := range order.Items {
		item := &order.Items[i]
		if item.SellerID != actingUserID {
			continue
		}
		if newStatus == models.OrderStatusCancelled && item.Status != models.OrderStatusCancelled {
			restocks = append(restocks, repository.StockRestore{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}
		item.Status = newStatus
		itemIDs = append(itemIDs, item.ID)
	}

	if len(itemIDs) == 0 {
		return apperrors.ErrForbidden
	}

	aggregate := order.AggregateStatus()
	order.Status = aggregate

	upd := &repository.StatusUpdate{
		OrderID:   orderID,
		ItemIDs:   itemIDs,
		NewStatus: newStatus,
		Aggregate: aggregate,
		Restocks:  restocks,
	}
	if err := s.orders.ApplyStatusUpdate(ctx, upd); err != nil {
		return err
	}

	if s.features.EnableOrderCaching {
		if err := s.cache.Delete(ctx, orderID); err != nil {
			s.log.WithField("order_id", orderID).Debug("Failed to invalidate order cache")
		}
	}

	if s.features.EnableOrderEvents {
		var pubErr error
		if newStatus == models.OrderStatusCancelled {
			pubErr = s.publisher.PublishOrderCancelled(ctx, order)
		} else {
			pubErr = s.publisher.PublishOrderStatusChanged(ctx, order, previous)
		}
		if pubErr != nil {
			s.log.WithFields(logrus.Fields{"order_id": orderID, "error": pubErr.Error()}).Error("Failed to publish status event")
		}
	}

	s.log.WithFields(logrus.Fields{
		"order_id":   orderID,
		"seller_id":  actingUserID,
		"new_status": newStatus,
		"aggregate":  aggregate,
	}).Info("Line statuses updated")

	return nil
}
