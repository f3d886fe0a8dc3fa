package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/config"
	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/repository"
)

// AdminService exposes moderation over the whole order ledger. Every
// operation requires the Admin role.
type AdminService struct {
	orders   repository.OrderRepository
	cache    repository.OrderCache
	features config.FeatureFlags
	log      *logrus.Entry
}

func NewAdminService(orders repository.OrderRepository, cache repository.OrderCache, features config.FeatureFlags, logger *logrus.Logger) *AdminService {
	return &AdminService{
		orders:   orders,
		cache:    cache,
		features: features,
		log:      logger.WithField("component", "admin-service"),
	}
}

// AllOrders returns every order, newest first.
func (s *AdminService) AllOrders(ctx context.Context, viewer *models.User) ([]*models.Order, error) {
	if viewer == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !viewer.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return s.orders.ListAll(ctx)
}

// DeleteOrder removes an order with its items and transactions, restoring
// the stock of every line, in one transaction.
func (s *AdminService) DeleteOrder(ctx context.Context, viewer *models.User, orderID int64) error {
	if viewer == nil {
		return apperrors.ErrUnauthorized
	}
	if !viewer.IsAdmin() {
		return apperrors.ErrForbidden
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}

	if s.features.EnableOrderCaching {
		if err := s.cache.Delete(ctx, orderID); err != nil {
			s.log.WithField("order_id", orderID).Debug("Failed to invalidate order cache")
		}
	}

	s.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"admin_id": viewer.ID,
	}).Info("Order deleted by admin")
	return nil
}
