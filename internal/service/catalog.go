package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/repository"
)

const topFavoritedLimit = 10

// CatalogService serves read-only catalog pages: browsing with filters,
// the home-page rail of most-favorited products, and product details.
type CatalogService struct {
	products repository.ProductRepository
	log      *logrus.Entry
}

func NewCatalogService(products repository.ProductRepository, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		log:      logger.WithField("component", "catalog-service"),
	}
}

// Browse lists catalog products filtered by gender and category.
func (s *CatalogService) Browse(ctx context.Context, gender, category string) ([]*models.Product, error) {
	return s.products.List(ctx, models.ProductFilter{Gender: gender, Category: category})
}

// TopFavorited returns the most-favorited products for the home page.
func (s *CatalogService) TopFavorited(ctx context.Context) ([]*models.Product, error) {
	return s.products.TopFavorited(ctx, topFavoritedLimit)
}

// ProductDetail returns a product for its detail page. Non-admin viewers
// only see products with stock.
func (s *CatalogService) ProductDetail(ctx context.Context, productID int64, isAdmin bool) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !p.InStock() {
		return nil, nil
	}
	return p, nil
}

// FavoriteService toggles and lists a user's favorited products.
type FavoriteService struct {
	favorites repository.FavoriteRepository
	products  repository.ProductRepository
	log       *logrus.Entry
}

func NewFavoriteService(favorites repository.FavoriteRepository, products repository.ProductRepository, logger *logrus.Logger) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		products:  products,
		log:       logger.WithField("component", "favorite-service"),
	}
}

// Toggle flips the favorite relation and reports whether it is now set.
func (s *FavoriteService) Toggle(ctx context.Context, userID, productID int64) (bool, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return false, err
	}

	added, err := s.favorites.Toggle(ctx, userID, productID)
	if err != nil {
		return false, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"favorited":  added,
	}).Debug("Favorite toggled")
	return added, nil
}

// List returns the user's favorited products still in stock.
func (s *FavoriteService) List(ctx context.Context, userID int64) ([]*models.Product, error) {
	return s.favorites.ListProducts(ctx, userID)
}
