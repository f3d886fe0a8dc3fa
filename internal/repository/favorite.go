package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/models"
)

// PostgresFavoriteRepository implements FavoriteRepository using PostgreSQL.
type PostgresFavoriteRepository struct {
	db  *sql.DB
	log *logrus.Entry
}

func NewPostgresFavoriteRepository(db *sql.DB, logger *logrus.Logger) *PostgresFavoriteRepository {
	return &PostgresFavoriteRepository{
		db:  db,
		log: logger.WithField("component", "favorite-repository"),
	}
}

// Toggle adds the (user, product) favorite if absent, removes it otherwise.
func (r *PostgresFavoriteRepository) Toggle(ctx context.Context, userID, productID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, product_id, added_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id) DO NOTHING`,
		userID, productID, time.Now().UTC(),
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"user_id":    userID,
			"product_id": productID,
			"error":      err.Error(),
		}).Error("Failed to add favorite")
		return false, err
	}
	return true, nil
}

func (r *PostgresFavoriteRepository) ListProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id FROM favorites WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListProducts returns the user's favorited products that are still in stock.
func (r *PostgresFavoriteRepository) ListProducts(ctx context.Context, userID int64) ([]*models.Product, error) {
	return r.listProducts(ctx, userID, true)
}

// ListAllProducts returns every favorited product regardless of stock.
func (r *PostgresFavoriteRepository) ListAllProducts(ctx context.Context, userID int64) ([]*models.Product, error) {
	return r.listProducts(ctx, userID, false)
}

func (r *PostgresFavoriteRepository) listProducts(ctx context.Context, userID int64, inStockOnly bool) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN favorites f ON f.product_id = p.product_id
		WHERE f.user_id = $1
	`
	if inStockOnly {
		query += ` AND p.quantity >= 1`
	}
	query += ` ORDER BY f.added_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.log.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Failed to list favorites")
		return nil, err
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.SellerID, &p.Title, &p.Description,
			&p.Category, &p.Gender, &p.Size,
			&p.Condition, &p.Price, &p.Quantity, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}
