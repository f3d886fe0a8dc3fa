package repository

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/models"
)

// PostgresProductRepository implements ProductRepository using PostgreSQL.
type PostgresProductRepository struct {
	db  *sql.DB
	log *logrus.Entry
}

func NewPostgresProductRepository(db *sql.DB, logger *logrus.Logger) *PostgresProductRepository {
	return &PostgresProductRepository{
		db:  db,
		log: logger.WithField("component", "product-repository"),
	}
}

const productColumns = `
	p.product_id, p.user_id, p.title, COALESCE(p.description, ''),
	COALESCE(p.category, ''), COALESCE(p.gender, ''), COALESCE(p.size, ''),
	COALESCE(p.condition, ''), p.price, p.quantity, p.created_at
`

// GetByID retrieves a product with its images.
func (r *PostgresProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.product_id = $1`

	var p models.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.SellerID, &p.Title, &p.Description,
		&p.Category, &p.Gender, &p.Size,
		&p.Condition, &p.Price, &p.Quantity, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{"product_id": id, "error": err.Error()}).Error("Failed to fetch product")
		return nil, err
	}

	if err := r.attachImages(ctx, []*models.Product{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetManyByID resolves a set of product IDs. Missing IDs are silently
// absent from the result; callers compare counts.
func (r *PostgresProductRepository) GetManyByID(ctx context.Context, ids []int64) ([]*models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + productColumns + ` FROM products p WHERE p.product_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		r.log.WithField("error", err.Error()).Error("Failed to fetch products")
		return nil, err
	}
	defer rows.Close()

	return r.collect(ctx, rows)
}

// List returns catalog products matching the filter, newest first.
func (r *PostgresProductRepository) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE 1=1`
	args := make([]interface{}, 0, 2)

	if filter.Gender != "" {
		args = append(args, filter.Gender)
		query += ` AND p.gender = $` + strconv.Itoa(len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND p.category = $` + strconv.Itoa(len(args))
	}
	if filter.InStock {
		query += ` AND p.quantity >= 1`
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.WithField("error", err.Error()).Error("Failed to list products")
		return nil, err
	}
	defer rows.Close()

	return r.collect(ctx, rows)
}

// TopFavorited returns the most favorited products, most popular first.
func (r *PostgresProductRepository) TopFavorited(ctx context.Context, limit int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN favorites f ON f.product_id = p.product_id
		GROUP BY p.product_id
		ORDER BY COUNT(*) DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.log.WithField("error", err.Error()).Error("Failed to list top favorited products")
		return nil, err
	}
	defer rows.Close()

	return r.collect(ctx, rows)
}

func (r *PostgresProductRepository) collect(ctx context.Context, rows *sql.Rows) ([]*models.Product, error) {
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachImages(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *PostgresProductRepository) attachImages(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Product, len(products))
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	query := `
		SELECT image_id, product_id, image_url, is_main
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY product_id, image_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.IsMain); err != nil {
			return err
		}
		if p, ok := byID[img.ProductID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	return rows.Err()
}
