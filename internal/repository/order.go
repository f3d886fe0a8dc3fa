package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
	"github.com/stoa-market/stoa-market-api/internal/models"
)

// PostgresOrderRepository implements OrderRepository using PostgreSQL.
type PostgresOrderRepository struct {
	db  *sql.DB
	log *logrus.Entry
}

func NewPostgresOrderRepository(db *sql.DB, logger *logrus.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:  db,
		log: logger.WithField("component", "order-repository"),
	}
}

// Create persists order + items + transaction and decrements product stock
// in one transaction. Each decrement is conditional on remaining stock; a
// conflict aborts the whole unit so stock can never go negative and two
// racing checkouts cannot both take the last unit.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &apperrors.PersistenceError{Op: "checkout", Err: err}
	}
	defer tx.Rollback()

	for _, item := range order.Items {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET quantity = quantity - $2 WHERE product_id = $1 AND quantity >= $2`,
			item.ProductID, item.Quantity,
		)
		if err != nil {
			return &apperrors.PersistenceError{Op: "checkout", Err: err}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return &apperrors.PersistenceError{Op: "checkout", Err: err}
		}
		if affected == 0 {
			// Either the product vanished or someone else took the stock.
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM products WHERE product_id = $1)`, item.ProductID,
			).Scan(&exists); err != nil {
				return &apperrors.PersistenceError{Op: "checkout", Err: err}
			}
			if !exists {
				return apperrors.ErrProductsUnavailable
			}
			return &apperrors.InsufficientStockError{ProductTitle: item.ProductTitle}
		}
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, total_price, order_status, order_date, shipping_address)
		 VALUES ($1, $2, $3, $4, $5) RETURNING order_id`,
		order.BuyerID, order.Total, order.Status, order.OrderDate, order.ShippingAddress,
	).Scan(&order.ID)
	if err != nil {
		return &apperrors.PersistenceError{Op: "checkout", Err: err}
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price, status)
			 VALUES ($1, $2, $3, $4, $5) RETURNING order_item_id`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Status,
		).Scan(&item.ID)
		if err != nil {
			return &apperrors.PersistenceError{Op: "checkout", Err: err}
		}
	}

	for i := range order.Transactions {
		txn := &order.Transactions[i]
		txn.OrderID = order.ID
		err = tx.QueryRowContext(ctx,
			`INSERT INTO transactions (order_id, reference, amount, payment_method, transaction_status, transaction_date)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING transaction_id`,
			txn.OrderID, txn.Reference, txn.Amount, txn.PaymentMethod, txn.Status, txn.Date,
		).Scan(&txn.ID)
		if err != nil {
			return &apperrors.PersistenceError{Op: "checkout", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &apperrors.PersistenceError{Op: "checkout", Err: err}
	}

	r.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"buyer_id": order.BuyerID,
		"total":    order.Total.String(),
	}).Info("Order created")

	return nil
}

// GetByID retrieves an order with its line items and transactions.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := r.db.QueryRowContext(ctx,
		`SELECT order_id, user_id, total_price, order_status, order_date, COALESCE(shipping_address, '')
		 FROM orders WHERE order_id = $1`, id,
	).Scan(&order.ID, &order.BuyerID, &order.Total, &order.Status, &order.OrderDate, &order.ShippingAddress)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{"order_id": id, "error": err.Error()}).Error("Failed to fetch order")
		return nil, err
	}

	orders := []*models.Order{&order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	if err := r.attachTransactions(ctx, orders); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListBySeller returns orders containing at least one line whose product is
// owned by the seller, newest first.
func (r *PostgresOrderRepository) ListBySeller(ctx context.Context, sellerID int64) ([]*models.Order, error) {
	query := `
		SELECT o.order_id, o.user_id, o.total_price, o.order_status, o.order_date, COALESCE(o.shipping_address, '')
		FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_items oi
			JOIN products p ON p.product_id = oi.product_id
			WHERE oi.order_id = o.order_id AND p.user_id = $1
		)
		ORDER BY o.order_date DESC
	`
	return r.queryOrders(ctx, query, sellerID)
}

// ListByBuyer returns the buyer's orders, newest first.
func (r *PostgresOrderRepository) ListByBuyer(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	query := `
		SELECT order_id, user_id, total_price, order_status, order_date, COALESCE(shipping_address, '')
		FROM orders WHERE user_id = $1
		ORDER BY order_date DESC
	`
	return r.queryOrders(ctx, query, buyerID)
}

// ListAll returns every order, newest first. Admin only.
func (r *PostgresOrderRepository) ListAll(ctx context.Context) ([]*models.Order, error) {
	query := `
		SELECT order_id, user_id, total_price, order_status, order_date, COALESCE(shipping_address, '')
		FROM orders
		ORDER BY order_date DESC
	`
	return r.queryOrders(ctx, query)
}

// ApplyStatusUpdate writes the new line statuses, the stock restores and
// the recomputed aggregate status in one transaction.
func (r *PostgresOrderRepository) ApplyStatusUpdate(ctx context.Context, upd *StatusUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &apperrors.PersistenceError{Op: "status update", Err: err}
	}
	defer tx.Rollback()

	if len(upd.ItemIDs) > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE order_items SET status = $1 WHERE order_id = $2 AND order_item_id = ANY($3)`,
			upd.NewStatus, upd.OrderID, pq.Array(upd.ItemIDs),
		)
		if err != nil {
			return &apperrors.PersistenceError{Op: "status update", Err: err}
		}
	}

	for _, restore := range upd.Restocks {
		_, err = tx.ExecContext(ctx,
			`UPDATE products SET quantity = quantity + $2 WHERE product_id = $1`,
			restore.ProductID, restore.Quantity,
		)
		if err != nil {
			return &apperrors.PersistenceError{Op: "status update", Err: err}
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET order_status = $1 WHERE order_id = $2`,
		upd.Aggregate, upd.OrderID,
	)
	if err != nil {
		return &apperrors.PersistenceError{Op: "status update", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &apperrors.PersistenceError{Op: "status update", Err: err}
	}

	r.log.WithFields(logrus.Fields{
		"order_id":   upd.OrderID,
		"new_status": upd.NewStatus,
		"aggregate":  upd.Aggregate,
		"lines":      len(upd.ItemIDs),
		"restocks":   len(upd.Restocks),
	}).Info("Order status updated")

	return nil
}

// Delete removes the order, cascading to items and transactions, and
// restores product stock for every line.
func (r *PostgresOrderRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &apperrors.PersistenceError{Op: "order delete", Err: err}
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT product_id, quantity FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return &apperrors.PersistenceError{Op: "order delete", Err: err}
	}

	restores := make([]StockRestore, 0)
	for rows.Next() {
		var restore StockRestore
		if err := rows.Scan(&restore.ProductID, &restore.Quantity); err != nil {
			rows.Close()
			return &apperrors.PersistenceError{Op: "order delete", Err: err}
		}
		restores = append(restores, restore)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return &apperrors.PersistenceError{Op: "order delete", Err: err}
	}
	rows.Close()

	for _, restore := range restores {
		_, err = tx.ExecContext(ctx,
			`UPDATE products SET quantity = quantity + $2 WHERE product_id = $1`,
			restore.ProductID, restore.Quantity,
		)
		if err != nil {
			return &apperrors.PersistenceError{Op: "order delete", Err: err}
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE order_id = $1`, id); err != nil {
		return &apperrors.PersistenceError{Op: "order delete", Err: err}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return &apperrors.PersistenceError{Op: "order delete", Err: err}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, id)
	if err != nil {
		return &apperrors.PersistenceError{Op: "order delete", Err: err}
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return &apperrors.PersistenceError{Op: "order delete", Err: err}
	}

	r.log.WithField("order_id", id).Info("Order deleted, stock restored")
	return nil
}

// ListPurchasedProducts returns the distinct products the buyer has ordered.
func (r *PostgresOrderRepository) ListPurchasedProducts(ctx context.Context, buyerID int64) ([]*models.Product, error) {
	query := `
		SELECT DISTINCT ` + productColumns + `
		FROM products p
		JOIN order_items oi ON oi.product_id = p.product_id
		JOIN orders o ON o.order_id = oi.order_id
		WHERE o.user_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		r.log.WithFields(logrus.Fields{"buyer_id": buyerID, "error": err.Error()}).Error("Failed to list purchased products")
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

func (r *PostgresOrderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.WithField("error", err.Error()).Error("Failed to list orders")
		return nil, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.Total, &o.Status, &o.OrderDate, &o.ShippingAddress); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads line items for a batch of orders. Seller and title come
// from the product row; lines whose product was since deleted keep working
// with a zero seller and empty title.
func (r *PostgresOrderRepository) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	query := `
		SELECT oi.order_item_id, oi.order_id, oi.product_id,
		       COALESCE(p.user_id, 0), COALESCE(p.title, ''),
		       oi.quantity, oi.unit_price, oi.status
		FROM order_items oi
		LEFT JOIN products p ON p.product_id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_item_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID,
			&item.SellerID, &item.ProductTitle,
			&item.Quantity, &item.UnitPrice, &item.Status,
		); err != nil {
			return err
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func (r *PostgresOrderRepository) attachTransactions(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	query := `
		SELECT transaction_id, order_id, reference, amount, payment_method, transaction_status, transaction_date
		FROM transactions
		WHERE order_id = ANY($1)
		ORDER BY transaction_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var txn models.Transaction
		if err := rows.Scan(&txn.ID, &txn.OrderID, &txn.Reference, &txn.Amount, &txn.PaymentMethod, &txn.Status, &txn.Date); err != nil {
			return err
		}
		if o, ok := byID[txn.OrderID]; ok {
			o.Transactions = append(o.Transactions, txn)
		}
	}
	return rows.Err()
}
