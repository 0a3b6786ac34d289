package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("order not found")

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		er := tx.Rollback()
		if er != nil && !errors.Is(er, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback withTx: %w", err)
		}
		return fmt.Errorf("failed to execute withTx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withTx: %w", err)
	}
	return nil
}

// InsertOrder writes the order header and fills in the sequential order
// number and creation timestamp.
func (c *Conf) InsertOrder(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (id, order_number, user_id, customer_name, customer_email, customer_phone,
		                    street, city, zip, country, total, status, created_at)
		VALUES ($1, nextval('order_number_seq'), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING order_number, created_at
	`
	err := c.db.QueryRowContext(ctx, query,
		o.ID, o.UserID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.Address.Street, o.Address.City, o.Address.Zip, o.Address.Country,
		o.Total, o.Status,
	).Scan(&o.Number, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// InsertItems writes the order's line items as one batch inside a
// transaction, so the items either all exist or none do.
func (c *Conf) InsertItems(ctx context.Context, orderID string, items []Item) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO order_items (order_id, product_id, variation_id, name, variation_name,
			                         quantity, unit_price, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		for _, it := range items {
			_, err := tx.ExecContext(ctx, query,
				orderID, it.ProductID, it.VariationID, it.Name, it.VariationName,
				it.Quantity, it.UnitPrice, it.ImageURL,
			)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}
		return nil
	})
}

// DeleteOrder removes an order header and any items; the pipeline uses it as
// the compensating action when the item batch fails after the header write.
func (c *Conf) DeleteOrder(ctx context.Context, orderID string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
}

func (c *Conf) GetOrder(ctx context.Context, orderID, userID string) (Order, error) {
	query := `
		SELECT id, order_number, user_id, customer_name, customer_email, customer_phone,
		       street, city, zip, country, total, status, created_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`
	var o Order
	err := c.db.QueryRowContext(ctx, query, orderID, userID).Scan(
		&o.ID, &o.Number, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.Address.Street, &o.Address.City, &o.Address.Zip, &o.Address.Country,
		&o.Total, &o.Status, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("failed to query order: %w", err)
	}

	o.Items, err = c.listItems(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// ListOrdersByUser returns the user's order headers, newest first, without
// items.
func (c *Conf) ListOrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	query := `
		SELECT id, order_number, user_id, customer_name, customer_email, customer_phone,
		       street, city, zip, country, total, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.Number, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
			&o.Address.Street, &o.Address.City, &o.Address.Zip, &o.Address.Country,
			&o.Total, &o.Status, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return list, nil
}

func (c *Conf) UpdateStatus(ctx context.Context, orderID string, status Status) error {
	res, err := c.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Conf) listItems(ctx context.Context, orderID string) ([]Item, error) {
	query := `
		SELECT id, order_id, product_id, variation_id, name, variation_name,
		       quantity, unit_price, image_url
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariationID,
			&it.Name, &it.VariationName, &it.Quantity, &it.UnitPrice, &it.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}
