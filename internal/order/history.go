package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// HistoryReader is the read side of orders.
type HistoryReader interface {
	ListByCustomer(ctx context.Context, customerID int64) ([]Order, error)
	GetOrderByID(ctx context.Context, orderID int64) (*Order, error)
}

type sqlxHistoryReader struct {
	db *sqlx.DB
}

func NewHistoryReader(db *sqlx.DB) HistoryReader {
	return &sqlxHistoryReader{db: db}
}

const (
	selectOrderColumns = `
		SELECT id, customer_id, status, total_amount, payment_method, delivery_address, created_at, updated_at
		FROM orders
	`
	selectItemColumns = `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items
	`
)

// ListByCustomer returns the customer's orders newest first, each with its items.
func (r *sqlxHistoryReader) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	orders := make([]Order, 0)
	query := selectOrderColumns + `
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`
	if err := r.db.SelectContext(ctx, &orders, query, customerID); err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for customer %d: %w", customerID, err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	orderIDs := make([]int64, len(orders))
	byID := make(map[int64]*Order, len(orders))
	for i := range orders {
		orders[i].Items = make([]LineItem, 0)
		orderIDs[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	var items []LineItem
	itemsQuery := selectItemColumns + `
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`
	if err := r.db.SelectContext(ctx, &items, itemsQuery, pq.Array(orderIDs)); err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for customer %d: %w", customerID, err)
	}

	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return orders, nil
}

func (r *sqlxHistoryReader) GetOrderByID(ctx context.Context, orderID int64) (*Order, error) {
	var o Order
	err := r.db.GetContext(ctx, &o, selectOrderColumns+` WHERE id = $1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %d: %w", orderID, err)
	}

	o.Items = make([]LineItem, 0)
	itemsQuery := selectItemColumns + `
		WHERE order_id = $1
		ORDER BY id
	`
	if err := r.db.SelectContext(ctx, &o.Items, itemsQuery, orderID); err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %d: %w", orderID, err)
	}

	return &o, nil
}
