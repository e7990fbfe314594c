package order

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Repository holds the write side of orders.
type Repository interface {
	CreateOrder(ctx context.Context, order *Order) (int64, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, newStatus Status) error
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

// CreateOrder inserts the header and every line item in one transaction.
// On success order.ID, order.CreatedAt and each item's ID/OrderID are set.
func (r *postgresRepository) CreateOrder(ctx context.Context, order *Order) (orderID int64, err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return 0, fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Int64("customer_id", order.CustomerID).Msg("Panic recovered during CreateOrder, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Int64("customer_id", order.CustomerID).Msg("Transaction for CreateOrder failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Int64("customer_id", order.CustomerID).Msg("Failed to rollback transaction")
			}
			orderID = 0
			clearPersistedFields(order)
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				log.Error().Err(commitErr).Int64("order_id", orderID).Msg("Failed to commit transaction")
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
				orderID = 0
				clearPersistedFields(order)
			}
		}
	}()

	queryOrder := `
		INSERT INTO orders (customer_id, status, total_amount, payment_method, delivery_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	var createdAt time.Time
	err = tx.QueryRow(ctx, queryOrder,
		order.CustomerID,
		string(order.Status),
		order.TotalAmount,
		order.PaymentMethod,
		order.DeliveryAddress,
	).Scan(&orderID, &createdAt)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for i := range order.Items {
		item := &order.Items[i]
		err = tx.QueryRow(ctx, queryItem,
			orderID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
		).Scan(&item.ID)
		if err != nil {
			return 0, fmt.Errorf("repository: failed to insert order item for order %d: %w", orderID, err)
		}
		item.OrderID = orderID
	}

	order.ID = orderID
	order.CreatedAt = createdAt
	order.UpdatedAt = createdAt
	return orderID, nil
}

// clearPersistedFields undoes the database-assigned fields after a rollback.
func clearPersistedFields(order *Order) {
	order.ID = 0
	order.CreatedAt = time.Time{}
	order.UpdatedAt = time.Time{}
	for i := range order.Items {
		order.Items[i].ID = 0
		order.Items[i].OrderID = 0
	}
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderID int64, newStatus Status) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	cmdTag, err := r.db.Exec(ctx, query, string(newStatus), orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status %d: %w", orderID, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}
