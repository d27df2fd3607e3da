package order

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	INSERT INTO orders (order_id, user_id, cart_id, status, payment_status,
		total_amount, shipping_address, tracking_number, order_date, updated_at)
	VALUES (:order_id, :user_id, :cart_id, :status, :payment_status,
		:total_amount, :shipping_address, :tracking_number, :order_date, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, orderID string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, q, orderID); err != nil {
		return Order{}, err
	}

	return ord, nil
}

func FetchForUpdate(ctx context.Context, tx sqlx.ExtContext, orderID string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_id = $1 FOR UPDATE`

	var ord Order
	if err := sqlx.GetContext(ctx, tx, &ord, q, orderID); err != nil {
		return Order{}, err
	}

	return ord, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Order, error) {
	const q = `SELECT * FROM orders WHERE user_id = $1 ORDER BY order_date DESC`

	ords := []Order{}
	if err := sqlx.SelectContext(ctx, db, &ords, q, userID); err != nil {
		return nil, fmt.Errorf("selecting orders of user[%s]: %w", userID, err)
	}

	return ords, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext, limit int, offset int) ([]Order, error) {
	const q = `SELECT * FROM orders ORDER BY order_date DESC LIMIT $1 OFFSET $2`

	ords := []Order{}
	if err := sqlx.SelectContext(ctx, db, &ords, q, limit, offset); err != nil {
		return nil, fmt.Errorf("selecting orders: %w", err)
	}

	return ords, nil
}

func Count(ctx context.Context, db sqlx.ExtContext) (int, error) {
	const q = `SELECT COUNT(*) FROM orders`

	var n int
	if err := sqlx.GetContext(ctx, db, &n, q); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}

	return n, nil
}

// updateStatus touches only the mutable order columns. The snapshot columns
// have no update statement at all.
func updateStatus(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	UPDATE orders SET
		status          = :status,
		payment_status  = :payment_status,
		tracking_number = :tracking_number,
		updated_at      = :updated_at
	WHERE order_id = :order_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	return nil
}
