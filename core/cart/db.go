package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, c Cart) error {
	const q = `
	INSERT INTO carts (cart_id, user_id, paid, total, created_at, updated_at)
	VALUES (:cart_id, :user_id, :paid, :total, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting cart: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, cartID string) (Cart, error) {
	const q = `SELECT * FROM carts WHERE cart_id = $1`

	var c Cart
	if err := sqlx.GetContext(ctx, db, &c, q, cartID); err != nil {
		return Cart{}, err
	}

	return c, nil
}

func FetchActive(ctx context.Context, db sqlx.ExtContext, userID string) (Cart, error) {
	const q = `SELECT * FROM carts WHERE user_id = $1 AND NOT paid`

	var c Cart
	if err := sqlx.GetContext(ctx, db, &c, q, userID); err != nil {
		return Cart{}, err
	}

	return c, nil
}

// FetchActiveForUpdate locks the user's open cart row for the rest of the
// transaction. Every read-modify-write on a cart starts here so concurrent
// mutations on the same cart serialize.
func FetchActiveForUpdate(ctx context.Context, tx sqlx.ExtContext, userID string) (Cart, error) {
	const q = `SELECT * FROM carts WHERE user_id = $1 AND NOT paid FOR UPDATE`

	var c Cart
	if err := sqlx.GetContext(ctx, tx, &c, q, userID); err != nil {
		return Cart{}, err
	}

	return c, nil
}

func FetchForUpdate(ctx context.Context, tx sqlx.ExtContext, cartID string) (Cart, error) {
	const q = `SELECT * FROM carts WHERE cart_id = $1 FOR UPDATE`

	var c Cart
	if err := sqlx.GetContext(ctx, tx, &c, q, cartID); err != nil {
		return Cart{}, err
	}

	return c, nil
}

func FetchLines(ctx context.Context, db sqlx.ExtContext, cartID string) ([]Line, error) {
	const q = `
	SELECT cart_lines.*, products.name, products.image_url, products.price
	FROM cart_lines
	INNER JOIN products ON products.product_id = cart_lines.product_id
	WHERE cart_lines.cart_id = $1
	ORDER BY cart_lines.created_at`

	lines := []Line{}
	if err := sqlx.SelectContext(ctx, db, &lines, q, cartID); err != nil {
		return nil, fmt.Errorf("selecting cart lines: %w", err)
	}

	return lines, nil
}

func FetchLine(ctx context.Context, db sqlx.ExtContext, lineID string) (Line, error) {
	const q = `
	SELECT cart_lines.*, products.name, products.image_url, products.price
	FROM cart_lines
	INNER JOIN products ON products.product_id = cart_lines.product_id
	WHERE cart_lines.line_id = $1`

	var line Line
	if err := sqlx.GetContext(ctx, db, &line, q, lineID); err != nil {
		return Line{}, err
	}

	return line, nil
}

func FetchLineByProduct(ctx context.Context, db sqlx.ExtContext, cartID string, productID string) (Line, error) {
	const q = `
	SELECT cart_lines.*, products.name, products.image_url, products.price
	FROM cart_lines
	INNER JOIN products ON products.product_id = cart_lines.product_id
	WHERE cart_lines.cart_id = $1 AND cart_lines.product_id = $2`

	var line Line
	if err := sqlx.GetContext(ctx, db, &line, q, cartID, productID); err != nil {
		return Line{}, err
	}

	return line, nil
}

func CreateLine(ctx context.Context, db sqlx.ExtContext, line Line) error {
	const q = `
	INSERT INTO cart_lines (line_id, cart_id, product_id, quantity, amount, created_at, updated_at)
	VALUES (:line_id, :cart_id, :product_id, :quantity, :amount, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, line); err != nil {
		return fmt.Errorf("inserting cart line: %w", err)
	}

	return nil
}

func UpdateLine(ctx context.Context, db sqlx.ExtContext, line Line) error {
	const q = `
	UPDATE cart_lines SET
		quantity   = :quantity,
		amount     = :amount,
		updated_at = :updated_at
	WHERE line_id = :line_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, line); err != nil {
		return fmt.Errorf("updating cart line: %w", err)
	}

	return nil
}

func DeleteLine(ctx context.Context, db sqlx.ExtContext, lineID string) error {
	const q = `DELETE FROM cart_lines WHERE line_id = $1`

	if _, err := db.ExecContext(ctx, q, lineID); err != nil {
		return fmt.Errorf("deleting cart line: %w", err)
	}

	return nil
}

func DeleteLines(ctx context.Context, db sqlx.ExtContext, cartID string) error {
	const q = `DELETE FROM cart_lines WHERE cart_id = $1`

	if _, err := db.ExecContext(ctx, q, cartID); err != nil {
		return fmt.Errorf("deleting cart lines: %w", err)
	}

	return nil
}

// UpdateTotal re-derives the cart total as the full sum of the current line
// amounts. Never incremental arithmetic: a missed or partial update cannot
// make the stored total drift from the lines.
func UpdateTotal(ctx context.Context, db sqlx.ExtContext, cartID string) error {
	const q = `
	UPDATE carts SET
		total      = (SELECT COALESCE(SUM(amount), 0) FROM cart_lines WHERE cart_id = $1),
		updated_at = $2
	WHERE cart_id = $1`

	if _, err := db.ExecContext(ctx, q, cartID, time.Now().UTC()); err != nil {
		return fmt.Errorf("recomputing cart total: %w", err)
	}

	return nil
}

func MarkPaid(ctx context.Context, db sqlx.ExtContext, cartID string) (int64, error) {
	const q = `UPDATE carts SET paid = TRUE, updated_at = $2 WHERE cart_id = $1 AND NOT paid`

	res, err := db.ExecContext(ctx, q, cartID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("marking cart paid: %w", err)
	}

	return res.RowsAffected()
}
