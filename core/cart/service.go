package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/core/product"
	"github.com/klarvik/webshop/database"
	"github.com/klarvik/webshop/validate"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Active returns the user's open cart with its lines, creating an empty one
// on first access. A concurrent first access loses the race on the partial
// unique index and falls back to the winner's row.
func Active(ctx context.Context, db *sqlx.DB, userID string) (Cart, error) {
	c, err := FetchActive(ctx, db, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Cart{}, fmt.Errorf("fetching active cart: %w", err)
		}

		c = emptyCart(userID)
		if err := Create(ctx, db, c); err != nil {
			if !isUniqueViolation(err) {
				return Cart{}, fmt.Errorf("creating cart: %w", err)
			}

			if c, err = FetchActive(ctx, db, userID); err != nil {
				return Cart{}, fmt.Errorf("fetching active cart after create race: %w", err)
			}
		}
	}

	if c.Items, err = FetchLines(ctx, db, c.ID); err != nil {
		return Cart{}, fmt.Errorf("fetching lines of cart[%s]: %w", c.ID, err)
	}

	return c, nil
}

// AddItem puts quantity units of a product into the user's open cart,
// incrementing the existing line instead of duplicating it. The line amount
// and the full-sum total are updated in the same transaction, with the cart
// row locked first.
func AddItem(ctx context.Context, db *sqlx.DB, userID string, productID string, quantity int) (Line, error) {
	var line Line

	add := func() error {
		return database.Transaction(db, func(tx sqlx.ExtContext) error {
			c, err := FetchActiveForUpdate(ctx, tx, userID)
			if err != nil {
				if !errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("locking active cart: %w", err)
				}

				// The fresh row is invisible to other transactions until
				// commit, so it is effectively locked already.
				c = emptyCart(userID)
				if err := Create(ctx, tx, c); err != nil {
					return err
				}
			}

			p, err := product.Fetch(ctx, tx, productID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return product.ErrNotFound
				}
				return fmt.Errorf("fetching product[%s]: %w", productID, err)
			}

			now := time.Now().UTC()

			line, err = FetchLineByProduct(ctx, tx, c.ID, productID)
			switch {
			case err == nil:
				line.Quantity += quantity
				line.Amount = p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
				line.UpdatedAt = now
				if err := UpdateLine(ctx, tx, line); err != nil {
					return err
				}

			case errors.Is(err, sql.ErrNoRows):
				line = Line{
					ID:        validate.GenerateID(),
					CartID:    c.ID,
					ProductID: productID,
					Quantity:  quantity,
					Amount:    p.Price.Mul(decimal.NewFromInt(int64(quantity))),
					CreatedAt: now,
					UpdatedAt: now,
					Name:      p.Name,
					ImageURL:  p.ImageURL,
					Price:     p.Price,
				}
				if err := CreateLine(ctx, tx, line); err != nil {
					return err
				}

			default:
				return fmt.Errorf("fetching line for product[%s]: %w", productID, err)
			}

			return UpdateTotal(ctx, tx, c.ID)
		})
	}

	err := add()
	if isUniqueViolation(err) {
		// Lost a concurrent lazy-create of the cart itself. The winner's
		// cart is committed now, so a single retry locks it normally.
		err = add()
	}

	if err != nil {
		return Line{}, err
	}

	return line, nil
}

// UpdateItem sets the quantity of a line, removing it entirely when the
// quantity drops to zero or below. The amount is recomputed at the current
// catalog price.
func UpdateItem(ctx context.Context, db *sqlx.DB, lineID string, quantity int) (Line, bool, error) {
	var line Line
	removed := false

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		var err error
		if line, err = lockLine(ctx, tx, lineID); err != nil {
			return err
		}

		if quantity <= 0 {
			removed = true
			if err := DeleteLine(ctx, tx, lineID); err != nil {
				return err
			}
			return UpdateTotal(ctx, tx, line.CartID)
		}

		line.Quantity = quantity
		line.Amount = line.Price.Mul(decimal.NewFromInt(int64(quantity)))
		line.UpdatedAt = time.Now().UTC()

		if err := UpdateLine(ctx, tx, line); err != nil {
			return err
		}

		return UpdateTotal(ctx, tx, line.CartID)
	})

	if err != nil {
		return Line{}, false, err
	}

	return line, removed, nil
}

// RemoveItem deletes a line and re-sums the cart total.
func RemoveItem(ctx context.Context, db *sqlx.DB, lineID string) error {
	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		line, err := lockLine(ctx, tx, lineID)
		if err != nil {
			return err
		}

		if err := DeleteLine(ctx, tx, lineID); err != nil {
			return err
		}

		return UpdateTotal(ctx, tx, line.CartID)
	})
}

// Clear drops every line of the user's open cart and zeroes the total.
func Clear(ctx context.Context, db *sqlx.DB, userID string) error {
	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		c, err := FetchActiveForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCartNotFound
			}
			return fmt.Errorf("locking active cart: %w", err)
		}

		if err := DeleteLines(ctx, tx, c.ID); err != nil {
			return err
		}

		return UpdateTotal(ctx, tx, c.ID)
	})
}

// lockLine resolves a line, locks its cart row, and re-reads the line under
// the lock. Lines of a paid cart are frozen and refuse mutation.
func lockLine(ctx context.Context, tx sqlx.ExtContext, lineID string) (Line, error) {
	line, err := FetchLine(ctx, tx, lineID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Line{}, ErrLineNotFound
		}
		return Line{}, fmt.Errorf("fetching line[%s]: %w", lineID, err)
	}

	c, err := FetchForUpdate(ctx, tx, line.CartID)
	if err != nil {
		return Line{}, fmt.Errorf("locking cart[%s]: %w", line.CartID, err)
	}

	if c.Paid {
		return Line{}, ErrAlreadyPaid
	}

	if line, err = FetchLine(ctx, tx, lineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Line{}, ErrLineNotFound
		}
		return Line{}, fmt.Errorf("fetching line[%s]: %w", lineID, err)
	}

	return line, nil
}

func emptyCart(userID string) Cart {
	now := time.Now().UTC()
	return Cart{
		ID:        validate.GenerateID(),
		UserID:    userID,
		Paid:      false,
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
		Items:     []Line{},
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
