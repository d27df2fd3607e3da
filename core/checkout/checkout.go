// Package checkout owns the single indivisible transition from an open cart
// to a paid cart plus its order, including the replacement cart.
package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/core/cart"
	"github.com/klarvik/webshop/core/order"
	"github.com/klarvik/webshop/database"
	"github.com/klarvik/webshop/validate"
	"github.com/shopspring/decimal"
)

// CheckoutNew carries the optional checkout parameters. Without a shipping
// address the checkout is cart-only: the cart is frozen and replaced but no
// order is recorded, and the caller must create one later via the orders
// surface. CartID pins the checkout to a specific cart so a retried request
// that targets a cart that was already paid fails distinguishably instead of
// consuming the replacement cart.
type CheckoutNew struct {
	Ship   *order.ShippingAddress `json:"shippingAddress"`
	CartID string                 `json:"cartId"`
}

type Result struct {
	Order    *order.Order `json:"order,omitempty"`
	PaidCart cart.Cart    `json:"paidCart"`
	NewCart  cart.Cart    `json:"newCart"`
}

// Checkout freezes the target cart, snapshots it into an order when a
// shipping address is present, and opens a fresh empty cart, all inside one
// transaction. Two concurrent checkouts of the same cart cannot both
// succeed: the second either blocks on the row lock and then sees the paid
// flag, or flips zero rows.
func Checkout(ctx context.Context, db *sqlx.DB, userID string, cn CheckoutNew) (Result, error) {
	var res Result

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		c, err := lockTarget(ctx, tx, userID, cn.CartID)
		if err != nil {
			return err
		}

		if c.Items, err = cart.FetchLines(ctx, tx, c.ID); err != nil {
			return fmt.Errorf("fetching lines of cart[%s]: %w", c.ID, err)
		}

		if len(c.Items) == 0 {
			return cart.ErrEmptyCart
		}

		n, err := cart.MarkPaid(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return cart.ErrAlreadyPaid
		}
		c.Paid = true
		c.UpdatedAt = time.Now().UTC()

		if cn.Ship != nil {
			ord := order.FromCart(userID, c, cn.Ship)
			if err := order.Create(ctx, tx, ord); err != nil {
				return err
			}
			res.Order = &ord
		}

		now := time.Now().UTC()
		fresh := cart.Cart{
			ID:        validate.GenerateID(),
			UserID:    userID,
			Paid:      false,
			Total:     decimal.Zero,
			CreatedAt: now,
			UpdatedAt: now,
			Items:     []cart.Line{},
		}
		if err := cart.Create(ctx, tx, fresh); err != nil {
			return err
		}

		res.PaidCart = c
		res.NewCart = fresh
		return nil
	})

	if err != nil {
		return Result{}, err
	}

	return res, nil
}

// lockTarget resolves the cart being checked out: the pinned cart when the
// request names one, the user's open cart otherwise.
func lockTarget(ctx context.Context, tx sqlx.ExtContext, userID string, cartID string) (cart.Cart, error) {
	if cartID != "" {
		c, err := cart.FetchForUpdate(ctx, tx, cartID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return cart.Cart{}, cart.ErrCartNotFound
			}
			return cart.Cart{}, fmt.Errorf("locking cart[%s]: %w", cartID, err)
		}

		if c.UserID != userID {
			return cart.Cart{}, cart.ErrCartNotFound
		}
		if c.Paid {
			return cart.Cart{}, cart.ErrAlreadyPaid
		}
		return c, nil
	}

	c, err := cart.FetchActiveForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cart.Cart{}, cart.ErrCartNotFound
		}
		return cart.Cart{}, fmt.Errorf("locking active cart: %w", err)
	}

	return c, nil
}
