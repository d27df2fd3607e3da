package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/core/cart"
	"github.com/klarvik/webshop/database"
	"github.com/klarvik/webshop/validate"
)

// FromCart builds the order row for a paid cart, freezing its total. The
// caller decides the transaction it runs in.
func FromCart(userID string, c cart.Cart, ship *ShippingAddress) Order {
	now := time.Now().UTC()
	return Order{
		ID:            validate.GenerateID(),
		UserID:        userID,
		CartID:        c.ID,
		Status:        Pending,
		PaymentStatus: PaymentPaid,
		TotalAmount:   c.Total,
		Ship:          ship,
		OrderDate:     now,
		UpdatedAt:     now,
	}
}

// CreateFromCart materializes an order from a cart the user already paid.
// The cart must belong to the user and be checked out.
func CreateFromCart(ctx context.Context, db *sqlx.DB, userID string, cartID string, ship *ShippingAddress) (Order, error) {
	var ord Order

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		c, err := cart.FetchForUpdate(ctx, tx, cartID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return cart.ErrCartNotFound
			}
			return fmt.Errorf("locking cart[%s]: %w", cartID, err)
		}

		if c.UserID != userID || !c.Paid {
			return cart.ErrCartNotFound
		}

		ord = FromCart(userID, c, ship)
		return Create(ctx, tx, ord)
	})

	if err != nil {
		return Order{}, err
	}

	return ord, nil
}

// FetchDetail loads an order together with the frozen cart snapshot it was
// created from.
func FetchDetail(ctx context.Context, db *sqlx.DB, orderID string) (Detail, error) {
	ord, err := Fetch(ctx, db, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Detail{}, ErrNotFound
		}
		return Detail{}, fmt.Errorf("fetching order[%s]: %w", orderID, err)
	}

	c, err := cart.Fetch(ctx, db, ord.CartID)
	if err != nil {
		return Detail{}, fmt.Errorf("fetching cart[%s] of order[%s]: %w", ord.CartID, orderID, err)
	}

	if c.Items, err = cart.FetchLines(ctx, db, c.ID); err != nil {
		return Detail{}, fmt.Errorf("fetching lines of cart[%s]: %w", c.ID, err)
	}

	return Detail{Order: ord, Cart: c}, nil
}

// List returns one page of all orders, newest first.
func List(ctx context.Context, db *sqlx.DB, page int, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	total, err := Count(ctx, db)
	if err != nil {
		return Page{}, err
	}

	items, err := FetchAll(ctx, db, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page{}, err
	}

	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}

	return Page{
		Items:       items,
		TotalItems:  total,
		TotalPages:  pages,
		CurrentPage: page,
	}, nil
}

// SetStatus applies an admin-driven transition, validated against the
// lifecycle table.
func SetStatus(ctx context.Context, db *sqlx.DB, orderID string, next Status) (Order, error) {
	var ord Order

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		var err error
		if ord, err = lock(ctx, tx, orderID); err != nil {
			return err
		}

		if !ord.Status.CanBecome(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ord.Status, next)
		}

		ord.Status = next
		ord.UpdatedAt = time.Now().UTC()
		return updateStatus(ctx, tx, ord)
	})

	if err != nil {
		return Order{}, err
	}

	return ord, nil
}

// SetShipping records the tracking number and moves the order into the
// shipped state: assigning a tracking number is the shipping transition,
// validated against the lifecycle table. A shipped order may still have its
// tracking number corrected.
func SetShipping(ctx context.Context, db *sqlx.DB, orderID string, trackingNumber string) (Order, error) {
	var ord Order

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		var err error
		if ord, err = lock(ctx, tx, orderID); err != nil {
			return err
		}

		if ord.Status != Shipped && !ord.Status.CanBecome(Shipped) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ord.Status, Shipped)
		}

		ord.Status = Shipped
		ord.TrackingNumber = &trackingNumber
		ord.UpdatedAt = time.Now().UTC()
		return updateStatus(ctx, tx, ord)
	})

	if err != nil {
		return Order{}, err
	}

	return ord, nil
}

// Cancel moves the order to cancelled unless fulfillment already shipped it.
func Cancel(ctx context.Context, db *sqlx.DB, orderID string) (Order, error) {
	var ord Order

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		var err error
		if ord, err = lock(ctx, tx, orderID); err != nil {
			return err
		}

		if !ord.Status.CanBecome(Cancelled) {
			return fmt.Errorf("%w: cannot cancel order in %s status", ErrInvalidTransition, ord.Status)
		}

		ord.Status = Cancelled
		ord.UpdatedAt = time.Now().UTC()
		return updateStatus(ctx, tx, ord)
	})

	if err != nil {
		return Order{}, err
	}

	return ord, nil
}

func lock(ctx context.Context, tx sqlx.ExtContext, orderID string) (Order, error) {
	ord, err := FetchForUpdate(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("locking order[%s]: %w", orderID, err)
	}
	return ord, nil
}
