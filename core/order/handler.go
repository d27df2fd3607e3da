package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/api/web"
	"github.com/klarvik/webshop/api/weberr"
	"github.com/klarvik/webshop/core/cart"
	"github.com/klarvik/webshop/core/claims"
	"github.com/klarvik/webshop/validate"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		page := web.QueryInt(r, "page", 1)
		limit := web.QueryInt(r, "limit", 10)

		pg, err := List(ctx, db, page, limit)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}

		return web.Respond(ctx, w, pg, http.StatusOK)
	}
}

func HandleListByUser(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(err)
		}

		if !claims.IsUser(ctx, userID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("cannot access orders of another user"))
		}

		ords, err := FetchByUser(ctx, db, userID)
		if err != nil {
			return fmt.Errorf("listing orders of user[%s]: %w", userID, err)
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		orderID := web.Param(r, "id")
		if err := validate.CheckID(orderID); err != nil {
			return weberr.BadRequest(err)
		}

		det, err := FetchDetail(ctx, db, orderID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", orderID, err)
		}

		if !claims.IsUser(ctx, det.UserID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("cannot access an order of another user"))
		}

		return web.Respond(ctx, w, det, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var on OrderNew
		if err := web.Decode(w, r, &on); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(on); err != nil {
			return weberr.BadRequest(err)
		}

		if !claims.IsUser(ctx, on.UserID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("cannot create an order for another user"))
		}

		ord, err := CreateFromCart(ctx, db, on.UserID, on.CartID, on.Ship)
		if err != nil {
			if errors.Is(err, cart.ErrCartNotFound) {
				err := errors.New("cart not found or not checked out")
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return fmt.Errorf("creating order from cart[%s]: %w", on.CartID, err)
		}

		return web.Respond(ctx, w, ord, http.StatusCreated)
	}
}

func HandleUpdateStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		orderID := web.Param(r, "id")
		if err := validate.CheckID(orderID); err != nil {
			return weberr.BadRequest(err)
		}

		var su StatusUp
		if err := web.Decode(w, r, &su); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if !su.Status.Valid() {
			return weberr.BadRequest(fmt.Errorf("unknown status %q", su.Status))
		}

		ord, err := SetStatus(ctx, db, orderID, su.Status)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrInvalidTransition):
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return fmt.Errorf("updating status of order[%s]: %w", orderID, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandleUpdateShipping(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		orderID := web.Param(r, "id")
		if err := validate.CheckID(orderID); err != nil {
			return weberr.BadRequest(err)
		}

		var su ShippingUp
		if err := web.Decode(w, r, &su); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(su); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := SetShipping(ctx, db, orderID, su.TrackingNumber)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrInvalidTransition):
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return fmt.Errorf("updating shipping of order[%s]: %w", orderID, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandleCancel(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		orderID := web.Param(r, "id")
		if err := validate.CheckID(orderID); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := Fetch(ctx, db, orderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(ErrNotFound)
			}
			return fmt.Errorf("fetching order[%s]: %w", orderID, err)
		}

		if !claims.IsUser(ctx, ord.UserID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("cannot cancel an order of another user"))
		}

		ord, err = Cancel(ctx, db, orderID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrInvalidTransition):
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return fmt.Errorf("cancelling order[%s]: %w", orderID, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}
