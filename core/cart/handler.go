package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/api/web"
	"github.com/klarvik/webshop/api/weberr"
	"github.com/klarvik/webshop/core/product"
	"github.com/klarvik/webshop/validate"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := Active(ctx, db, userID)
		if err != nil {
			return fmt.Errorf("fetching cart of user[%s]: %w", userID, err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleCreateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(err)
		}

		var ln LineNew
		if err := web.Decode(w, r, &ln); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ln); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.CheckID(ln.ProductID); err != nil {
			return weberr.BadRequest(err)
		}

		line, err := AddItem(ctx, db, userID, ln.ProductID, ln.Quantity)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("adding product[%s] to cart of user[%s]: %w", ln.ProductID, userID, err)
		}

		return web.Respond(ctx, w, line, http.StatusCreated)
	}
}

func HandleUpdateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lineID := web.Param(r, "line_id")
		if err := validate.CheckID(lineID); err != nil {
			return weberr.BadRequest(err)
		}

		var lu LineUp
		if err := web.Decode(w, r, &lu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		line, removed, err := UpdateItem(ctx, db, lineID, lu.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, ErrLineNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrAlreadyPaid):
				return weberr.Conflict(err)
			}
			return fmt.Errorf("updating line[%s]: %w", lineID, err)
		}

		if removed {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		return web.Respond(ctx, w, line, http.StatusOK)
	}
}

func HandleDeleteItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lineID := web.Param(r, "line_id")
		if err := validate.CheckID(lineID); err != nil {
			return weberr.BadRequest(err)
		}

		if err := RemoveItem(ctx, db, lineID); err != nil {
			switch {
			case errors.Is(err, ErrLineNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrAlreadyPaid):
				return weberr.Conflict(err)
			}
			return fmt.Errorf("removing line[%s]: %w", lineID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(err)
		}

		if err := Clear(ctx, db, userID); err != nil {
			if errors.Is(err, ErrCartNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("clearing cart of user[%s]: %w", userID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
