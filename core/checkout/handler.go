package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/api/background"
	"github.com/klarvik/webshop/api/web"
	"github.com/klarvik/webshop/api/weberr"
	"github.com/klarvik/webshop/core/cart"
	"github.com/klarvik/webshop/core/claims"
	"github.com/klarvik/webshop/validate"
	"github.com/sirupsen/logrus"
)

func HandleCheckout(db *sqlx.DB, log logrus.FieldLogger, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(err)
		}

		if !claims.IsUser(ctx, userID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("cannot checkout the cart of another user"))
		}

		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil && !errors.Is(err, io.EOF) {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if cn.Ship != nil {
			if err := validate.Check(*cn.Ship); err != nil {
				return weberr.BadRequest(err)
			}
		}

		if cn.CartID != "" {
			if err := validate.CheckID(cn.CartID); err != nil {
				return weberr.BadRequest(err)
			}
		}

		res, err := Checkout(ctx, db, userID, cn)
		if err != nil {
			switch {
			case errors.Is(err, cart.ErrCartNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, cart.ErrAlreadyPaid):
				return weberr.Conflict(err)
			case errors.Is(err, cart.ErrEmptyCart):
				return weberr.Conflict(err)
			}
			return fmt.Errorf("checking out cart of user[%s]: %w", userID, err)
		}

		// Confirmation is best effort and must not delay the response.
		bg.Run(func() error {
			entry := log.WithFields(logrus.Fields{
				"user_id": userID,
				"cart_id": res.PaidCart.ID,
				"total":   res.PaidCart.Total.String(),
			})
			if res.Order != nil {
				entry = entry.WithField("order_id", res.Order.ID)
			}
			entry.Info("checkout completed")
			return nil
		})

		status := http.StatusOK
		if res.Order != nil {
			status = http.StatusCreated
		}

		return web.Respond(ctx, w, res, status)
	}
}
