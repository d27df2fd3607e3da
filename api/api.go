package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/api/background"
	"github.com/klarvik/webshop/api/middleware"
	"github.com/klarvik/webshop/api/web"
	"github.com/klarvik/webshop/core/auth"
	"github.com/klarvik/webshop/core/cart"
	"github.com/klarvik/webshop/core/checkout"
	"github.com/klarvik/webshop/core/order"
	"github.com/klarvik/webshop/core/product"
	"github.com/klarvik/webshop/database"
	"github.com/klarvik/webshop/rate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin   string
	Log          logrus.FieldLogger
	DB           *sqlx.DB
	Session      *scs.SessionManager
	TokenTimeout time.Duration
	Background   *background.Background
	Limiter      *rate.Limiter
	Metrics      *middleware.RequestMetrics
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	// Metrics sits outside Errors so it observes the status Errors writes
	// for failed requests.
	if cfg.Metrics != nil {
		a.mw = append(a.mw, middleware.Metrics(cfg.Metrics))
	}

	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.Limiter != nil {
		a.mw = append(a.mw, middleware.RateLimit(cfg.Limiter))
	}

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.DB, cfg.Session)
	admin := auth.Admin(cfg.DB, cfg.Session)

	a.Handle(http.MethodGet, "/health", handleHealth(cfg.DB))
	a.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB))
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session, cfg.TokenTimeout))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.DB, cfg.Session), authen)

	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))
	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/products/{id}", product.HandleUpdate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/cart/{user_id}", cart.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/cart/{user_id}/items", cart.HandleCreateItem(cfg.DB))
	a.Handle(http.MethodPut, "/cart/{user_id}/items/{line_id}", cart.HandleUpdateItem(cfg.DB))
	a.Handle(http.MethodDelete, "/cart/{user_id}/items/{line_id}", cart.HandleDeleteItem(cfg.DB))
	a.Handle(http.MethodDelete, "/cart/{user_id}", cart.HandleDelete(cfg.DB))
	a.Handle(http.MethodPost, "/cart/{user_id}/checkout", checkout.HandleCheckout(cfg.DB, cfg.Log, cfg.Background), authen)

	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), admin)
	a.Handle(http.MethodGet, "/orders/user/{user_id}", order.HandleListByUser(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPost, "/orders", order.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodPut, "/orders/{id}/status", order.HandleUpdateStatus(cfg.DB), admin)
	a.Handle(http.MethodPut, "/orders/{id}/shipping", order.HandleUpdateShipping(cfg.DB), admin)
	a.Handle(http.MethodPut, "/orders/{id}/cancel", order.HandleCancel(cfg.DB), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

func handleHealth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		status := "ok"
		code := http.StatusOK

		if err := database.StatusCheck(ctx, db); err != nil {
			status = "db not ready"
			code = http.StatusInternalServerError
		}

		health := struct {
			Status string `json:"status"`
		}{status}

		return web.Respond(ctx, w, health, code)
	}
}
