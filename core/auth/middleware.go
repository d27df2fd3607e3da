package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/api/web"
	"github.com/klarvik/webshop/api/weberr"
	"github.com/klarvik/webshop/core/claims"
)

// LoadAndSave adapts the scs middleware to the handler chain so session
// state survives across requests for browser clients.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			sh := session.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			}))

			sh.ServeHTTP(w, r)
			return err
		}
		return h
	}
	return m
}

// Authenticate resolves the caller's identity from a bearer token, falling
// back to the session cookie, and stores the claims in the context.
func Authenticate(db *sqlx.DB, session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			userID, role, err := identify(ctx, db, session, r)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			ctx = claims.Set(ctx, claims.Claims{UserID: userID, Role: role})
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Admin behaves like Authenticate but additionally requires the admin role.
func Admin(db *sqlx.DB, session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			userID, role, err := identify(ctx, db, session, r)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			if role != claims.RoleAdmin {
				return weberr.Forbidden(errors.New("admin access required"))
			}

			ctx = claims.Set(ctx, claims.Claims{UserID: userID, Role: role})
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func identify(ctx context.Context, db *sqlx.DB, session *scs.SessionManager, r *http.Request) (userID string, role string, err error) {
	if header := r.Header.Get("Authorization"); header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return "", "", errors.New("authorization header is not a bearer token")
		}
		plain := strings.TrimPrefix(header, "Bearer ")

		user, err := FetchTokenUser(ctx, db, plain)
		if err != nil {
			return "", "", errors.New("invalid or expired token")
		}

		return user.ID, user.Role, nil
	}

	if id := session.GetString(ctx, sessionKey); id != "" {
		user, err := FetchUser(ctx, db, id)
		if err != nil {
			return "", "", errors.New("session user no longer exists")
		}

		return user.ID, user.Role, nil
	}

	return "", "", errors.New("authentication required")
}
