package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/klarvik/webshop/api/web"
	"github.com/klarvik/webshop/api/weberr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

func TestMetricsStatusOnError(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	rm := NewRequestMetrics()

	var notFound web.Handler = func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return weberr.NotFound(errors.New("no such thing"))
	}

	// Metrics wraps Errors, as the API wires them, so the status written by
	// the error renderer is the one counted.
	h := web.WrapMiddleware([]web.Middleware{Metrics(rm), Errors(log)}, notFound)

	router := mux.NewRouter()
	router.Handle("/things/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h(r.Context(), w, r)
	})).Methods(http.MethodGet)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/42", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %d", w.Code)
	}

	if got := testutil.ToFloat64(rm.requests.WithLabelValues(http.MethodGet, "/things/{id}", "404")); got != 1 {
		t.Fatalf("expected one request counted with status 404, got %v", got)
	}
	if got := testutil.ToFloat64(rm.requests.WithLabelValues(http.MethodGet, "/things/{id}", "200")); got != 0 {
		t.Fatalf("error response must not be counted as 200, got %v", got)
	}
}
