package test

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klarvik/webshop/core/checkout"
	"github.com/klarvik/webshop/core/order"
)

func TestOrders(t *testing.T) {
	env, err := NewTestEnv(t, "order_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pen := env.createProduct(t, "pen", "3.00")

	token, err := env.Login(env.UserEmail, env.UserPass)
	if err != nil {
		t.Fatal(err)
	}
	adminToken, err := env.Login(env.AdminEmail, env.AdminPass)
	if err != nil {
		t.Fatal(err)
	}

	placeOrder := func(quantity int) order.Order {
		t.Helper()

		env.addItem(t, env.UserID, pen.ID, quantity)

		in := map[string]any{"shippingAddress": testAddress}
		var res checkout.Result
		code, err := env.Do(http.MethodPost, "/cart/"+env.UserID+"/checkout", token, in, &res)
		if err != nil || code != http.StatusCreated {
			t.Fatalf("checkout: code %d, err %v", code, err)
		}
		return *res.Order
	}

	first := placeOrder(1)
	second := placeOrder(2)
	third := placeOrder(3)

	// Listing a user's orders: newest first.
	var ords []order.Order
	code, err := env.Do(http.MethodGet, "/orders/user/"+env.UserID, token, nil, &ords)
	if err != nil || code != http.StatusOK {
		t.Fatalf("listing user orders: code %d, err %v", code, err)
	}

	gotIDs := make([]string, 0, len(ords))
	for _, o := range ords {
		gotIDs = append(gotIDs, o.ID)
	}
	wantIDs := []string{third.ID, second.ID, first.ID}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Fatalf("user orders mismatch (-want +got):\n%s", diff)
	}

	// Another user's orders are off limits without the admin role.
	code, err = env.Do(http.MethodGet, "/orders/user/"+env.AdminID, token, nil, nil)
	if err != nil || code != http.StatusForbidden {
		t.Fatalf("cross-user listing: expected 403, got %d, err %v", code, err)
	}
	code, err = env.Do(http.MethodGet, "/orders/user/"+env.UserID, adminToken, nil, nil)
	if err != nil || code != http.StatusOK {
		t.Fatalf("admin listing user orders: code %d, err %v", code, err)
	}

	// The admin listing paginates newest first.
	var page order.Page
	code, err = env.Do(http.MethodGet, "/orders?page=1&limit=2", adminToken, nil, &page)
	if err != nil || code != http.StatusOK {
		t.Fatalf("listing all orders: code %d, err %v", code, err)
	}
	if page.TotalItems != 3 || page.TotalPages != 2 || page.CurrentPage != 1 {
		t.Fatalf("unexpected page meta: %+v", page)
	}
	if len(page.Items) != 2 || page.Items[0].ID != third.ID {
		t.Fatalf("unexpected first page: %+v", page.Items)
	}

	code, err = env.Do(http.MethodGet, "/orders?page=2&limit=2", adminToken, nil, &page)
	if err != nil || code != http.StatusOK {
		t.Fatalf("listing page 2: code %d, err %v", code, err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != first.ID {
		t.Fatalf("unexpected second page: %+v", page.Items)
	}

	// The listing is admin only.
	code, err = env.Do(http.MethodGet, "/orders", token, nil, nil)
	if err != nil || code != http.StatusForbidden {
		t.Fatalf("non-admin listing: expected 403, got %d, err %v", code, err)
	}

	// Status walk: pending -> processing -> shipped -> delivered.
	var ord order.Order
	code, err = env.Do(http.MethodPut, "/orders/"+first.ID+"/status", adminToken, map[string]string{"status": "processing"}, &ord)
	if err != nil || code != http.StatusOK || ord.Status != order.Processing {
		t.Fatalf("to processing: code %d, status %s, err %v", code, ord.Status, err)
	}

	// Skipping a lifecycle step is rejected.
	code, err = env.Do(http.MethodPut, "/orders/"+first.ID+"/status", adminToken, map[string]string{"status": "delivered"}, nil)
	if err != nil || code != http.StatusBadRequest {
		t.Fatalf("skipping to delivered: expected 400, got %d, err %v", code, err)
	}

	// A tracking number assignment is the shipping transition.
	code, err = env.Do(http.MethodPut, "/orders/"+first.ID+"/shipping", adminToken, map[string]string{"trackingNumber": "TRACK-123"}, &ord)
	if err != nil || code != http.StatusOK {
		t.Fatalf("setting shipping: code %d, err %v", code, err)
	}
	if ord.Status != order.Shipped || ord.TrackingNumber == nil || *ord.TrackingNumber != "TRACK-123" {
		t.Fatalf("unexpected order after shipping: %+v", ord)
	}

	code, err = env.Do(http.MethodPut, "/orders/"+first.ID+"/status", adminToken, map[string]string{"status": "delivered"}, &ord)
	if err != nil || code != http.StatusOK || ord.Status != order.Delivered {
		t.Fatalf("to delivered: code %d, status %s, err %v", code, ord.Status, err)
	}

	// Shipped and delivered orders cannot be cancelled.
	code, err = env.Do(http.MethodPut, "/orders/"+first.ID+"/cancel", token, nil, nil)
	if err != nil || code != http.StatusBadRequest {
		t.Fatalf("cancelling delivered order: expected 400, got %d, err %v", code, err)
	}

	// Pending and processing orders can.
	code, err = env.Do(http.MethodPut, "/orders/"+second.ID+"/cancel", token, nil, &ord)
	if err != nil || code != http.StatusOK || ord.Status != order.Cancelled {
		t.Fatalf("cancelling pending order: code %d, status %s, err %v", code, ord.Status, err)
	}

	code, err = env.Do(http.MethodPut, "/orders/"+third.ID+"/status", adminToken, map[string]string{"status": "processing"}, nil)
	if err != nil || code != http.StatusOK {
		t.Fatalf("to processing: code %d, err %v", code, err)
	}
	code, err = env.Do(http.MethodPut, "/orders/"+third.ID+"/cancel", adminToken, nil, &ord)
	if err != nil || code != http.StatusOK || ord.Status != order.Cancelled {
		t.Fatalf("cancelling processing order: code %d, status %s, err %v", code, ord.Status, err)
	}

	// Status and shipping updates are admin only.
	code, err = env.Do(http.MethodPut, "/orders/"+third.ID+"/status", token, map[string]string{"status": "processing"}, nil)
	if err != nil || code != http.StatusForbidden {
		t.Fatalf("non-admin status update: expected 403, got %d, err %v", code, err)
	}
	code, err = env.Do(http.MethodPut, "/orders/"+third.ID+"/shipping", token, map[string]string{"trackingNumber": "X"}, nil)
	if err != nil || code != http.StatusForbidden {
		t.Fatalf("non-admin shipping update: expected 403, got %d, err %v", code, err)
	}

	// Unknown orders are a 404.
	code, err = env.Do(http.MethodGet, "/orders/"+env.UserID, token, nil, nil)
	if err != nil || code != http.StatusNotFound {
		t.Fatalf("unknown order: expected 404, got %d, err %v", code, err)
	}

	// Unknown status values are rejected before touching the table.
	code, err = env.Do(http.MethodPut, "/orders/"+third.ID+"/status", adminToken, map[string]string{"status": "lost"}, nil)
	if err != nil || code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %d, err %v", code, err)
	}

	// A tracking number cannot ship an order that was never processed.
	fourth := placeOrder(1)
	code, err = env.Do(http.MethodPut, "/orders/"+fourth.ID+"/shipping", adminToken, map[string]string{"trackingNumber": "TRACK-999"}, nil)
	if err != nil || code != http.StatusBadRequest {
		t.Fatalf("shipping a pending order: expected 400, got %d, err %v", code, err)
	}
}
