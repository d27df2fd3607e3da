package test

import (
	"net/http"
	"testing"

	"github.com/klarvik/webshop/core/checkout"
	"github.com/klarvik/webshop/core/order"
)

var testAddress = order.ShippingAddress{
	Name:       "Test Person",
	Street:     "Storgatan 1",
	City:       "Göteborg",
	PostalCode: "41101",
	Country:    "SE",
}

func TestCheckout(t *testing.T) {
	env, err := NewTestEnv(t, "checkout_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	book := env.createProduct(t, "book", "25.00")

	// Checkout requires authentication. Checked before any login so the
	// session cookie jar is still empty.
	code, err := env.Do(http.MethodPost, "/cart/"+env.UserID+"/checkout", "", nil, nil)
	if err != nil || code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated checkout: expected 401, got %d, err %v", code, err)
	}

	token, err := env.Login(env.UserEmail, env.UserPass)
	if err != nil {
		t.Fatal(err)
	}

	// An empty cart cannot be checked out.
	env.getCart(t, env.UserID)
	in := map[string]any{"shippingAddress": testAddress}
	code, err = env.Do(http.MethodPost, "/cart/"+env.UserID+"/checkout", token, in, nil)
	if err != nil || code != http.StatusConflict {
		t.Fatalf("empty checkout: expected 409, got %d, err %v", code, err)
	}

	// 2 units, then 1 more of the same product.
	line := env.addItem(t, env.UserID, book.ID, 2)
	if err := equalAmount(line.Amount, "50.00"); err != nil {
		t.Fatalf("line amount: %v", err)
	}

	line = env.addItem(t, env.UserID, book.ID, 1)
	if line.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", line.Quantity)
	}
	if err := equalAmount(line.Amount, "75.00"); err != nil {
		t.Fatalf("line amount: %v", err)
	}

	before := env.getCart(t, env.UserID)
	if err := equalAmount(before.Total, "75.00"); err != nil {
		t.Fatalf("cart total: %v", err)
	}

	var res checkout.Result
	code, err = env.Do(http.MethodPost, "/cart/"+env.UserID+"/checkout", token, in, &res)
	if err != nil || code != http.StatusCreated {
		t.Fatalf("checkout: code %d, err %v", code, err)
	}

	if res.Order == nil {
		t.Fatal("checkout with address must create an order")
	}
	if res.Order.Status != order.Pending {
		t.Fatalf("expected pending order, got %s", res.Order.Status)
	}
	if res.Order.PaymentStatus != order.PaymentPaid {
		t.Fatalf("expected paid payment status, got %s", res.Order.PaymentStatus)
	}
	if err := equalAmount(res.Order.TotalAmount, "75.00"); err != nil {
		t.Fatalf("order total: %v", err)
	}
	if res.Order.CartID != before.ID {
		t.Fatalf("order must snapshot cart %s, got %s", before.ID, res.Order.CartID)
	}

	if !res.PaidCart.Paid {
		t.Fatal("checked-out cart must be paid")
	}
	if res.NewCart.ID == before.ID {
		t.Fatal("replacement cart must be a fresh row")
	}

	after := env.getCart(t, env.UserID)
	if after.ID != res.NewCart.ID {
		t.Fatalf("active cart must be the replacement, got %s", after.ID)
	}
	if len(after.Items) != 0 {
		t.Fatalf("replacement cart must be empty, got %d items", len(after.Items))
	}
	if err := equalAmount(after.Total, "0"); err != nil {
		t.Fatalf("replacement cart total: %v", err)
	}

	// A retried checkout pinned to the consumed cart is a conflict, not a
	// silent re-process.
	in = map[string]any{"shippingAddress": testAddress, "cartId": before.ID}
	code, err = env.Do(http.MethodPost, "/cart/"+env.UserID+"/checkout", token, in, nil)
	if err != nil || code != http.StatusConflict {
		t.Fatalf("stale checkout: expected 409, got %d, err %v", code, err)
	}

	// Frozen lines refuse mutation.
	code, err = env.Do(http.MethodPut, "/cart/"+env.UserID+"/items/"+line.ID, "", map[string]int{"quantity": 5}, nil)
	if err != nil || code != http.StatusConflict {
		t.Fatalf("mutating frozen line: expected 409, got %d, err %v", code, err)
	}

	// A later price change must not touch the frozen order total.
	adminToken, err := env.Login(env.AdminEmail, env.AdminPass)
	if err != nil {
		t.Fatal(err)
	}

	up := map[string]any{"price": "99.99"}
	code, err = env.Do(http.MethodPut, "/products/"+book.ID, adminToken, up, nil)
	if err != nil || code != http.StatusOK {
		t.Fatalf("updating product price: code %d, err %v", code, err)
	}

	var det order.Detail
	code, err = env.Do(http.MethodGet, "/orders/"+res.Order.ID, token, nil, &det)
	if err != nil || code != http.StatusOK {
		t.Fatalf("fetching order: code %d, err %v", code, err)
	}
	if err := equalAmount(det.TotalAmount, "75.00"); err != nil {
		t.Fatalf("order total after price drift: %v", err)
	}
	if det.Cart.ID != before.ID {
		t.Fatalf("order detail must carry the frozen cart, got %s", det.Cart.ID)
	}
	if len(det.Cart.Items) != 1 || det.Cart.Items[0].Quantity != 3 {
		t.Fatal("order detail must carry the frozen lines")
	}

	// Cart-only checkout: no address, no order.
	env.addItem(t, env.UserID, book.ID, 1)

	var res2 checkout.Result
	code, err = env.Do(http.MethodPost, "/cart/"+env.UserID+"/checkout", token, map[string]any{}, &res2)
	if err != nil || code != http.StatusOK {
		t.Fatalf("cart-only checkout: code %d, err %v", code, err)
	}
	if res2.Order != nil {
		t.Fatal("cart-only checkout must not create an order")
	}
	if !res2.PaidCart.Paid {
		t.Fatal("cart-only checkout must still freeze the cart")
	}

	// The paid cart can be turned into an order explicitly afterwards.
	on := map[string]any{"userId": env.UserID, "cartId": res2.PaidCart.ID, "shippingAddress": testAddress}
	var ord order.Order
	code, err = env.Do(http.MethodPost, "/orders", token, on, &ord)
	if err != nil || code != http.StatusCreated {
		t.Fatalf("creating order from paid cart: code %d, err %v", code, err)
	}
	if err := equalAmount(ord.TotalAmount, res2.PaidCart.Total.String()); err != nil {
		t.Fatalf("explicit order total: %v", err)
	}

	// Checkout on behalf of another user is forbidden.
	code, err = env.Do(http.MethodPost, "/cart/"+env.AdminID+"/checkout", token, nil, nil)
	if err != nil || code != http.StatusForbidden {
		t.Fatalf("cross-user checkout: expected 403, got %d, err %v", code, err)
	}
}
