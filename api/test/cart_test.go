package test

import (
	"net/http"
	"testing"
)

func TestCart(t *testing.T) {
	env, err := NewTestEnv(t, "cart_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	tea := env.createProduct(t, "tea", "4.50")
	mug := env.createProduct(t, "mug", "12.00")

	// First access creates an empty cart lazily.
	c := env.getCart(t, env.UserID)
	if c.Paid {
		t.Fatal("fresh cart must not be paid")
	}
	if len(c.Items) != 0 {
		t.Fatalf("fresh cart must be empty, got %d items", len(c.Items))
	}
	if err := equalAmount(c.Total, "0"); err != nil {
		t.Fatalf("fresh cart total: %v", err)
	}

	// A second access resolves the same cart, not a new one.
	if again := env.getCart(t, env.UserID); again.ID != c.ID {
		t.Fatalf("expected the same cart on second access, got %s and %s", c.ID, again.ID)
	}

	line := env.addItem(t, env.UserID, tea.ID, 2)
	if line.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", line.Quantity)
	}
	if err := equalAmount(line.Amount, "9.00"); err != nil {
		t.Fatalf("line amount: %v", err)
	}

	// Adding the same product again increments the existing line.
	line = env.addItem(t, env.UserID, tea.ID, 1)
	if line.Quantity != 3 {
		t.Fatalf("expected quantity 3 after re-add, got %d", line.Quantity)
	}
	if err := equalAmount(line.Amount, "13.50"); err != nil {
		t.Fatalf("line amount after re-add: %v", err)
	}

	env.addItem(t, env.UserID, mug.ID, 1)

	c = env.getCart(t, env.UserID)
	if len(c.Items) != 2 {
		t.Fatalf("expected 2 deduped lines, got %d", len(c.Items))
	}
	if err := equalAmount(c.Total, "25.50"); err != nil {
		t.Fatalf("cart total: %v", err)
	}

	// Updating the quantity recomputes amount and total.
	var updated map[string]any
	code, err := env.Do(http.MethodPut, "/cart/"+env.UserID+"/items/"+line.ID, "", map[string]int{"quantity": 1}, &updated)
	if err != nil || code != http.StatusOK {
		t.Fatalf("updating line: code %d, err %v", code, err)
	}

	c = env.getCart(t, env.UserID)
	if err := equalAmount(c.Total, "16.50"); err != nil {
		t.Fatalf("cart total after update: %v", err)
	}

	// Zero and negative quantities remove the line entirely.
	code, err = env.Do(http.MethodPut, "/cart/"+env.UserID+"/items/"+line.ID, "", map[string]int{"quantity": 0}, nil)
	if err != nil || code != http.StatusNoContent {
		t.Fatalf("removing line via zero quantity: code %d, err %v", code, err)
	}

	c = env.getCart(t, env.UserID)
	if len(c.Items) != 1 {
		t.Fatalf("expected 1 line after zero-quantity update, got %d", len(c.Items))
	}

	neg := env.addItem(t, env.UserID, tea.ID, 1)
	code, err = env.Do(http.MethodPut, "/cart/"+env.UserID+"/items/"+neg.ID, "", map[string]int{"quantity": -1}, nil)
	if err != nil || code != http.StatusNoContent {
		t.Fatalf("removing line via negative quantity: code %d, err %v", code, err)
	}

	// The removed line is gone for good.
	code, err = env.Do(http.MethodPut, "/cart/"+env.UserID+"/items/"+neg.ID, "", map[string]int{"quantity": 1}, nil)
	if err != nil || code != http.StatusNotFound {
		t.Fatalf("updating removed line: expected 404, got %d, err %v", code, err)
	}

	// Explicit delete.
	c = env.getCart(t, env.UserID)
	code, err = env.Do(http.MethodDelete, "/cart/"+env.UserID+"/items/"+c.Items[0].ID, "", nil, nil)
	if err != nil || code != http.StatusNoContent {
		t.Fatalf("deleting line: code %d, err %v", code, err)
	}

	c = env.getCart(t, env.UserID)
	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart after delete, got %d items", len(c.Items))
	}
	if err := equalAmount(c.Total, "0"); err != nil {
		t.Fatalf("cart total after delete: %v", err)
	}

	// Clearing a populated cart.
	env.addItem(t, env.UserID, tea.ID, 2)
	env.addItem(t, env.UserID, mug.ID, 2)

	code, err = env.Do(http.MethodDelete, "/cart/"+env.UserID, "", nil, nil)
	if err != nil || code != http.StatusNoContent {
		t.Fatalf("clearing cart: code %d, err %v", code, err)
	}

	c = env.getCart(t, env.UserID)
	if len(c.Items) != 0 {
		t.Fatalf("expected cleared cart, got %d items", len(c.Items))
	}
	if err := equalAmount(c.Total, "0"); err != nil {
		t.Fatalf("cart total after clear: %v", err)
	}

	// Unknown products are rejected.
	in := map[string]any{"productId": env.UserID, "quantity": 1}
	code, err = env.Do(http.MethodPost, "/cart/"+env.UserID+"/items", "", in, nil)
	if err != nil || code != http.StatusNotFound {
		t.Fatalf("adding unknown product: expected 404, got %d, err %v", code, err)
	}

	// Non-positive quantity on create is a validation error.
	in = map[string]any{"productId": tea.ID, "quantity": 0}
	code, err = env.Do(http.MethodPost, "/cart/"+env.UserID+"/items", "", in, nil)
	if err != nil || code != http.StatusBadRequest {
		t.Fatalf("adding zero quantity: expected 400, got %d, err %v", code, err)
	}
}
