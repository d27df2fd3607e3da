package test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/klarvik/webshop/core/cart"
	"github.com/klarvik/webshop/core/product"
	"github.com/klarvik/webshop/validate"
	"github.com/shopspring/decimal"
)

func (te *TestEnv) createProduct(t *testing.T, name string, price string) product.Product {
	t.Helper()

	now := time.Now().UTC()
	p := product.Product{
		ID:        validate.GenerateID(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     100,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	if err := product.Create(context.Background(), te.DB, p); err != nil {
		t.Fatalf("creating product: %v", err)
	}

	return p
}

func (te *TestEnv) getCart(t *testing.T, userID string) cart.Cart {
	t.Helper()

	var c cart.Cart
	code, err := te.Do(http.MethodGet, "/cart/"+userID, "", nil, &c)
	if err != nil {
		t.Fatalf("fetching cart: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("fetching cart: status code %d", code)
	}

	return c
}

func (te *TestEnv) addItem(t *testing.T, userID string, productID string, quantity int) cart.Line {
	t.Helper()

	in := map[string]any{"productId": productID, "quantity": quantity}

	var line cart.Line
	code, err := te.Do(http.MethodPost, "/cart/"+userID+"/items", "", in, &line)
	if err != nil {
		t.Fatalf("adding item: %v", err)
	}
	if code != http.StatusCreated {
		t.Fatalf("adding item: status code %d", code)
	}

	return line
}

func equalAmount(got decimal.Decimal, want string) error {
	w := decimal.RequireFromString(want)
	if !got.Equal(w) {
		return fmt.Errorf("expected %s, got %s", w, got)
	}
	return nil
}
