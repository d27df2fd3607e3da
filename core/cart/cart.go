package cart

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("cart item not found")
	ErrAlreadyPaid  = errors.New("cart is already paid")
	ErrEmptyCart    = errors.New("cannot checkout empty cart")
)

// Cart is a user's open collection of lines. At most one unpaid cart exists
// per user; once paid it is frozen and only read back as an order snapshot.
type Cart struct {
	ID        string          `json:"id" db:"cart_id"`
	UserID    string          `json:"userId" db:"user_id"`
	Paid      bool            `json:"paid" db:"paid"`
	Total     decimal.Decimal `json:"total" db:"total"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
	Items     []Line          `json:"items" db:"-"`
}

// Line holds one product in a cart. Amount is quantity times the product
// price as of the last mutation, so the cart total never depends on a live
// price read.
type Line struct {
	ID        string          `json:"id" db:"line_id"`
	CartID    string          `json:"cartId" db:"cart_id"`
	ProductID string          `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`

	// Joined from the catalog for display.
	Name     string          `json:"name" db:"name"`
	ImageURL string          `json:"imageUrl" db:"image_url"`
	Price    decimal.Decimal `json:"price" db:"price"`
}

type LineNew struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

type LineUp struct {
	Quantity int `json:"quantity"`
}
