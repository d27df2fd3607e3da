package product

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

// Product is the read-only catalog entry carts price against. The price is
// copied into cart lines at mutation time and never re-read for frozen data.
type Product struct {
	ID        string          `json:"id" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	ImageURL  string          `json:"imageUrl" db:"image_url"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     int             `json:"stock" db:"stock"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
	Version   int             `json:"-" db:"version"`
}

type ProductNew struct {
	Name     string          `json:"name" validate:"required"`
	ImageURL string          `json:"imageUrl"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock" validate:"gte=0"`
}

type ProductUp struct {
	Name     *string          `json:"name"`
	ImageURL *string          `json:"imageUrl"`
	Price    *decimal.Decimal `json:"price"`
	Stock    *int             `json:"stock" validate:"omitempty,gte=0"`
}
