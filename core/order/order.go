package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klarvik/webshop/core/cart"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("order not found")

// Order is the immutable snapshot of a paid cart. Only status, payment
// status and the tracking number ever change after insert.
type Order struct {
	ID             string           `json:"id" db:"order_id"`
	UserID         string           `json:"userId" db:"user_id"`
	CartID         string           `json:"cartId" db:"cart_id"`
	Status         Status           `json:"status" db:"status"`
	PaymentStatus  PaymentStatus    `json:"paymentStatus" db:"payment_status"`
	TotalAmount    decimal.Decimal  `json:"totalAmount" db:"total_amount"`
	Ship           *ShippingAddress `json:"shippingAddress" db:"shipping_address"`
	TrackingNumber *string          `json:"trackingNumber" db:"tracking_number"`
	OrderDate      time.Time        `json:"orderDate" db:"order_date"`
	UpdatedAt      time.Time        `json:"updatedAt" db:"updated_at"`
}

// Detail is an order together with the frozen cart it was cut from.
type Detail struct {
	Order
	Cart cart.Cart `json:"cart"`
}

// Page is one slice of the admin order listing.
type Page struct {
	Items       []Order `json:"items"`
	TotalItems  int     `json:"totalItems"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
}

type ShippingAddress struct {
	Name       string `json:"name" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// The address is persisted as a JSON blob in a single column.
func (s ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *ShippingAddress) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("cannot scan %T into a shipping address", value)
}

type OrderNew struct {
	UserID string           `json:"userId" validate:"required"`
	CartID string           `json:"cartId" validate:"required"`
	Ship   *ShippingAddress `json:"shippingAddress" validate:"required"`
}

type StatusUp struct {
	Status Status `json:"status" validate:"required"`
}

type ShippingUp struct {
	TrackingNumber string `json:"trackingNumber" validate:"required"`
}
