package order

import "testing"

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{Pending, Processing, true},
		{Pending, Cancelled, true},
		{Pending, Shipped, false},
		{Pending, Delivered, false},
		{Processing, Shipped, true},
		{Processing, Cancelled, true},
		{Processing, Delivered, false},
		{Processing, Pending, false},
		{Shipped, Delivered, true},
		{Shipped, Cancelled, false},
		{Shipped, Pending, false},
		{Delivered, Cancelled, false},
		{Delivered, Shipped, false},
		{Cancelled, Pending, false},
		{Cancelled, Processing, false},
		{Cancelled, Cancelled, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanBecome(tt.to); got != tt.ok {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{Pending, Processing, Shipped, Delivered, Cancelled} {
		if !s.Valid() {
			t.Errorf("%s: expected valid", s)
		}
	}

	for _, s := range []Status{"", "unknown", "PENDING", "paid"} {
		if s.Valid() {
			t.Errorf("%q: expected invalid", s)
		}
	}
}
