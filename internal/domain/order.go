package domain

import (
	"errors"
	"time"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyCart     = errors.New("cannot checkout an empty cart")
)

// OrderStatus tracks fulfilment progress.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
)

// Order is a placed order, snapshotting the cart it was checked out from.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	Items           []CartItem  `json:"items"`
	TotalAmount     float64     `json:"totalAmount"`
	Status          OrderStatus `json:"status"`
	ShippingAddress string      `json:"shippingAddress"`
	Note            string      `json:"note,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}
