// Package order places and tracks orders for the authenticated user.
package order

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"pantry-shop/internal/api"
	"pantry-shop/internal/domain"
)

type Client struct {
	api *api.Client
}

func New(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// CheckoutParams describes where and how to ship the current cart.
type CheckoutParams struct {
	ShippingAddress string `json:"shippingAddress"`
	Note            string `json:"note,omitempty"`
}

// Checkout places an order from the current session's cart. The backend
// clears the cart as part of the operation.
func (c *Client) Checkout(ctx context.Context, params CheckoutParams) (*domain.Order, error) {
	if strings.TrimSpace(params.ShippingAddress) == "" {
		return nil, fmt.Errorf("%w: shipping address is required", domain.ErrInvalidInput)
	}

	var placed domain.Order
	if err := c.api.Post(ctx, api.PathOrders, params, &placed); err != nil {
		return nil, err
	}
	return &placed, nil
}

// List fetches the authenticated user's orders, newest first.
func (c *Client) List(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.api.Get(ctx, api.PathOrders, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get fetches a single order.
func (c *Client) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrInvalidInput)
	}

	var ord domain.Order
	if err := c.api.Get(ctx, api.PathOrders+"/"+url.PathEscape(orderID), &ord); err != nil {
		return nil, err
	}
	return &ord, nil
}
