// Package catalog is the read-only product browsing client.
package catalog

import (
	"context"
	"fmt"
	"net/url"

	"pantry-shop/internal/api"
	"pantry-shop/internal/domain"
)

type Client struct {
	api *api.Client
}

func New(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// List fetches the catalog, optionally filtered by category.
func (c *Client) List(ctx context.Context, category string) ([]domain.Product, error) {
	path := api.PathProducts
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}

	var products []domain.Product
	if err := c.api.Get(ctx, path, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Get fetches a single product with its variants.
func (c *Client) Get(ctx context.Context, productID string) (*domain.Product, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidInput)
	}

	var product domain.Product
	if err := c.api.Get(ctx, api.PathProducts+"/"+url.PathEscape(productID), &product); err != nil {
		return nil, err
	}
	return &product, nil
}
