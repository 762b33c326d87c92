package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-shop/internal/api"
	"pantry-shop/internal/domain"
)

type noHeaders struct{}

func (noHeaders) Headers() map[string]string { return map[string]string{} }

func respondData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func TestCheckoutRequiresAddress(t *testing.T) {
	client := New(api.New("http://unused", time.Second, noHeaders{}))

	_, err := client.Checkout(context.Background(), CheckoutParams{ShippingAddress: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCheckoutPostsParams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		var params CheckoutParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "1 Main St", params.ShippingAddress)
		assert.Equal(t, "ring twice", params.Note)
		respondData(w, domain.Order{ID: "o1", Status: domain.OrderPending, TotalAmount: 12})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(api.New(srv.URL, time.Second, noHeaders{}))
	placed, err := client.Checkout(context.Background(), CheckoutParams{
		ShippingAddress: "1 Main St",
		Note:            "ring twice",
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", placed.ID)
	assert.Equal(t, domain.OrderPending, placed.Status)
}

func TestListAndGet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders", func(w http.ResponseWriter, r *http.Request) {
		respondData(w, []domain.Order{{ID: "o2"}, {ID: "o1"}})
	})
	mux.HandleFunc("GET /orders/o1", func(w http.ResponseWriter, r *http.Request) {
		respondData(w, domain.Order{ID: "o1"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(api.New(srv.URL, time.Second, noHeaders{}))

	orders, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID, "newest first comes straight from the backend")

	placed, err := client.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", placed.ID)

	_, err = client.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
