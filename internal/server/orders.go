package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pantry-shop/internal/domain"
)

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShippingAddress string `json:"shippingAddress"`
		Note            string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		respondError(w, http.StatusBadRequest, "invalid_input", "shippingAddress is required")
		return
	}

	sessionID := sessionIDFrom(r.Context())
	userID := userIDFrom(r.Context())

	s.mu.Lock()
	cart := s.cartFor(sessionID)
	if cart.IsEmpty() {
		s.mu.Unlock()
		respondError(w, http.StatusBadRequest, "empty_cart", "Cannot checkout an empty cart")
		return
	}

	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           append([]domain.CartItem{}, cart.Items...),
		TotalAmount:     cart.TotalAmount,
		Status:          domain.OrderPending,
		ShippingAddress: req.ShippingAddress,
		Note:            req.Note,
		CreatedAt:       time.Now().UTC(),
	}
	// Newest first.
	s.orders[userID] = append([]*domain.Order{order}, s.orders[userID]...)
	s.ordersByID[order.ID] = order

	// Checkout consumes the cart.
	s.carts[sessionID] = domain.EmptyCart()
	placed := *order
	s.mu.Unlock()

	s.hub.notifyCartUpdated(sessionID)
	respond(w, http.StatusCreated, placed)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	s.mu.Lock()
	orders := make([]domain.Order, 0, len(s.orders[userID]))
	for _, o := range s.orders[userID] {
		orders = append(orders, *o)
	}
	s.mu.Unlock()

	respond(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	userID := userIDFrom(r.Context())

	s.mu.Lock()
	order, ok := s.ordersByID[orderID]
	var snapshot domain.Order
	if ok && order.UserID == userID {
		snapshot = *order
	} else {
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "order_not_found", "Order not found")
		return
	}
	respond(w, http.StatusOK, snapshot)
}
