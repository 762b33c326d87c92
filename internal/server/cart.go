package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pantry-shop/internal/domain"
)

type cartPayload struct {
	Cart *domain.Cart     `json:"cart"`
	Item *domain.CartItem `json:"item,omitempty"`
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r.Context())

	s.mu.Lock()
	cart := cloneCart(s.cartFor(sessionID))
	s.mu.Unlock()

	respond(w, http.StatusOK, cartPayload{Cart: cart})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
		VariantID string `json:"variantId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_input", "productId and a positive quantity are required")
		return
	}

	product, variant := s.findVariant(req.ProductID, req.VariantID)
	if product == nil || variant == nil {
		respondError(w, http.StatusNotFound, "product_not_found", "Unknown product or variant")
		return
	}
	if !variant.InStock {
		respondError(w, http.StatusBadRequest, "out_of_stock", "Variant is out of stock")
		return
	}

	sessionID := sessionIDFrom(r.Context())

	s.mu.Lock()
	cart := s.cartFor(sessionID)

	var line *domain.CartItem
	for i := range cart.Items {
		if cart.Items[i].ProductID == req.ProductID && cart.Items[i].VariantID == req.VariantID {
			cart.Items[i].Quantity += req.Quantity
			line = &cart.Items[i]
			break
		}
	}
	if line == nil {
		cart.Items = append(cart.Items, domain.CartItem{
			ID:           uuid.NewString(),
			ProductID:    product.ID,
			ProductName:  product.Name,
			VariantID:    variant.ID,
			VariantName:  variant.Name,
			Quantity:     req.Quantity,
			RegularPrice: variant.Price,
			PromoPrice:   variant.PromoPrice,
		})
		line = &cart.Items[len(cart.Items)-1]
	}
	cart.Recompute()
	item := *line
	snapshot := cloneCart(cart)
	s.mu.Unlock()

	s.hub.notifyCartUpdated(sessionID)
	respond(w, http.StatusOK, cartPayload{Cart: snapshot, Item: &item})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_input", "A positive quantity is required")
		return
	}

	sessionID := sessionIDFrom(r.Context())

	s.mu.Lock()
	cart := s.cartFor(sessionID)
	found := false
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items[i].Quantity = req.Quantity
			found = true
			break
		}
	}
	if found {
		cart.Recompute()
	}
	snapshot := cloneCart(cart)
	s.mu.Unlock()

	if !found {
		respondError(w, http.StatusNotFound, "item_not_found", "Cart item not found")
		return
	}

	s.hub.notifyCartUpdated(sessionID)
	respond(w, http.StatusOK, cartPayload{Cart: snapshot})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	sessionID := sessionIDFrom(r.Context())

	s.mu.Lock()
	cart := s.cartFor(sessionID)
	found := false
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			found = true
			break
		}
	}
	if found {
		cart.Recompute()
	}
	snapshot := cloneCart(cart)
	s.mu.Unlock()

	if !found {
		respondError(w, http.StatusNotFound, "item_not_found", "Cart item not found")
		return
	}

	s.hub.notifyCartUpdated(sessionID)
	respond(w, http.StatusOK, cartPayload{Cart: snapshot})
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r.Context())

	s.mu.Lock()
	s.carts[sessionID] = domain.EmptyCart()
	snapshot := cloneCart(s.carts[sessionID])
	s.mu.Unlock()

	s.hub.notifyCartUpdated(sessionID)
	respond(w, http.StatusOK, cartPayload{Cart: snapshot})
}

func (s *Server) handleMergeCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy       string `json:"strategy"`
		GuestSessionID string `json:"guestSessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	strategy := domain.MergeStrategy(req.Strategy)
	if !strategy.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_strategy", "strategy must be merge, replace or keep_existing")
		return
	}
	if req.GuestSessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_input", "guestSessionId is required")
		return
	}

	sessionID := sessionIDFrom(r.Context())

	s.mu.Lock()
	userCart := s.cartFor(sessionID)
	guestCart := s.carts[req.GuestSessionID]
	if guestCart == nil {
		guestCart = domain.EmptyCart()
	}

	merged := mergeCarts(userCart, guestCart, strategy)
	s.carts[sessionID] = merged
	// The guest cart is consumed by the merge regardless of strategy.
	delete(s.carts, req.GuestSessionID)
	snapshot := cloneCart(merged)
	s.mu.Unlock()

	s.hub.notifyCartUpdated(sessionID)
	respond(w, http.StatusOK, cartPayload{Cart: snapshot})
}

// mergeCarts applies the chosen strategy. merge unions both carts and sums
// quantities of matching product+variant lines; replace keeps the guest cart;
// keep_existing keeps the user cart.
func mergeCarts(userCart, guestCart *domain.Cart, strategy domain.MergeStrategy) *domain.Cart {
	var result *domain.Cart
	switch strategy {
	case domain.StrategyReplace:
		result = cloneCart(guestCart)
	case domain.StrategyKeepExisting:
		result = cloneCart(userCart)
	default:
		result = cloneCart(userCart)
		for _, guestItem := range guestCart.Items {
			matched := false
			for i := range result.Items {
				if result.Items[i].ProductID == guestItem.ProductID && result.Items[i].VariantID == guestItem.VariantID {
					result.Items[i].Quantity += guestItem.Quantity
					matched = true
					break
				}
			}
			if !matched {
				result.Items = append(result.Items, guestItem)
			}
		}
	}
	result.Recompute()
	return result
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := domain.EmptyCart()
	out.Items = append(out.Items, c.Items...)
	out.ItemCount = c.ItemCount
	out.TotalAmount = c.TotalAmount
	return out
}

func (s *Server) findVariant(productID, variantID string) (*domain.Product, *domain.Variant) {
	for i := range s.products {
		if s.products[i].ID != productID {
			continue
		}
		if variantID == "" && len(s.products[i].Variants) > 0 {
			return &s.products[i], &s.products[i].Variants[0]
		}
		for j := range s.products[i].Variants {
			if s.products[i].Variants[j].ID == variantID {
				return &s.products[i], &s.products[i].Variants[j]
			}
		}
		return nil, nil
	}
	return nil, nil
}
