// Package cart caches and mutates the authoritative server-side cart for
// whichever session is current. The cached cart is always a wholesale
// transcription of a backend response; the only cart the client ever invents
// is the empty one.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"pantry-shop/internal/api"
	"pantry-shop/internal/domain"
	"pantry-shop/internal/eventbus"
	"pantry-shop/internal/observability"
)

// SessionSource is the slice of the session manager the cart store needs.
type SessionSource interface {
	GuestMergeID() string
	ClearGuestMergeID()
}

// AddItemParams identifies the line to add.
type AddItemParams struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// cartResponse is the wire shape of every cart endpoint.
type cartResponse struct {
	Cart *domain.Cart     `json:"cart"`
	Item *domain.CartItem `json:"item,omitempty"`
}

// Store holds the cached cart and performs all cart mutations.
type Store struct {
	client  *api.Client
	session SessionSource
	bus     *eventbus.Bus
	rules   PricingRules

	mu      sync.Mutex
	cart    *domain.Cart
	loading bool

	unsubscribe []func()
}

// NewStore creates a cart store and subscribes it to the session events it
// reacts to. Call Close to detach.
func NewStore(client *api.Client, session SessionSource, bus *eventbus.Bus, rules PricingRules) *Store {
	s := &Store{
		client:  client,
		session: session,
		bus:     bus,
		rules:   rules,
		cart:    domain.EmptyCart(),
	}
	if bus != nil {
		s.unsubscribe = append(s.unsubscribe,
			bus.On(eventbus.SessionTransition, s.onTransition),
			bus.On(eventbus.SessionCleared, s.onCleared),
			bus.On(eventbus.CartSyncRequested, s.onSyncRequested),
		)
	}
	return s
}

// Close detaches the store from the event bus.
func (s *Store) Close() {
	for _, unsub := range s.unsubscribe {
		unsub()
	}
}

// onTransition reloads the cart once the transition's server-side effects
// are acknowledged complete. Waiting on Settled replaces the fixed delay the
// flow historically used; there is no timer to race.
func (s *Store) onTransition(payload any) {
	transition, ok := payload.(eventbus.TransitionPayload)
	if !ok {
		return
	}
	go func() {
		if transition.Settled != nil {
			<-transition.Settled
		}
		if _, err := s.Load(context.Background()); err != nil {
			slog.Warn("cart reload after session transition failed", slog.String("error", err.Error()))
		}
	}()
}

// onCleared resets to the empty shape without touching the backend: after a
// full session clear there is no backend identity left to query.
func (s *Store) onCleared(any) {
	s.mu.Lock()
	s.cart = domain.EmptyCart()
	s.mu.Unlock()
}

func (s *Store) onSyncRequested(any) {
	go func() {
		if _, err := s.Load(context.Background()); err != nil {
			slog.Warn("requested cart sync failed", slog.String("error", err.Error()))
		}
	}()
}

// Cart returns the cached cart.
func (s *Store) Cart() *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// Loading reports whether an operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ItemCount returns the cached cart's derived item count.
func (s *Store) ItemCount() int { return s.Cart().ItemCount }

// TotalAmount returns the cached cart's derived total.
func (s *Store) TotalAmount() float64 { return s.Cart().TotalAmount }

// IsEmpty reports whether the cached cart has no items.
func (s *Store) IsEmpty() bool { return s.Cart().IsEmpty() }

// Totals derives the checkout totals from the cached cart.
func (s *Store) Totals() Totals {
	return CalculateTotals(s.Cart(), s.rules)
}

// Load fetches the current session's cart. On any failure the cache falls
// back to the canonical empty cart rather than keeping stale state.
func (s *Store) Load(ctx context.Context) (*domain.Cart, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	var res cartResponse
	if err := s.client.Get(ctx, api.PathCart, &res); err != nil {
		observability.CartOperationsTotal.WithLabelValues("load", "failure").Inc()
		s.replace(domain.EmptyCart())
		return s.Cart(), err
	}

	observability.CartOperationsTotal.WithLabelValues("load", "success").Inc()
	s.replace(res.Cart)
	return s.Cart(), nil
}

// AddItem adds a line to the cart. Missing identifiers or a non-positive
// quantity fail fast without a backend round-trip.
func (s *Store) AddItem(ctx context.Context, params AddItemParams) (*domain.Cart, error) {
	if params.ProductID == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidInput)
	}
	if params.VariantID == "" {
		return nil, fmt.Errorf("%w: variant id is required", domain.ErrInvalidInput)
	}
	if params.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}

	s.setLoading(true)
	defer s.setLoading(false)

	var res cartResponse
	if err := s.client.Post(ctx, api.PathCart, params, &res); err != nil {
		observability.CartOperationsTotal.WithLabelValues("add_item", "failure").Inc()
		return nil, err
	}

	observability.CartOperationsTotal.WithLabelValues("add_item", "success").Inc()
	s.replace(res.Cart)
	if s.bus != nil && res.Item != nil {
		s.bus.Emit(eventbus.CartItemAdded, eventbus.ItemAddedPayload{Item: *res.Item, Cart: s.Cart()})
	}
	return s.Cart(), nil
}

// UpdateItem changes the quantity of an existing line.
func (s *Store) UpdateItem(ctx context.Context, itemID string, quantity int) (*domain.Cart, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", domain.ErrInvalidInput)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}

	s.setLoading(true)
	defer s.setLoading(false)

	var res cartResponse
	body := map[string]int{"quantity": quantity}
	if err := s.client.Put(ctx, api.CartItemPath(itemID), body, &res); err != nil {
		observability.CartOperationsTotal.WithLabelValues("update_item", "failure").Inc()
		return nil, err
	}

	observability.CartOperationsTotal.WithLabelValues("update_item", "success").Inc()
	s.replace(res.Cart)
	return s.Cart(), nil
}

// RemoveItem deletes a line.
func (s *Store) RemoveItem(ctx context.Context, itemID string) (*domain.Cart, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", domain.ErrInvalidInput)
	}

	s.setLoading(true)
	defer s.setLoading(false)

	var res cartResponse
	if err := s.client.Delete(ctx, api.CartItemPath(itemID), &res); err != nil {
		observability.CartOperationsTotal.WithLabelValues("remove_item", "failure").Inc()
		return nil, err
	}

	observability.CartOperationsTotal.WithLabelValues("remove_item", "success").Inc()
	s.replace(res.Cart)
	return s.Cart(), nil
}

// Clear empties the cart server-side and replaces the cache with the result.
func (s *Store) Clear(ctx context.Context) (*domain.Cart, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	var res cartResponse
	if err := s.client.Delete(ctx, api.PathCart, &res); err != nil {
		observability.CartOperationsTotal.WithLabelValues("clear", "failure").Inc()
		return nil, err
	}

	observability.CartOperationsTotal.WithLabelValues("clear", "success").Inc()
	s.replace(res.Cart)
	return s.Cart(), nil
}

// Merge reconciles the pre-login guest cart with the authenticated cart
// using the given strategy. The guest session id comes from the override
// when given, otherwise from the session manager's retained merge id. The
// retained id is cleared after the attempt, success or failure, so the same
// guest cart can never be merged twice.
func (s *Store) Merge(ctx context.Context, strategy domain.MergeStrategy, guestSessionIDOverride string) (*domain.Cart, error) {
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}

	guestSessionID := guestSessionIDOverride
	if guestSessionID == "" {
		guestSessionID = s.session.GuestMergeID()
	}
	if guestSessionID == "" {
		return nil, fmt.Errorf("%w: no guest cart to merge", domain.ErrInvalidInput)
	}
	defer s.session.ClearGuestMergeID()

	s.setLoading(true)
	defer s.setLoading(false)

	var res cartResponse
	body := map[string]string{
		"strategy":       string(strategy),
		"guestSessionId": guestSessionID,
	}
	if err := s.client.Do(ctx, http.MethodPost, api.PathCartMerge, body, &res); err != nil {
		observability.CartOperationsTotal.WithLabelValues("merge", "failure").Inc()
		return nil, err
	}

	observability.CartOperationsTotal.WithLabelValues("merge", "success").Inc()
	s.replace(res.Cart)
	if s.bus != nil {
		s.bus.Emit(eventbus.CartSynced, eventbus.SyncedPayload{Cart: s.Cart(), Strategy: strategy})
	}
	return s.Cart(), nil
}

// replace swaps the cache wholesale with a backend payload.
func (s *Store) replace(cart *domain.Cart) {
	if cart == nil {
		cart = domain.EmptyCart()
	}
	s.mu.Lock()
	s.cart = cart
	s.mu.Unlock()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
