// Package server is the in-memory development backend for the storefront
// client. It implements the full REST contract the client speaks: auth with
// short-lived access tokens and rotating refresh tokens, session-scoped
// carts with guest merge, a seeded product catalog, orders, and a WebSocket
// update feed.
package server

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pantry-shop/internal/config"
	"pantry-shop/internal/domain"
)

type account struct {
	user         domain.User
	passwordHash []byte
	// sessionID is stable per account so the authenticated cart survives
	// logout and re-login.
	sessionID string
}

type Server struct {
	cfg     *config.Config
	signKey []byte
	router  chi.Router
	hub     *hub
	limiter *rateLimiter

	mu            sync.Mutex
	usersByEmail  map[string]*account
	usersByID     map[string]*account
	refreshTokens map[string]string // refresh token -> user id
	carts         map[string]*domain.Cart
	orders        map[string][]*domain.Order // user id -> orders, newest first
	ordersByID    map[string]*domain.Order
	products      []domain.Product
}

func New(cfg *config.Config) (*Server, error) {
	s := &Server{
		cfg:           cfg,
		signKey:       []byte(cfg.TokenSigningSecret),
		hub:           newHub(),
		limiter:       newRateLimiter(10, 20),
		usersByEmail:  make(map[string]*account),
		usersByID:     make(map[string]*account),
		refreshTokens: make(map[string]string),
		carts:         make(map[string]*domain.Cart),
		orders:        make(map[string][]*domain.Order),
		ordersByID:    make(map[string]*domain.Order),
		products:      seedProducts(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	if validator, err := newOpenAPIValidator(cfg.OpenAPISpecPath); err == nil {
		r.Use(validator)
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/updates", s.hub.serveWS)

	r.Route("/auth", func(r chi.Router) {
		r.Use(s.limiter.middleware)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireAuth).Get("/me", s.handleProfile)
		r.With(s.requireAuth).Put("/me", s.handleUpdateProfile)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/", s.handleGetCart)
		r.Post("/", s.handleAddItem)
		r.Delete("/", s.handleClearCart)
		r.Put("/items/{itemID}", s.handleUpdateItem)
		r.Delete("/items/{itemID}", s.handleRemoveItem)
		r.With(s.requireAuth).Post("/merge", s.handleMergeCart)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.handleListProducts)
		r.Get("/{productID}", s.handleGetProduct)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Use(s.requireAuth)
		r.Post("/", s.handleCheckout)
		r.Get("/", s.handleListOrders)
		r.Get("/{orderID}", s.handleGetOrder)
	})

	s.router = r
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

// Close stops background workers.
func (s *Server) Close() { s.limiter.Stop() }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cartFor returns the cart stored under sessionID, or an empty one.
// Caller must hold s.mu.
func (s *Server) cartFor(sessionID string) *domain.Cart {
	if c, ok := s.carts[sessionID]; ok {
		return c
	}
	c := domain.EmptyCart()
	s.carts[sessionID] = c
	return c
}
