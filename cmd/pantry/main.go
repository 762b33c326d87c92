// Package main provides the pantry storefront CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pantry-shop/internal/api"
	"pantry-shop/internal/cart"
	"pantry-shop/internal/catalog"
	"pantry-shop/internal/config"
	"pantry-shop/internal/eventbus"
	"pantry-shop/internal/observability"
	"pantry-shop/internal/order"
	"pantry-shop/internal/session"
	"pantry-shop/internal/storage"
)

var version = "0.1.0"

// app holds the wired client stack shared by all commands.
type app struct {
	cfg      *config.Config
	store    storage.Store
	bus      *eventbus.Bus
	manager  *session.Manager
	client   *api.Client
	auth     *session.Service
	cart     *cart.Store
	resolver *cart.Resolver
	catalog  *catalog.Client
	orders   *order.Client
}

func newApp() (*app, error) {
	cfg := config.Load()
	observability.InitLogger(cfg.LogLevel, "text")

	store, err := storage.NewSQLite(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	bus := eventbus.New()
	manager := session.NewManager(store, bus)
	client := api.New(cfg.BackendURL, cfg.RequestTimeout, manager)
	auth := session.NewService(client, manager, bus)

	if err := manager.Initialize(); err != nil {
		store.Close()
		return nil, err
	}

	cartStore := cart.NewStore(client, manager, bus, cart.PricingRules{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
	})

	return &app{
		cfg:      cfg,
		store:    store,
		bus:      bus,
		manager:  manager,
		client:   client,
		auth:     auth,
		cart:     cartStore,
		resolver: cart.NewResolver(cartStore, manager, terminalNotifier{}),
		catalog:  catalog.New(client),
		orders:   order.New(client),
	}, nil
}

func (a *app) close() {
	a.cart.Close()
	_ = a.store.Close()
}

// ensureFreshToken refreshes an expired credential before a command runs.
// A terminal expiry is not fatal here; the command itself will surface it.
func (a *app) ensureFreshToken(ctx context.Context) {
	_ = a.auth.EnsureValidToken(ctx)
}

func main() {
	var a *app

	rootCmd := &cobra.Command{
		Use:     "pantry",
		Short:   "Pantry grocery storefront client",
		Version: version,
		Long: `pantry is the command line storefront: browse the catalog, manage a
cart as a guest or signed in, and place orders. Guest carts survive login
and can be combined with a saved cart.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}

	rootCmd.AddCommand(
		loginCmd(&a),
		registerCmd(&a),
		logoutCmd(&a),
		whoamiCmd(&a),
		sessionCmd(&a),
		productsCmd(&a),
		cartCmd(&a),
		checkoutCmd(&a),
		ordersCmd(&a),
		watchCmd(&a),
	)

	if err := rootCmd.Execute(); err != nil {
		fail(err)
		os.Exit(1)
	}
}
