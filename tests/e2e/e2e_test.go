// Package e2e runs the full client stack against an in-process backend:
// real HTTP, real tokens, real merge semantics. No mocks on either side.
package e2e

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-shop/internal/api"
	"pantry-shop/internal/cart"
	"pantry-shop/internal/catalog"
	"pantry-shop/internal/config"
	"pantry-shop/internal/domain"
	"pantry-shop/internal/eventbus"
	"pantry-shop/internal/order"
	"pantry-shop/internal/push"
	"pantry-shop/internal/server"
	"pantry-shop/internal/session"
	"pantry-shop/internal/storage"
)

func startBackend(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		TokenSigningSecret: "e2e-signing-secret-for-tests-only",
		AccessTokenTTL:     15 * time.Minute,
		OpenAPISpecPath:    "../../api/openapi.yaml",
	}
	backend, err := server.New(cfg)
	require.NoError(t, err)
	t.Cleanup(backend.Close)

	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// clientStack is everything a storefront process wires at startup.
type clientStack struct {
	store    *storage.MemoryStore
	bus      *eventbus.Bus
	manager  *session.Manager
	client   *api.Client
	auth     *session.Service
	cart     *cart.Store
	resolver *cart.Resolver
	catalog  *catalog.Client
	orders   *order.Client
}

// newClientStack boots a client over the given durable store, the way a
// restarted process would re-open its state directory.
func newClientStack(t *testing.T, backendURL string, store *storage.MemoryStore) *clientStack {
	t.Helper()

	bus := eventbus.New()
	manager := session.NewManager(store, bus)
	client := api.New(backendURL, 5*time.Second, manager)
	auth := session.NewService(client, manager, bus)
	require.NoError(t, manager.Initialize())

	cartStore := cart.NewStore(client, manager, bus, cart.DefaultPricingRules())
	t.Cleanup(cartStore.Close)

	return &clientStack{
		store:    store,
		bus:      bus,
		manager:  manager,
		client:   client,
		auth:     auth,
		cart:     cartStore,
		resolver: cart.NewResolver(cartStore, manager, nil),
		catalog:  catalog.New(client),
		orders:   order.New(client),
	}
}

func TestGuestShoppingJourney(t *testing.T) {
	backend := startBackend(t)
	app := newClientStack(t, backend.URL, storage.NewMemory())
	ctx := context.Background()

	assert.False(t, app.manager.IsAuthenticated())
	assert.True(t, strings.HasPrefix(app.manager.SessionID(), "guest_"))

	products, err := app.catalog.List(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, products)

	pantry, err := app.catalog.List(ctx, "pantry")
	require.NoError(t, err)
	for _, p := range pantry {
		assert.Equal(t, "pantry", p.Category)
	}

	product, err := app.catalog.Get(ctx, "prod-pasta")
	require.NoError(t, err)
	require.NotEmpty(t, product.Variants)

	current, err := app.cart.AddItem(ctx, cart.AddItemParams{
		ProductID: product.ID,
		VariantID: product.Variants[0].ID,
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, current.ItemCount)

	// The cache mirrors the backend payload exactly.
	reloaded, err := app.cart.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, current.Items, reloaded.Items)
	assert.Equal(t, current.TotalAmount, reloaded.TotalAmount)

	line := app.cart.FindItem(product.ID, product.Variants[0].ID)
	require.NotNil(t, line)
	assert.Equal(t, 2, line.Quantity)

	totals := app.cart.Totals()
	assert.InDelta(t, reloaded.TotalAmount, totals.Subtotal, 1e-9)
	assert.Greater(t, totals.Shipping, 0.0, "small order pays shipping")
}

func TestLoginMergeAndCheckout(t *testing.T) {
	backend := startBackend(t)
	app := newClientStack(t, backend.URL, storage.NewMemory())
	ctx := context.Background()

	// Build up a saved cart on the account first.
	_, err := app.auth.Register(ctx, "merge@example.com", "long-enough-password", "Merge Tester")
	require.NoError(t, err)
	_, err = app.cart.AddItem(ctx, cart.AddItemParams{ProductID: "prod-pasta", VariantID: "var-pasta-500", Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, app.auth.Logout(ctx))

	// Shop as a guest.
	_, err = app.cart.AddItem(ctx, cart.AddItemParams{ProductID: "prod-pasta", VariantID: "var-pasta-500", Quantity: 1})
	require.NoError(t, err)
	_, err = app.cart.AddItem(ctx, cart.AddItemParams{ProductID: "prod-honey", VariantID: "var-honey-340", Quantity: 1})
	require.NoError(t, err)

	// Log back in; the guest cart identity is retained for the merge.
	_, err = app.auth.Login(ctx, "merge@example.com", "long-enough-password")
	require.NoError(t, err)
	require.True(t, app.resolver.CheckConflict())

	merged, err := app.resolver.Resolve(ctx, domain.StrategyMerge, true)
	require.NoError(t, err)

	// 2x pasta saved + 1x pasta + 1x honey from the guest run.
	assert.Equal(t, 4, merged.ItemCount)
	assert.Len(t, merged.Items, 2)
	assert.False(t, app.resolver.CheckConflict(), "the merge id is consumed")

	placed, err := app.orders.Checkout(ctx, order.CheckoutParams{ShippingAddress: "12 Harbour Lane"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, placed.Status)
	assert.InDelta(t, merged.TotalAmount, placed.TotalAmount, 1e-9)

	// Checkout consumed the server-side cart.
	after, err := app.cart.Load(ctx)
	require.NoError(t, err)
	assert.True(t, after.IsEmpty())

	orders, err := app.orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, placed.ID, orders[0].ID)
}

func TestMergeDeclinedKeepsExisting(t *testing.T) {
	backend := startBackend(t)
	app := newClientStack(t, backend.URL, storage.NewMemory())
	ctx := context.Background()

	_, err := app.auth.Register(ctx, "keeper@example.com", "long-enough-password", "")
	require.NoError(t, err)
	_, err = app.cart.AddItem(ctx, cart.AddItemParams{ProductID: "prod-espresso", VariantID: "var-espresso-250", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, app.auth.Logout(ctx))

	_, err = app.cart.AddItem(ctx, cart.AddItemParams{ProductID: "prod-honey", VariantID: "var-honey-340", Quantity: 3})
	require.NoError(t, err)

	_, err = app.auth.Login(ctx, "keeper@example.com", "long-enough-password")
	require.NoError(t, err)

	kept, err := app.resolver.Resolve(ctx, domain.StrategyKeepExisting, true)
	require.NoError(t, err)

	require.Len(t, kept.Items, 1)
	assert.Equal(t, "prod-espresso", kept.Items[0].ProductID)
}

func TestSessionSurvivesRestart(t *testing.T) {
	backend := startBackend(t)
	store := storage.NewMemory()
	ctx := context.Background()

	first := newClientStack(t, backend.URL, store)
	user, err := first.auth.Register(ctx, "restart@example.com", "long-enough-password", "")
	require.NoError(t, err)
	_, err = first.cart.AddItem(ctx, cart.AddItemParams{ProductID: "prod-pasta", VariantID: "var-pasta-500", Quantity: 1})
	require.NoError(t, err)

	// Same durable store, fresh process.
	second := newClientStack(t, backend.URL, store)
	assert.True(t, second.manager.IsAuthenticated())
	assert.Equal(t, user.ID, second.manager.UserID())

	restored, err := second.cart.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.ItemCount)
}

func TestExpiredCredentialRefreshesTransparently(t *testing.T) {
	backend := startBackend(t)
	app := newClientStack(t, backend.URL, storage.NewMemory())
	ctx := context.Background()

	_, err := app.auth.Register(ctx, "stale@example.com", "long-enough-password", "")
	require.NoError(t, err)
	_, err = app.cart.AddItem(ctx, cart.AddItemParams{ProductID: "prod-pasta", VariantID: "var-pasta-500", Quantity: 1})
	require.NoError(t, err)

	// Corrupt the access token while keeping the refresh token valid: the
	// next authenticated call gets a 401, refreshes once and retries.
	require.NoError(t, app.store.Set(storage.KeyAccessToken, "no-longer-a-token"))

	orders, err := app.orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.True(t, app.manager.IsAuthenticated())

	// The stored credential was replaced by the refresh.
	token, err := app.store.Get(storage.KeyAccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, "no-longer-a-token", token)
}

func TestRevokedRefreshTokenDropsToGuest(t *testing.T) {
	backend := startBackend(t)
	app := newClientStack(t, backend.URL, storage.NewMemory())
	ctx := context.Background()

	_, err := app.auth.Register(ctx, "revoked@example.com", "long-enough-password", "")
	require.NoError(t, err)

	expired := 0
	app.bus.On(eventbus.SessionExpired, func(any) { expired++ })

	// Both credentials are now useless: the access token is garbage and the
	// refresh token is unknown to the backend.
	require.NoError(t, app.store.Set(storage.KeyAccessToken, "garbage"))
	require.NoError(t, app.store.Set(storage.KeyRefreshToken, "garbage"))

	_, err = app.orders.List(ctx)
	require.Error(t, err)
	assert.True(t, api.IsSessionExpired(err))
	assert.Equal(t, 1, expired)
	assert.False(t, app.manager.IsAuthenticated())
	assert.False(t, app.manager.HasAccessToken(), "wiped credentials")
}

func TestClearResetsToFreshGuest(t *testing.T) {
	backend := startBackend(t)
	app := newClientStack(t, backend.URL, storage.NewMemory())
	ctx := context.Background()

	_, err := app.auth.Register(ctx, "wipe@example.com", "long-enough-password", "")
	require.NoError(t, err)
	_, err = app.cart.AddItem(ctx, cart.AddItemParams{ProductID: "prod-honey", VariantID: "var-honey-340", Quantity: 1})
	require.NoError(t, err)
	oldSession := app.manager.SessionID()

	require.NoError(t, app.manager.Clear())

	assert.False(t, app.manager.IsAuthenticated())
	assert.NotEqual(t, oldSession, app.manager.SessionID())
	assert.True(t, app.cart.IsEmpty(), "a cleared session shows the empty cart without a fetch")
}

func TestPushUpdateTriggersCartSync(t *testing.T) {
	backend := startBackend(t)
	app := newClientStack(t, backend.URL, storage.NewMemory())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	synced := make(chan struct{}, 1)
	app.bus.On(eventbus.CartSyncRequested, func(any) {
		select {
		case synced <- struct{}{}:
		default:
		}
	})

	listener := push.NewListener(backend.URL, app.manager, app.bus)
	go listener.Run(ctx)

	// Give the listener a moment to connect before mutating the cart.
	time.Sleep(200 * time.Millisecond)

	_, err := app.cart.AddItem(ctx, cart.AddItemParams{ProductID: "prod-pasta", VariantID: "var-pasta-500", Quantity: 1})
	require.NoError(t, err)

	select {
	case <-synced:
	case <-time.After(3 * time.Second):
		t.Fatal("no cart sync request after a pushed update")
	}
}
