package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantry-shop/internal/api"
	"pantry-shop/internal/domain"
	"pantry-shop/internal/eventbus"
	"pantry-shop/internal/storage"
)

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 400, "data": data})
}

func writeEnvelopeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func newTestService(t *testing.T, handler http.Handler) (*Service, *Manager, *eventbus.Bus, func()) {
	t.Helper()

	srv := httptest.NewServer(handler)

	store := storage.NewMemory()
	bus := eventbus.New()
	manager := NewManager(store, bus)
	require.NoError(t, manager.Initialize())

	client := api.New(srv.URL, 5*time.Second, manager)
	service := NewService(client, manager, bus)
	return service, manager, bus, srv.Close
}

func authResponse(t *testing.T, userID, sessionID string) domain.AuthResult {
	t.Helper()
	return domain.AuthResult{
		User:      &domain.User{ID: userID, Email: "a@b.c", Name: "A"},
		SessionID: sessionID,
		UserID:    userID,
		Tokens: domain.Tokens{
			AccessToken:  signedToken(t, userID, sessionID, time.Now().Add(15*time.Minute)),
			RefreshToken: "refresh-abc",
			ExpiresIn:    900,
		},
	}
}

func TestLoginTransitionsAndEmits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.c", body["email"])
		writeEnvelope(w, http.StatusOK, authResponse(t, "user-1", "sess-1"))
	})

	service, manager, bus, done := newTestService(t, mux)
	defer done()

	var events []eventbus.Event
	var mu sync.Mutex
	record := func(event eventbus.Event) func(any) {
		return func(any) {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		}
	}
	bus.On(eventbus.SessionTransition, record(eventbus.SessionTransition))
	bus.On(eventbus.LoginSucceeded, record(eventbus.LoginSucceeded))

	user, err := service.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.True(t, manager.IsAuthenticated())

	mu.Lock()
	defer mu.Unlock()
	// The transition fires before the login event.
	require.Equal(t, []eventbus.Event{eventbus.SessionTransition, eventbus.LoginSucceeded}, events)
}

func TestLoginValidatesInput(t *testing.T) {
	service, _, _, done := newTestService(t, http.NewServeMux())
	defer done()

	_, err := service.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = service.Login(context.Background(), "a@b.c", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoginBadCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	})

	service, manager, _, done := newTestService(t, mux)
	defer done()

	_, err := service.Login(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.Equal(t, api.KindAuth, api.KindOf(err))
	assert.False(t, manager.IsAuthenticated())
}

func TestRefreshCollapsesConcurrentCalls(t *testing.T) {
	var refreshCalls int64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		time.Sleep(100 * time.Millisecond) // hold concurrent callers in flight
		writeEnvelope(w, http.StatusOK, authResponse(t, "user-1", "sess-1"))
	})

	service, manager, _, done := newTestService(t, mux)
	defer done()

	require.NoError(t, manager.UpdateTokens(&domain.AuthResult{
		Tokens: domain.Tokens{AccessToken: "stale", RefreshToken: "refresh-abc", ExpiresIn: 0},
	}))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = service.Refresh(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&refreshCalls))
	assert.True(t, manager.IsAuthenticated(), "reconcile flips to authenticated after refresh")
}

func TestRefreshFailureExpiresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, http.StatusUnauthorized, "invalid_refresh_token", "revoked")
	})

	service, manager, bus, done := newTestService(t, mux)
	defer done()

	require.NoError(t, manager.BeginAuthenticated(&domain.AuthResult{
		SessionID: "sess-1",
		UserID:    "user-1",
		Tokens:    domain.Tokens{AccessToken: "stale", RefreshToken: "refresh-abc", ExpiresIn: 0},
	}, nil))

	expired := 0
	bus.On(eventbus.SessionExpired, func(any) { expired++ })

	err := service.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsSessionExpired(err))
	assert.Equal(t, 1, expired)
	assert.False(t, manager.IsAuthenticated())
	assert.False(t, manager.HasAccessToken(), "credentials are wiped")
}

func TestRefreshWithoutRefreshTokenExpires(t *testing.T) {
	service, manager, _, done := newTestService(t, http.NewServeMux())
	defer done()

	err := service.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsSessionExpired(err))
	assert.False(t, manager.IsAuthenticated())
}

func TestEnsureValidTokenIsNoopForGuests(t *testing.T) {
	service, _, _, done := newTestService(t, http.NewServeMux())
	defer done()

	assert.NoError(t, service.EnsureValidToken(context.Background()))
}

func TestLogoutSurvivesServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelopeError(w, http.StatusInternalServerError, "internal", "boom")
	})

	service, manager, bus, done := newTestService(t, mux)
	defer done()

	require.NoError(t, manager.BeginAuthenticated(&domain.AuthResult{
		SessionID: "sess-1",
		UserID:    "user-1",
		Tokens:    domain.Tokens{AccessToken: "tok", RefreshToken: "ref", ExpiresIn: 900},
	}, nil))

	loggedOut := 0
	bus.On(eventbus.LoggedOut, func(any) { loggedOut++ })

	require.NoError(t, service.Logout(context.Background()))
	assert.False(t, manager.IsAuthenticated())
	assert.Equal(t, 1, loggedOut)
}
