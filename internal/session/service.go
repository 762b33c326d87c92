package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"pantry-shop/internal/api"
	"pantry-shop/internal/domain"
	"pantry-shop/internal/eventbus"
	"pantry-shop/internal/observability"
)

// Service runs the authentication flows against the backend and drives the
// manager's transitions. It also implements api.Refresher: concurrent
// refresh demands collapse into a single backend call whose outcome every
// caller shares.
type Service struct {
	client  *api.Client
	manager *Manager
	bus     *eventbus.Bus
	refresh singleflight.Group
}

// NewService wires the service and registers it as the client's refresher.
func NewService(client *api.Client, manager *Manager, bus *eventbus.Bus) *Service {
	s := &Service{client: client, manager: manager, bus: bus}
	client.SetRefresher(s)
	return s
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Login authenticates and transitions the session. The transition event is
// emitted only after the server acknowledged the login exchange, so cart
// listeners may reload as soon as the payload's Settled channel allows.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	var res domain.AuthResult
	if err := s.client.DoOnce(ctx, "POST", api.PathLogin, credentials{Email: email, Password: password}, &res); err != nil {
		return nil, err
	}

	if err := s.finishAuth(&res); err != nil {
		return nil, err
	}
	return res.User, nil
}

// Register creates an account and transitions the session like a login.
func (s *Service) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	var res domain.AuthResult
	if err := s.client.DoOnce(ctx, "POST", api.PathRegister, credentials{Email: email, Password: password, Name: name}, &res); err != nil {
		return nil, err
	}

	if err := s.finishAuth(&res); err != nil {
		return nil, err
	}
	return res.User, nil
}

func (s *Service) finishAuth(res *domain.AuthResult) error {
	// The login HTTP exchange, including any server-side merge-on-login
	// work, is complete by the time the response is decoded; the settled
	// channel closes before the transition is announced.
	settled := make(chan struct{})
	close(settled)

	if err := s.manager.BeginAuthenticated(res, settled); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Emit(eventbus.LoginSucceeded, eventbus.LoginPayload{User: res.User})
	}
	return nil
}

// Logout revokes the refresh credential server-side (best effort) and
// transitions back to guest.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.client.DoOnce(ctx, "POST", api.PathLogout, nil, nil); err != nil {
		slog.Warn("server-side logout failed, proceeding locally", slog.String("error", err.Error()))
	}
	if err := s.manager.BeginGuest(); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Emit(eventbus.LoggedOut, nil)
	}
	return nil
}

// Profile fetches the authenticated user's account.
func (s *Service) Profile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := s.client.Get(ctx, api.PathMe, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile updates mutable account fields.
func (s *Service) UpdateProfile(ctx context.Context, name string) (*domain.User, error) {
	var user domain.User
	body := map[string]string{"name": name}
	if err := s.client.Put(ctx, api.PathMe, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureValidToken refreshes the credential if one exists and is expired.
// No credential at all is fine: the caller is simply a guest.
func (s *Service) EnsureValidToken(ctx context.Context) error {
	if !s.manager.HasAccessToken() {
		return nil
	}
	if !s.manager.IsTokenExpired() {
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh performs at most one in-flight refresh; concurrent callers wait on
// it and share its outcome. On failure local credentials are wiped, the
// session drops to guest, and a session-expired error is returned.
func (s *Service) Refresh(ctx context.Context) error {
	_, err, _ := s.refresh.Do("refresh", func() (any, error) {
		return nil, s.doRefresh(ctx)
	})
	return err
}

func (s *Service) doRefresh(ctx context.Context) error {
	refreshToken, ok := s.manager.RefreshToken()
	if !ok {
		observability.TokenRefreshesTotal.WithLabelValues("no_token").Inc()
		return s.expire(nil)
	}

	var res domain.AuthResult
	body := map[string]string{"refreshToken": refreshToken}
	if err := s.client.DoOnce(ctx, "POST", api.PathRefresh, body, &res); err != nil {
		observability.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		slog.Warn("token refresh failed", slog.String("error", err.Error()))
		return s.expire(err)
	}

	if err := s.manager.UpdateTokens(&res); err != nil {
		observability.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		return s.expire(err)
	}

	observability.TokenRefreshesTotal.WithLabelValues("success").Inc()
	s.manager.Reconcile()
	slog.Debug("access token refreshed")
	return nil
}

// expire wipes local credentials, announces expiry and returns the terminal
// session-expired error.
func (s *Service) expire(cause error) error {
	if err := s.manager.BeginGuest(); err != nil {
		slog.Error("failed to reset session after refresh failure", slog.String("error", err.Error()))
	}
	if s.bus != nil {
		s.bus.Emit(eventbus.SessionExpired, nil)
	}
	return &api.Error{
		Kind:    api.KindSessionExpired,
		Message: "session expired, please log in again",
		Err:     cause,
	}
}
