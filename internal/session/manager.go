// Package session owns the identity of the current actor: anonymous guest or
// authenticated user. It is the single reader/writer of the durable client
// state keys and the only source of request-authentication headers.
package session

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"pantry-shop/internal/domain"
	"pantry-shop/internal/eventbus"
	"pantry-shop/internal/observability"
	"pantry-shop/internal/storage"
)

// HeaderSessionID is the session-identifying header sent on every request.
const HeaderSessionID = "x-session-id"

// Manager is the process-wide session state machine. All mutation goes
// through its methods; other components never touch storage directly.
type Manager struct {
	mu    sync.Mutex
	store storage.Store
	bus   *eventbus.Bus
	now   func() time.Time

	typ     domain.SessionType
	guestID string
	// guestMergeID retains the guest session id that was current immediately
	// before the last guest->authenticated transition, until a merge consumes
	// it or it is explicitly abandoned.
	guestMergeID string
	// authSessionID/authUserID mirror the sid/sub claims of the active
	// credential when the backend returned them explicitly. Never persisted;
	// after a restart they are re-derived from the token.
	authSessionID string
	authUserID    string
}

// NewManager creates a manager over the given durable store and event bus.
// Call Initialize before use.
func NewManager(store storage.Store, bus *eventbus.Bus) *Manager {
	return &Manager{
		store: store,
		bus:   bus,
		now:   time.Now,
		typ:   domain.SessionGuest,
	}
}

// Initialize inspects persisted state and settles the starting identity:
// a valid stored credential starts authenticated; an expired one starts guest
// without discarding the credential (a later refresh may restore it); none
// starts guest with a restored-or-generated guest session id.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Keep any persisted guest id around as a fallback identity.
	if id, err := m.store.Get(storage.KeyGuestSessionID); err == nil && id != "" {
		m.guestID = id
	}

	token, err := m.store.Get(storage.KeyAccessToken)
	if err == nil && token != "" && !m.expiredLocked(token) {
		m.typ = domain.SessionAuthenticated
		slog.Debug("session initialized as authenticated")
		return nil
	}

	m.typ = domain.SessionGuest
	if err := m.ensureGuestIDLocked(); err != nil {
		return fmt.Errorf("initialize guest session: %w", err)
	}
	slog.Debug("session initialized as guest", slog.String("session_id", m.guestID))
	return nil
}

// Type returns the current identity kind.
func (m *Manager) Type() domain.SessionType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.typ
}

// IsAuthenticated reports whether the current identity is authenticated.
func (m *Manager) IsAuthenticated() bool {
	return m.Type() == domain.SessionAuthenticated
}

// SessionID returns the current cart-bearing session id. For guests this is
// the persisted guest id; for authenticated actors it is derived from the
// active credential each time, never independently stored. A malformed
// credential degrades to the guest id rather than failing.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionIDLocked()
}

func (m *Manager) sessionIDLocked() string {
	if m.typ == domain.SessionAuthenticated {
		if m.authSessionID != "" {
			return m.authSessionID
		}
		if token, err := m.store.Get(storage.KeyAccessToken); err == nil {
			if claims, err := decodeClaims(token); err == nil && claims.SessionID != "" {
				return claims.SessionID
			}
		}
	}
	return m.guestID
}

// UserID returns the authenticated user id, or "" for guests.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.typ != domain.SessionAuthenticated {
		return ""
	}
	if m.authUserID != "" {
		return m.authUserID
	}
	if token, err := m.store.Get(storage.KeyAccessToken); err == nil {
		if claims, err := decodeClaims(token); err == nil {
			return claims.UserID
		}
	}
	return ""
}

// Headers derives the request headers for outgoing API calls. It is a pure
// read: x-session-id always, and a bearer Authorization header whenever a
// credential exists in storage, regardless of the in-memory flag (storage is
// the source of truth; Reconcile repairs drift explicitly).
func (m *Manager) Headers() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	headers := map[string]string{
		HeaderSessionID: m.sessionIDLocked(),
	}
	if token, err := m.store.Get(storage.KeyAccessToken); err == nil && token != "" {
		headers["Authorization"] = "Bearer " + token
		// When storage says authenticated but the flag says guest, the
		// session id header should already follow the credential.
		if m.typ == domain.SessionGuest && !m.expiredLocked(token) {
			if claims, err := decodeClaims(token); err == nil && claims.SessionID != "" {
				headers[HeaderSessionID] = claims.SessionID
			}
		}
	}
	return headers
}

// Reconcile repairs state drift: if a valid credential sits in storage while
// the in-memory flag says guest (for example after an out-of-band refresh),
// flip to authenticated and announce the transition. Call at startup and
// after storage-affecting events, not inside request paths.
func (m *Manager) Reconcile() {
	m.mu.Lock()
	if m.typ == domain.SessionAuthenticated {
		m.mu.Unlock()
		return
	}
	token, err := m.store.Get(storage.KeyAccessToken)
	if err != nil || token == "" || m.expiredLocked(token) {
		m.mu.Unlock()
		return
	}

	from := m.identityLocked()
	m.typ = domain.SessionAuthenticated
	to := m.identityLocked()
	m.mu.Unlock()

	slog.Info("session reconciled to authenticated", slog.String("user_id", to.UserID))
	m.emitTransition(from, to, "", closedChan())
}

// HasAccessToken reports whether a credential exists in storage.
func (m *Manager) HasAccessToken() bool {
	token, err := m.store.Get(storage.KeyAccessToken)
	return err == nil && token != ""
}

// RefreshToken returns the stored refresh credential, if any.
func (m *Manager) RefreshToken() (string, bool) {
	token, err := m.store.Get(storage.KeyRefreshToken)
	return token, err == nil && token != ""
}

// IsTokenExpired checks the stored expiry stamp, falling back to the exp
// claim of the credential itself. Absence or any decode failure counts as
// expired.
func (m *Manager) IsTokenExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.store.Get(storage.KeyAccessToken)
	if err != nil || token == "" {
		return true
	}
	return m.expiredLocked(token)
}

func (m *Manager) expiredLocked(token string) bool {
	if stamp, err := m.store.Get(storage.KeyTokenExpiresAt); err == nil {
		if ms, err := strconv.ParseInt(stamp, 10, 64); err == nil {
			return !time.UnixMilli(ms).After(m.now())
		}
	}
	return tokenExpired(token, m.now())
}

// BeginAuthenticated transitions guest -> authenticated after a successful
// login or signup, capturing the outgoing guest session id for a later merge
// and persisting the issued credentials. settled must be closed once the
// server acknowledged the login-time work is complete; subscribers reloading
// state wait on it.
func (m *Manager) BeginAuthenticated(res *domain.AuthResult, settled <-chan struct{}) error {
	if settled == nil {
		settled = closedChan()
	}

	m.mu.Lock()
	from := m.identityLocked()
	if m.typ == domain.SessionGuest {
		m.guestMergeID = m.guestID
	}
	if err := m.persistTokensLocked(res.Tokens); err != nil {
		m.mu.Unlock()
		return err
	}
	m.typ = domain.SessionAuthenticated
	m.authSessionID = res.SessionID
	m.authUserID = res.UserID
	if m.authUserID == "" && res.User != nil {
		m.authUserID = res.User.ID
	}
	to := m.identityLocked()
	guestMergeID := m.guestMergeID
	m.mu.Unlock()

	slog.Info("session transition",
		slog.String("from", string(from.Type)),
		slog.String("to", string(to.Type)),
		slog.String("user_id", to.UserID))
	m.emitTransition(from, to, guestMergeID, settled)
	return nil
}

// BeginGuest transitions authenticated -> guest on logout or credential
// expiry. Credentials are removed from storage; the guest session id is
// reused if present, generated otherwise.
func (m *Manager) BeginGuest() error {
	m.mu.Lock()
	from := m.identityLocked()
	m.removeCredentialsLocked()
	m.typ = domain.SessionGuest
	m.authSessionID = ""
	m.authUserID = ""
	if err := m.ensureGuestIDLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	to := m.identityLocked()
	m.mu.Unlock()

	// Guest to guest is not a transition; nothing to announce.
	if from.Type == domain.SessionGuest {
		return nil
	}

	slog.Info("session transition",
		slog.String("from", string(from.Type)),
		slog.String("to", string(to.Type)))
	m.emitTransition(from, to, "", closedChan())
	return nil
}

// Clear wipes every persisted identifier and the retained merge id, then
// reinitializes as a fresh guest. This is the security-sensitive logout;
// listeners must treat it as "go to empty", not "reload".
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.removeCredentialsLocked()
	_ = m.store.Delete(storage.KeyGuestSessionID)
	m.guestID = ""
	m.guestMergeID = ""
	m.authSessionID = ""
	m.authUserID = ""
	m.typ = domain.SessionGuest
	if err := m.ensureGuestIDLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	newID := m.guestID
	m.mu.Unlock()

	slog.Info("session cleared", slog.String("session_id", newID))
	if m.bus != nil {
		m.bus.Emit(eventbus.SessionCleared, eventbus.ClearedPayload{NewGuestSessionID: newID})
	}
	return nil
}

// UpdateTokens persists a refreshed credential pair without a transition.
func (m *Manager) UpdateTokens(res *domain.AuthResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res.SessionID != "" {
		m.authSessionID = res.SessionID
	}
	if res.UserID != "" {
		m.authUserID = res.UserID
	}
	return m.persistTokensLocked(res.Tokens)
}

// GuestMergeID returns the retained pre-login guest session id, if any.
func (m *Manager) GuestMergeID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guestMergeID
}

// ClearGuestMergeID abandons the retained merge id so a merge cannot run
// twice against the same guest cart.
func (m *Manager) ClearGuestMergeID() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guestMergeID = ""
}

func (m *Manager) identityLocked() eventbus.Identity {
	id := eventbus.Identity{Type: m.typ, SessionID: m.sessionIDLocked()}
	if m.typ == domain.SessionAuthenticated {
		id.UserID = m.authUserID
		if id.UserID == "" {
			if token, err := m.store.Get(storage.KeyAccessToken); err == nil {
				if claims, err := decodeClaims(token); err == nil {
					id.UserID = claims.UserID
				}
			}
		}
	}
	return id
}

func (m *Manager) emitTransition(from, to eventbus.Identity, guestMergeID string, settled <-chan struct{}) {
	observability.SessionTransitionsTotal.WithLabelValues(string(from.Type), string(to.Type)).Inc()
	if m.bus == nil {
		return
	}
	m.bus.Emit(eventbus.SessionTransition, eventbus.TransitionPayload{
		From:           from,
		To:             to,
		GuestSessionID: guestMergeID,
		Settled:        settled,
	})
}

func (m *Manager) persistTokensLocked(tokens domain.Tokens) error {
	if err := m.store.Set(storage.KeyAccessToken, tokens.AccessToken); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	if err := m.store.Set(storage.KeyRefreshToken, tokens.RefreshToken); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	expiresAt := m.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	if err := m.store.Set(storage.KeyTokenExpiresAt, strconv.FormatInt(expiresAt.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("persist token expiry: %w", err)
	}
	return nil
}

func (m *Manager) removeCredentialsLocked() {
	_ = m.store.Delete(storage.KeyAccessToken)
	_ = m.store.Delete(storage.KeyRefreshToken)
	_ = m.store.Delete(storage.KeyTokenExpiresAt)
}

// ensureGuestIDLocked restores the persisted guest id or generates and
// persists a new collision-resistant one.
func (m *Manager) ensureGuestIDLocked() error {
	if m.guestID != "" {
		return nil
	}
	if id, err := m.store.Get(storage.KeyGuestSessionID); err == nil && id != "" {
		m.guestID = id
		return nil
	}
	id := fmt.Sprintf("guest_%d_%s", m.now().UnixMilli(), uuid.NewString()[:8])
	if err := m.store.Set(storage.KeyGuestSessionID, id); err != nil {
		return fmt.Errorf("persist guest session id: %w", err)
	}
	m.guestID = id
	return nil
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
