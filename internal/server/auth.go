package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/crypto/bcrypt"

	"pantry-shop/internal/domain"
)

type ctxKey string

const (
	ctxSessionID ctxKey = "session_id"
	ctxUserID    ctxKey = "user_id"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "invalid_input", "Email and a password of at least 8 characters are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "Failed to create account")
		return
	}

	s.mu.Lock()
	if _, exists := s.usersByEmail[req.Email]; exists {
		s.mu.Unlock()
		respondError(w, http.StatusConflict, "email_exists", "Email is already registered")
		return
	}

	acc := &account{
		user: domain.User{
			ID:        uuid.NewString(),
			Email:     req.Email,
			Name:      req.Name,
			CreatedAt: time.Now().UTC(),
		},
		passwordHash: hash,
		sessionID:    uuid.NewString(),
	}
	s.usersByEmail[req.Email] = acc
	s.usersByID[acc.user.ID] = acc
	s.mu.Unlock()

	s.respondAuth(w, http.StatusCreated, acc)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	s.mu.Lock()
	acc, ok := s.usersByEmail[req.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	s.respondAuth(w, http.StatusOK, acc)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "invalid_body", "refreshToken is required")
		return
	}

	s.mu.Lock()
	userID, ok := s.refreshTokens[req.RefreshToken]
	if ok {
		// Rotation: the presented token is spent either way.
		delete(s.refreshTokens, req.RefreshToken)
	}
	acc := s.usersByID[userID]
	s.mu.Unlock()

	if !ok || acc == nil {
		respondError(w, http.StatusUnauthorized, "invalid_refresh_token", "Refresh token is invalid or revoked")
		return
	}

	s.respondAuth(w, http.StatusOK, acc)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Best effort: revoke every refresh token of the caller if the bearer
	// token still parses, otherwise there is nothing to revoke.
	if userID, _, err := s.parseBearer(r); err == nil {
		s.mu.Lock()
		for token, owner := range s.refreshTokens {
			if owner == userID {
				delete(s.refreshTokens, token)
			}
		}
		s.mu.Unlock()
	}

	respond(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	acc := s.accountFrom(r.Context())
	if acc == nil {
		respondError(w, http.StatusNotFound, "user_not_found", "Account no longer exists")
		return
	}
	respond(w, http.StatusOK, acc.user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	acc := s.accountFrom(r.Context())
	if acc == nil {
		respondError(w, http.StatusNotFound, "user_not_found", "Account no longer exists")
		return
	}

	s.mu.Lock()
	acc.user.Name = req.Name
	user := acc.user
	s.mu.Unlock()

	respond(w, http.StatusOK, user)
}

// respondAuth issues a fresh token pair for acc and writes the auth payload.
func (s *Server) respondAuth(w http.ResponseWriter, status int, acc *account) {
	tokens, err := s.issueTokens(acc)
	if err != nil {
		slog.Error("failed to issue tokens", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal", "Failed to issue tokens")
		return
	}

	user := acc.user
	respond(w, status, domain.AuthResult{
		User:      &user,
		SessionID: acc.sessionID,
		UserID:    acc.user.ID,
		Tokens:    tokens,
	})
}

func (s *Server) issueTokens(acc *account) (domain.Tokens, error) {
	now := time.Now()
	ttl := s.cfg.AccessTokenTTL

	tok, err := jwt.NewBuilder().
		Subject(acc.user.ID).
		Claim("sid", acc.sessionID).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Build()
	if err != nil {
		return domain.Tokens{}, err
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.signKey))
	if err != nil {
		return domain.Tokens{}, err
	}

	refresh, err := randomToken()
	if err != nil {
		return domain.Tokens{}, err
	}

	s.mu.Lock()
	s.refreshTokens[refresh] = acc.user.ID
	s.mu.Unlock()

	return domain.Tokens{
		AccessToken:  string(signed),
		RefreshToken: refresh,
		ExpiresIn:    int64(ttl.Seconds()),
	}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// parseBearer verifies the Authorization header and returns the token's
// subject and session id.
func (s *Server) parseBearer(r *http.Request) (userID, sessionID string, err error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" || raw == r.Header.Get("Authorization") {
		return "", "", jwt.ErrInvalidJWT()
	}

	tok, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, s.signKey), jwt.WithValidate(true))
	if err != nil {
		return "", "", err
	}

	sid, _ := tok.Get("sid")
	sidStr, _ := sid.(string)
	return tok.Subject(), sidStr, nil
}

// requireSession demands the x-session-id header every cart-bearing request
// carries and threads it through the context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get("x-session-id")
		if sessionID == "" {
			respondError(w, http.StatusBadRequest, "missing_session", "x-session-id header is required")
			return
		}
		ctx := context.WithValue(r.Context(), ctxSessionID, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth demands a valid bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, sessionID, err := s.parseBearer(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized", "A valid access token is required")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		if r.Context().Value(ctxSessionID) == nil && sessionID != "" {
			ctx = context.WithValue(ctx, ctxSessionID, sessionID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxSessionID).(string)
	return v
}

func userIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

func (s *Server) accountFrom(ctx context.Context) *account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usersByID[userIDFrom(ctx)]
}
