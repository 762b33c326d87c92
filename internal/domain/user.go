package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// User is the public account shape returned by the backend.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tokens is the credential pair issued at login/register/refresh.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// AuthResult is the payload of a successful login, register or refresh.
type AuthResult struct {
	User *User `json:"user,omitempty"`
	// SessionID is the authenticated cart-bearing session id. It mirrors the
	// sid claim of the access token so clients need not decode the token.
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Tokens    Tokens `json:"tokens"`
}
