// Package storage persists the storefront client's durable state: the token
// pair, the token expiry stamp and the guest session id. The session manager
// is the only component that reads or writes these keys directly; everything
// else goes through its accessors.
package storage

import "errors"

var ErrKeyNotFound = errors.New("key not found")

// Keys under which the session manager persists client state. All four are
// cleared together on a full session clear.
const (
	KeyAccessToken    = "access_token"
	KeyRefreshToken   = "refresh_token"
	KeyTokenExpiresAt = "token_expires_at" // epoch milliseconds
	KeyGuestSessionID = "guest_session_id"
)

// Store is a durable string key/value store.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}
