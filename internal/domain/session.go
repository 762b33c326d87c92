package domain

// SessionType distinguishes the two identity kinds a client can act under.
type SessionType string

const (
	SessionGuest         SessionType = "guest"
	SessionAuthenticated SessionType = "authenticated"
)
