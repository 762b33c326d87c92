package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a request failure so callers can branch without matching
// on message text. "Server said no" (HTTP error responses) and "could not
// reach server" (network, timeout) are deliberately distinct.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuth           Kind = "auth"
	KindSessionExpired Kind = "session_expired"
	KindNotFound       Kind = "not_found"
	KindNetwork        Kind = "network"
	KindTimeout        Kind = "timeout"
	KindServer         Kind = "server"
	KindDecode         Kind = "decode"
)

// Error is the single structured error type all request failures are
// translated into before reaching feature code.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 for transport failures
	Code    string // backend error code, if any
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("api: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("api: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" if err is not an api error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsSessionExpired reports whether err means local credentials were wiped and
// the user must log in again.
func IsSessionExpired(err error) bool {
	return KindOf(err) == KindSessionExpired
}

// classifyTransport maps a transport-level failure to timeout or network.
func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &Error{Kind: KindNetwork, Message: "could not reach server", Err: err}
}

// classifyStatus maps an HTTP error response to a Kind.
func classifyStatus(status int) Kind {
	switch {
	case status == 401:
		return KindAuth
	case status == 404:
		return KindNotFound
	case status == 400 || status == 422:
		return KindValidation
	default:
		return KindServer
	}
}
