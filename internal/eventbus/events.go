package eventbus

import "pantry-shop/internal/domain"

// Event names the in-process events the storefront emits. Each name has
// exactly one payload type, listed next to it.
type Event string

const (
	// LoginSucceeded carries LoginPayload.
	LoginSucceeded Event = "session.login_succeeded"
	// LoggedOut carries no payload (nil).
	LoggedOut Event = "session.logged_out"
	// SessionExpired carries no payload (nil).
	SessionExpired Event = "session.expired"
	// SessionTransition carries TransitionPayload.
	SessionTransition Event = "session.transition"
	// SessionCleared carries ClearedPayload. Listeners must treat this as
	// "go to empty", not "reload".
	SessionCleared Event = "session.cleared"
	// CartItemAdded carries ItemAddedPayload.
	CartItemAdded Event = "cart.item_added"
	// CartSynced carries SyncedPayload.
	CartSynced Event = "cart.synced"
	// CartSyncRequested carries SyncRequestedPayload.
	CartSyncRequested Event = "cart.sync_requested"
)

// Identity describes one side of a session transition.
type Identity struct {
	Type      domain.SessionType
	SessionID string
	UserID    string
}

// TransitionPayload announces a guest<->authenticated switch.
type TransitionPayload struct {
	From Identity
	To   Identity
	// GuestSessionID is the guest session id that was current before a
	// guest->authenticated transition, retained so a later merge can
	// reference the pre-login cart. Empty on the reverse transition.
	GuestSessionID string
	// Settled is closed once the server-side effects of the transition
	// (login processing, any merge-on-login) are acknowledged complete.
	// Subscribers that reload state must wait on it first.
	Settled <-chan struct{}
}

// ClearedPayload announces a full session wipe and re-initialization.
type ClearedPayload struct {
	NewGuestSessionID string
}

// LoginPayload accompanies LoginSucceeded.
type LoginPayload struct {
	User *domain.User
}

// ItemAddedPayload carries the added line and the resulting cart.
type ItemAddedPayload struct {
	Item domain.CartItem
	Cart *domain.Cart
}

// SyncedPayload carries the authoritative cart after a merge or reload.
type SyncedPayload struct {
	Cart     *domain.Cart
	Strategy domain.MergeStrategy
}

// SyncRequestedPayload asks the cart store to reload immediately.
type SyncRequestedPayload struct {
	Reason string
}
