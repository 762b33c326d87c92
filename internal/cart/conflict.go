package cart

import (
	"context"
	"errors"
	"fmt"

	"pantry-shop/internal/domain"
)

var ErrNotConfirmed = errors.New("merge not confirmed")

// Notifier surfaces the outcome of a conflict resolution to the user.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// StrategyOption is one of the three choices presented to the user.
type StrategyOption struct {
	Strategy    domain.MergeStrategy
	Label       string
	Description string
	Recommended bool
}

// Resolver is the decision point invoked when a guest cart and a
// pre-existing authenticated cart may both have contents after login. It
// never merges on its own; the user has to confirm a strategy first.
type Resolver struct {
	store    *Store
	session  SessionSource
	notifier Notifier
}

// NewResolver creates a resolver over the cart store.
func NewResolver(store *Store, session SessionSource, notifier Notifier) *Resolver {
	return &Resolver{store: store, session: session, notifier: notifier}
}

// Options returns the three mutually exclusive strategies, the recommended
// one first.
func (r *Resolver) Options() []StrategyOption {
	return []StrategyOption{
		{
			Strategy:    domain.StrategyMerge,
			Label:       "Combine carts",
			Description: "Keep everything; duplicate products are combined",
			Recommended: true,
		},
		{
			Strategy:    domain.StrategyReplace,
			Label:       "Use my new cart",
			Description: "Keep what you just picked; discard the saved cart",
		},
		{
			Strategy:    domain.StrategyKeepExisting,
			Label:       "Use my saved cart",
			Description: "Keep your saved cart; discard what you just picked",
		},
	}
}

// CheckConflict reports whether a merge conflict may exist. It is advisory
// only: a retained pre-login guest session id means there was a guest cart
// identity before login, not necessarily a non-empty guest cart.
func (r *Resolver) CheckConflict() bool {
	return r.session.GuestMergeID() != ""
}

// Resolve applies the chosen strategy. confirmed must be true; the resolver
// never fires a merge without an explicit user decision. On failure the
// retained state that would allow a retry with a different strategy is
// already gone (the merge id is single-use), so the caller should surface
// the error and leave its dialog open for a manual retry via the override.
func (r *Resolver) Resolve(ctx context.Context, strategy domain.MergeStrategy, confirmed bool) (*domain.Cart, error) {
	if !confirmed {
		return nil, ErrNotConfirmed
	}

	guestSessionID := r.session.GuestMergeID()
	merged, err := r.store.Merge(ctx, strategy, guestSessionID)
	if err != nil {
		if r.notifier != nil {
			r.notifier.Error("We couldn't combine your carts. Please try again.")
		}
		return nil, err
	}

	if r.notifier != nil {
		r.notifier.Success(fmt.Sprintf("Carts combined: %d items in your cart", merged.ItemCount))
	}
	return merged, nil
}
