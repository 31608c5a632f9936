package cart

import (
	"context"
	"sort"
	"strings"

	"tableside/internal/domain"
)

type CartRepositoryInterface interface {
	// AddItem inserts a cart line, coalescing into an existing line with the
	// same menu item + modifier set. Mutations serialize per session and fail
	// with domain.ErrSessionClosed / ErrSessionNotFound when the session is
	// not ACTIVE.
	AddItem(ctx context.Context, item domain.CartItem) error
	SetQuantity(ctx context.Context, sessionID, cartItemID string, quantity int) error
	RemoveItem(ctx context.Context, sessionID, cartItemID string) error
	Clear(ctx context.Context, sessionID string) error
	ListItems(ctx context.Context, sessionID string) ([]domain.CartItem, error)
}

// ModifiersKey canonicalizes a modifier set so "no onion, extra cheese" and
// "extra cheese, no onion" coalesce into one line.
func ModifiersKey(mods []string) string {
	if len(mods) == 0 {
		return ""
	}
	cp := make([]string, len(mods))
	copy(cp, mods)
	sort.Strings(cp)
	return strings.Join(cp, "|")
}
