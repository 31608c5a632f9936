package domain

import "errors"

// Error taxonomy surfaced through the REST and socket layers. Services wrap
// these with context via fmt.Errorf("...: %w", err); transports match with
// errors.Is.
var (
	ErrInvalidPin        = errors.New("invalid table pin")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session closed")
	ErrSessionConflict   = errors.New("table already has an active session")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAlreadyClaimed    = errors.New("item already claimed")
	ErrInvalidTransition = errors.New("invalid item status transition")
	ErrStationMismatch   = errors.New("item routed to a different station")
	ErrForbidden         = errors.New("actor role not permitted")
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("menu item unavailable")
	ErrValidation        = errors.New("invalid request")
)
