// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "context"

// Identity is the signed-in user.
type Identity struct {
	ID    string
	Email string
}

// EventKind is a provider-initiated session change.
type EventKind int

const (
	EventSignedIn EventKind = iota
	EventSignedOut
	EventSessionExpired
	EventUserUpdated
)

func (k EventKind) String() string {
	switch k {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventSessionExpired:
		return "session_expired"
	case EventUserUpdated:
		return "user_updated"
	default:
		return "unknown"
	}
}

// Event is pushed by a Provider. Identity is set for SignedIn and UserUpdated.
type Event struct {
	Kind     EventKind
	Identity *Identity
}

// Provider is the remote auth service.
type Provider interface {
	// CurrentSession returns the persisted identity, nil when signed out.
	CurrentSession(ctx context.Context) (*Identity, error)
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context) error
	// Subscribe registers fn for pushed events. fn may be called from any
	// goroutine.
	Subscribe(fn func(Event)) (unsubscribe func())
}
