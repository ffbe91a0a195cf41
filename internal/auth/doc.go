// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth owns the authentication session lifecycle.
//
// # Key Types
//
//   - Store: the single source of truth for "who is signed in and are we busy"
//   - Provider: the remote auth service contract (GoTrue implements it)
//   - Error: typed failure carrying the provider's message verbatim
//
// # Loading
//
// State.Loading is true from construction until the initial session lookup
// resolves, and again while a sign-in, sign-up or sign-out is in flight.
// Only one of those mutations may run at a time; a second one fails fast
// with ErrOperationInFlight.
//
// # Notifications
//
// Subscribers run synchronously on the goroutine that changed the state, in
// the order the changes happened. Identical consecutive states are delivered
// once.
package auth
