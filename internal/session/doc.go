// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the signed-in auth session between runs.
//
// The session is sealed with XChaCha20-Poly1305 under a key derived (HKDF)
// from a random per-install secret kept next to it with 0600 permissions.
// Both files live in the peeksy config directory:
//
//	session.json   {"v":1,"nonce":"...","data":"..."}
//	session.key    32 random bytes
//
// Watch reports changes made by other peeksy processes, so a `peeksy logout`
// in one terminal signs the TUI out in another.
package session
