// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// Kind classifies an auth failure.
type Kind int

const (
	// KindUnexpected covers local faults: decode errors, panics, bugs.
	KindUnexpected Kind = iota
	// KindInvalidCredentials is a rejection of the submitted email/password.
	KindInvalidCredentials
	// KindRemote is any other failure reported by, or reaching, the provider.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindRemote:
		return "remote_error"
	default:
		return "unexpected_error"
	}
}

// Error is returned by every Provider and Store operation that fails.
// Message is shown to the user as-is.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status, 0 when no response was received.
	Status int
	// Code is the provider's machine-readable error code, if any.
	Code string
	Err  error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrOperationInFlight is returned when a mutation is already running.
	ErrOperationInFlight = errors.New("another sign-in, sign-up or sign-out is already in progress")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("auth store is closed")

	// ErrNotConfigured is returned when the provider URL or key is missing.
	ErrNotConfigured = errors.New("authentication is not configured: set auth.url and auth.anon_key")
)

// KindOf returns the kind of err, KindUnexpected when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

// Message returns the text to show the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}

func invalidCredentials(msg string) *Error {
	return &Error{Kind: KindInvalidCredentials, Message: msg}
}

func remoteError(msg string, err error) *Error {
	return &Error{Kind: KindRemote, Message: msg, Err: err}
}

func unexpectedError(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: err.Error(), Err: err}
}

// recovered converts a panic value into an unexpected error.
func recovered(r any) *Error {
	if err, ok := r.(error); ok {
		return &Error{Kind: KindUnexpected, Message: err.Error(), Err: err}
	}
	return &Error{Kind: KindUnexpected, Message: fmt.Sprint(r)}
}
