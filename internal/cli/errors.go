// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for CLI commands.
//
// Handlers always return errors; main prints them and exits with
// GetExitCode.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anubhavitis/peeksy/internal/auth"
	"github.com/anubhavitis/peeksy/internal/config"
	"github.com/anubhavitis/peeksy/internal/daemon"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError is a bad argument or value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument reports a required argument that was not given.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{
		Field:  argName,
		Reason: fmt.Sprintf("missing argument\nUsage: %s", usage),
	}
}

// ErrCancelled is returned when the user declines a confirmation.
var ErrCancelled = errors.New("cancelled")

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil || errors.Is(err, ErrCancelled) {
		return ExitSuccess
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}
	var configErr config.ValidateErrors
	if errors.Is(err, config.ErrNotReady) || errors.As(err, &configErr) || errors.Is(err, auth.ErrNotConfigured) {
		return ExitConfigError
	}
	if errors.Is(err, daemon.ErrAlreadyRunning) || errors.Is(err, daemon.ErrNotRunning) {
		return ExitGeneralError
	}

	var authErr *auth.Error
	if errors.As(err, &authErr) {
		if authErr.Kind == auth.KindInvalidCredentials {
			return ExitAuthError
		}
		return ExitNetworkError
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "deadline exceeded") {
		return ExitNetworkError
	}
	return ExitGeneralError
}
