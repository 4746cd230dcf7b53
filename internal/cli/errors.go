// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Exit code mapping and shared CLI error types.
//
// Commands always return errors; Run decides how to display them and
// which process exit code to use.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/halcyonforge/loom/internal/provider"
)

// Exit codes by error category.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 7
	ExitTimeout      = 8
)

// UsageError indicates invalid command arguments. Run prints the command
// usage alongside the message.
type UsageError struct {
	Command string
	Message string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// NewUsageError builds a UsageError for a command.
func NewUsageError(command, format string, args ...any) *UsageError {
	return &UsageError{Command: command, Message: fmt.Sprintf(format, args...)}
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}

	switch {
	case errors.Is(err, provider.ErrAuthFailed):
		return ExitAuthError
	case errors.Is(err, provider.ErrNotConfigured):
		return ExitConfigError
	case errors.Is(err, provider.ErrModelNotFound):
		return ExitNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, provider.ErrRateLimited),
		errors.Is(err, provider.ErrInsufficientCredits):
		return ExitNetworkError
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return ExitNetworkError
	}

	return ExitGeneralError
}
