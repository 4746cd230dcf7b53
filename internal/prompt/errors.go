// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// TokenBudgetExceededError reports that committing an item would make the
// token budget negative. It carries the offending item's identifier so
// callers can short-circuit lower-priority population steps.
type TokenBudgetExceededError struct {
	Identifier string
	Tokens     int
	Budget     int
}

func (e *TokenBudgetExceededError) Error() string {
	return fmt.Sprintf("token budget exceeded by %q: %d tokens against budget %d", e.Identifier, e.Tokens, e.Budget)
}

// IdentifierNotFoundError reports a reference to a named collection that was
// never added. This is a configuration defect, not a user-recoverable state.
type IdentifierNotFoundError struct {
	Identifier string
}

func (e *IdentifierNotFoundError) Error() string {
	return fmt.Sprintf("identifier %q not found", e.Identifier)
}

// InvalidArgumentError reports a wrong type or value passed into the engine.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// =============================================================================
// ERROR PREDICATES
// =============================================================================

// IsTokenBudgetExceeded reports whether err is a budget overflow.
func IsTokenBudgetExceeded(err error) bool {
	var target *TokenBudgetExceededError
	return errors.As(err, &target)
}

// IsIdentifierNotFound reports whether err is a missing-identifier defect.
func IsIdentifierNotFound(err error) bool {
	var target *IdentifierNotFoundError
	return errors.As(err, &target)
}
