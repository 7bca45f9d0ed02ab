package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleViolation marks an illegal action. The game state is unchanged.
	ErrRuleViolation = errors.New("rule violation")

	// ErrConfiguration marks a defect in a variant's composition, such as a step
	// offering an action kind it has no handler for.
	ErrConfiguration = errors.New("configuration error")

	// ErrReplayInconsistency marks an action log that does not reproduce the
	// recorded game, or references entities that do not exist.
	ErrReplayInconsistency = errors.New("replay inconsistency")
)

// Violation builds a rule violation error.
func Violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRuleViolation, fmt.Sprintf(format, args...))
}

// Misconfigured builds a configuration error.
func Misconfigured(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Inconsistent builds a replay inconsistency error.
func Inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrReplayInconsistency, fmt.Sprintf(format, args...))
}

// IsViolation reports whether err is a user-facing rule violation.
func IsViolation(err error) bool {
	return errors.Is(err, ErrRuleViolation)
}
