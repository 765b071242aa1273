// Package apperr defines the error taxonomy shared by the visibility engine.
//
// The engine always distinguishes ErrNotFound from ErrPolicyViolation so the
// transport layer can decide whether to collapse them when responding to
// unauthorized principals.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested object id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPolicyViolation indicates the principal lacks the required right.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrInvalidArgument indicates a malformed enum value or missing
	// required parameter.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCapacityExceeded indicates a playlist has reached its maximum size.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// PolicyViolationf wraps ErrPolicyViolation with a formatted message.
func PolicyViolationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrPolicyViolation)...)
}

// InvalidArgumentf wraps ErrInvalidArgument with a formatted message.
func InvalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

// CapacityExceededf wraps ErrCapacityExceeded with a formatted message.
func CapacityExceededf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrCapacityExceeded)...)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPolicyViolation reports whether err is or wraps ErrPolicyViolation.
func IsPolicyViolation(err error) bool { return errors.Is(err, ErrPolicyViolation) }

// IsInvalidArgument reports whether err is or wraps ErrInvalidArgument.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsCapacityExceeded reports whether err is or wraps ErrCapacityExceeded.
func IsCapacityExceeded(err error) bool { return errors.Is(err, ErrCapacityExceeded) }
