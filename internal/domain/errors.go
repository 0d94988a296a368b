// Package domain defines the desired-state types and the error taxonomy shared
// by the configuration loader, the API client and the reconciliation engine.
package domain

import (
	"fmt"
	"strings"
)

// UnreachableError indicates the server never answered the readiness probe
// within its attempt budget.
type UnreachableError struct {
	URL      string
	Attempts int
	Cause    error
}

func (e *UnreachableError) Error() string {
	msg := fmt.Sprintf("server %s unreachable after %d attempt(s)", e.URL, e.Attempts)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnreachableError) Unwrap() error { return e.Cause }

// AuthenticationError indicates no credential candidate authenticated.
type AuthenticationError struct {
	Username string
	Tried    int
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("cannot authenticate user %q (%d candidate password(s) tried); please check its credentials", e.Username, e.Tried)
}

// DeserializationError indicates a successful response body did not match
// the expected shape.
type DeserializationError struct {
	Context string
	Cause   error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("%s: unexpected response body: %v", e.Context, e.Cause)
}

func (e *DeserializationError) Unwrap() error { return e.Cause }

// ConfigurationError indicates the run cannot proceed because of how it was
// configured: an unresolved variable, a reserved login, a truncated listing.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// PrecheckError collects the structural problems found in a configuration
// document before any API call is made.
type PrecheckError struct {
	Violations []string
}

func (e *PrecheckError) Error() string {
	if len(e.Violations) == 1 {
		return "configuration precheck failed: " + e.Violations[0]
	}
	return fmt.Sprintf("configuration precheck failed with %d violation(s):\n  - %s",
		len(e.Violations), strings.Join(e.Violations, "\n  - "))
}

// ErrUnreachable creates an UnreachableError.
func ErrUnreachable(url string, attempts int, cause error) *UnreachableError {
	return &UnreachableError{URL: url, Attempts: attempts, Cause: cause}
}

// ErrAuthentication creates an AuthenticationError.
func ErrAuthentication(username string, tried int) *AuthenticationError {
	return &AuthenticationError{Username: username, Tried: tried}
}

// ErrDeserialization creates a DeserializationError.
func ErrDeserialization(context string, cause error) *DeserializationError {
	return &DeserializationError{Context: context, Cause: cause}
}

// ErrConfiguration creates a ConfigurationError with a formatted message.
func ErrConfiguration(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
