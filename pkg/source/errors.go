// Package source defines the failure taxonomy shared by all source adapters,
// plus the circuit breaker that guards their outbound calls. Callers treat
// Unavailable, Timeout, and NotFound uniformly as "no data" at the field
// level; only configuration errors are fatal.
package source

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailKind classifies a source adapter failure.
type FailKind int

const (
	// KindUnavailable covers missing credentials and non-success provider
	// responses. Uniform for every adapter: never a crash.
	KindUnavailable FailKind = iota
	// KindTimeout means the provider did not answer within the call budget.
	KindTimeout
	// KindNotFound means the provider answered but found nothing.
	KindNotFound
)

func (k FailKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a typed source failure carrying the provider and operation that
// produced it.
type Error struct {
	Kind     FailKind
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %v", e.Provider, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", e.Provider, e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable builds a KindUnavailable failure.
func Unavailable(provider, op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Provider: provider, Op: op, Err: err}
}

// Timeout builds a KindTimeout failure.
func Timeout(provider, op string, err error) *Error {
	return &Error{Kind: KindTimeout, Provider: provider, Op: op, Err: err}
}

// NotFound builds a KindNotFound failure.
func NotFound(provider, op string) *Error {
	return &Error{Kind: KindNotFound, Provider: provider, Op: op}
}

// Wrap classifies an arbitrary transport error: deadline and network
// timeouts become KindTimeout, everything else KindUnavailable.
func Wrap(provider, op string, err error) *Error {
	if IsDeadline(err) {
		return Timeout(provider, op, err)
	}
	return Unavailable(provider, op, err)
}

// IsUnavailable reports whether the chain contains a KindUnavailable failure.
func IsUnavailable(err error) bool {
	return kindOf(err) == KindUnavailable
}

// IsTimeout reports whether the chain contains a KindTimeout failure.
func IsTimeout(err error) bool {
	return kindOf(err) == KindTimeout
}

// IsNotFound reports whether the chain contains a KindNotFound failure.
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// IsFailure reports whether the chain contains any typed source failure.
func IsFailure(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

func kindOf(err error) FailKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return FailKind(-1)
}

// IsDeadline reports whether err is a context deadline or a network timeout.
func IsDeadline(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ConfigError marks a fatal misconfiguration detected at startup, such as
// category weights that do not sum to 1.0 or a reference to an unknown
// category.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError wraps err as a fatal configuration error.
func NewConfigError(err error) *ConfigError {
	return &ConfigError{Err: err}
}

// IsConfig reports whether the chain contains a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
