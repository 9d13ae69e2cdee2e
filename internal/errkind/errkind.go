// Package errkind defines the error taxonomy shared across the pipeline.
//
// Every fallible operation in this module returns a plain error wrapping one
// of the Kind values below via %w, so callers classify with errors.Is/As
// instead of string matching.
package errkind

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the category of a failure for retry/logging purposes.
type Kind string

const (
	RateLimited          Kind = "rate_limited"
	Timeout              Kind = "timeout"
	GatewayTransient     Kind = "gateway_transient"
	MalformedTransaction Kind = "malformed_transaction"
	MintNotFound         Kind = "mint_not_found"
	InvalidAddress       Kind = "invalid_address"
	InsufficientBalance  Kind = "insufficient_balance"
	SimulationRejected   Kind = "simulation_rejected"
	NotConfirmed         Kind = "not_confirmed"
	ProviderError        Kind = "provider_error"
	ConfigInvalid        Kind = "config_invalid"
	RetriesExhausted     Kind = "retries_exhausted"
)

// Error pairs a Kind with the underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, errkind.RateLimited) to work by comparing Kind
// against a sentinel wrapped via New(kind, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Of extracts the Kind from err, if err (or something it wraps) is an *Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}

// IsRetriable classifies an error for the backoff runner: rate limits,
// timeouts, and transient gateway errors are retried; everything else
// propagates immediately. Falls back to substring sniffing on errors that
// did not originate as *Error (e.g. raw transport errors from the RPC
// client).
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if k, ok := Of(err); ok {
		switch k {
		case RateLimited, Timeout, GatewayTransient:
			return true
		default:
			return false
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return true
	case strings.Contains(msg, "gateway"):
		return true
	}
	return false
}
