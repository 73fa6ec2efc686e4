package service

import (
	"context"
	"errors"
	"fmt"
)

// Converter interface describes one conversion method.
// Both methods are interchangeable from the caller's
// point of view; the orchestrator treats them uniformly.
type Converter interface {
	// Name returns the short method name, e.g. "xe" or "oer"
	Name() string

	// Convert converts amount from one currency code to another.
	// A failure is either a *NetworkError (the method itself broke)
	// or a *UnsupportedError (the method does not know a currency).
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// ErrNoData means neither cached nor fetchable data exists at all.
// Fatal: there is nothing to serve.
var ErrNoData = errors.New("no currency data available")

// ErrInvalidInput marks a malformed request rejected before
// any conversion attempt. Never retried.
var ErrInvalidInput = errors.New("invalid input")

// NetworkError is a method-level transient failure: the remote
// source was unreachable or returned something unusable. The
// orchestrator answers it with exactly one cross-method retry.
type NetworkError struct {
	Method string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s method failed: %v", e.Method, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UnsupportedError means the active method's data does not cover
// a currency code. Not a failure of the method: never retried.
type UnsupportedError struct {
	Code string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("currency not supported: %s", e.Code)
}
