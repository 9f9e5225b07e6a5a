// Package errs holds the planner's sentinel errors, re-exported at the
// package root so callers can errors.Is against them.
package errs

import "errors"

var (
	ErrEmptyTrace      = errors.New("tensorplan: empty trace")
	ErrTraceCorrupt    = errors.New("tensorplan: trace corrupt")
	ErrPlanOverflow    = errors.New("tensorplan: plan exceeds arena size")
	ErrCursorMismatch  = errors.New("tensorplan: node cursor did not match frame header")
	ErrInvalidStrategy = errors.New("tensorplan: invalid strategy")
)
