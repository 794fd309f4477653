package domain

import "errors"

// Error taxonomy. Every failure leaving the core maps to exactly one of
// these; callers match with errors.Is and must not parse error text.
var (
	ErrNotFound         = errors.New("link not found or expired")
	ErrExhausted        = errors.New("link click budget exhausted")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrValidation       = errors.New("invalid input")
	ErrCodeGenExhausted = errors.New("could not allocate a unique code")
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err was rejected before any store write.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
