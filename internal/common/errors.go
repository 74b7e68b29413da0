// Package common defines shared constants, random helpers and sentinel errors
// used across loremgate components. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Lookup errors.
	ErrorNotFound = errors.New("not found")

	// Access errors: unknown app code or account, password or web code mismatch.
	ErrorUnauthorized = errors.New("unauthorized")

	// Registration errors.
	ErrorConflict = errors.New("conflict")

	// Admission errors. Surfaced to callers as a rate-limit signal.
	ErrorQuotaExceeded = errors.New("quota exceeded")

	// Validation errors. Raised before any state is touched.
	ErrorInvalidArgument = errors.New("invalid argument")

	// Everything else (storage, crypto misconfiguration).
	ErrorInternal = errors.New("internal error")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
