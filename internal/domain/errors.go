package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (missing id or name, coordinates out of range, bad level).
// Handlers map this to HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a write would violate a unique key,
// e.g. creating a location whose id is already taken.
// Handlers map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrLocationInUse is returned when deleting a location that still has
// occupancy reports. Reports are never removed, so neither is their location.
var ErrLocationInUse = fmt.Errorf("%w: location has occupancy reports", ErrConflict)

// ErrUnauthorized matches every *AuthError via errors.Is.
// Handlers map this to HTTP 401.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden matches callers that are authenticated but not entitled to the
// operation. *ProximityError and ErrPermission both match it.
// Handlers map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrPermission is returned when the reporter has not consented to data collection.
var ErrPermission = fmt.Errorf("%w: reporting consent required", ErrForbidden)

// AuthReason tells clients which of the three login states they are in.
type AuthReason string

const (
	// AuthMissingOrMalformed covers an absent header, a scheme other than
	// Bearer, or a header that does not split into exactly two parts.
	AuthMissingOrMalformed AuthReason = "missing_or_malformed"
	// AuthInvalid covers bad signatures, unexpected algorithms and bad claims.
	AuthInvalid AuthReason = "invalid"
	// AuthExpired is reported only when the token was otherwise valid.
	AuthExpired AuthReason = "expired"
)

// AuthError is returned by the identity verifier and by the report ledger
// when no identity is present. Message is safe to show to end users.
type AuthError struct {
	Reason  AuthReason
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized (%s): %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("unauthorized (%s): %s", e.Reason, e.Message)
}

// Is makes errors.Is(err, ErrUnauthorized) true for any AuthError.
func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

func (e *AuthError) Unwrap() error { return e.Err }

// ProximityError is returned when the reporting device is farther from the
// location than the configured radius. Both distances are in kilometres.
type ProximityError struct {
	DistanceKm float64
	MaxKm      float64
}

func (e *ProximityError) Error() string {
	return fmt.Sprintf("device is %.0fm from location, limit is %.0fm", e.DistanceKm*1000, e.MaxKm*1000)
}

// Is makes errors.Is(err, ErrForbidden) true for a ProximityError.
func (e *ProximityError) Is(target error) bool { return target == ErrForbidden }
