// Package auth verifies bearer credentials and carries the resulting identity
// through request contexts. Tokens are HS256 JWTs signed with a shared secret;
// issuing them belongs to the login service, Issue exists for tests and tooling.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pkordes/quietlocations/backend/internal/domain"
)

// MinSecretLength is the shortest HS256 secret NewVerifier accepts.
const MinSecretLength = 32

// User-facing messages. Clients branch on the reason code, humans read these.
const (
	msgMissing   = "Authentication required. Please log in."
	msgMalformed = "Invalid authorization format. Use: Bearer <token>"
	msgInvalid   = "Invalid token"
	msgExpired   = "Token expired. Please log in again."
)

// Claims is the token payload. user_id is what the login service writes;
// the registered sub claim is accepted as a fallback.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier returns a Verifier for HS256 tokens signed with secret.
func NewVerifier(secret string, opts ...Option) (*Verifier, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth.NewVerifier: secret must be at least %d bytes", MinSecretLength)
	}
	v := &Verifier{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	v.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	return v, nil
}

// Verify parses an Authorization header value of the form "Bearer <token>".
// Every failure is a *domain.AuthError whose Reason separates a missing or
// malformed header from an invalid token from an expired one.
func (v *Verifier) Verify(header string) (domain.Identity, error) {
	token, err := bearerToken(header)
	if err != nil {
		return domain.Identity{}, err
	}

	claims := &Claims{}
	_, err = v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		// jwt reports expiry only after the signature checked out, so an
		// expired token here was genuinely issued by us.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, &domain.AuthError{Reason: domain.AuthExpired, Message: msgExpired, Err: err}
		}
		return domain.Identity{}, &domain.AuthError{Reason: domain.AuthInvalid, Message: msgInvalid, Err: err}
	}

	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	if subject == "" {
		return domain.Identity{}, &domain.AuthError{
			Reason: domain.AuthInvalid, Message: msgInvalid, Err: errors.New("token has no subject"),
		}
	}

	return domain.Identity{
		UserID:    subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// VerifyOptional never fails: any missing, malformed, invalid or expired
// credential yields ok=false.
func (v *Verifier) VerifyOptional(header string) (domain.Identity, bool) {
	id, err := v.Verify(header)
	if err != nil {
		return domain.Identity{}, false
	}
	return id, true
}

// Issue signs a token for userID that expires after ttl.
func (v *Verifier) Issue(userID, email string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth.Verifier.Issue: %w", err)
	}
	return signed, nil
}

// bearerToken splits "Bearer <token>". The scheme is matched exactly.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", &domain.AuthError{Reason: domain.AuthMissingOrMalformed, Message: msgMissing}
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", &domain.AuthError{Reason: domain.AuthMissingOrMalformed, Message: msgMalformed}
	}
	return parts[1], nil
}
