package domain

import "time"

// Identity is the subject proven by a bearer credential.
// It is derived per request and never stored by the core.
type Identity struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}
