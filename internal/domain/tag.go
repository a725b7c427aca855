package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a canonical entry in the shared tag dictionary.
// Tags are global, not owned by any location, and survive deletion of every
// location that references them. Identity is the exact Name after trimming
// surrounding whitespace; matching is case-sensitive.
type Tag struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time

	// Locations is the number of locations currently linked to the tag.
	// Only populated by tag listing.
	Locations int
}
