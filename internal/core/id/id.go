// Package id generates entity identifiers. UUIDv7 is used so ids sort
// by creation time, which keeps batch and journal indexes append-mostly.
package id

import "github.com/google/uuid"

// ID identifies batches, entries, documents and catalog records.
type ID = uuid.UUID

// New returns a time-ordered UUIDv7.
func New() ID {
	v7, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source does; fall back to v4.
		return uuid.New()
	}
	return v7
}

// Parse converts a string to an ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse is Parse that panics; for fixtures and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero ID.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether id is the zero ID.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
