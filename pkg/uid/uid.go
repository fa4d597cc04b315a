// Package uid generates and checks request identifiers.
package uid

import "github.com/google/uuid"

// canonicalLen is the length of the hyphenated 8-4-4-4-12 form.
const canonicalLen = 36

// New returns a time-ordered UUIDv7 string, falling back to a random v4 if
// the clock source fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// IsValid reports whether id is a UUID in canonical hyphenated form. The
// braced and urn: spellings uuid.Parse also accepts are rejected so that
// echoed headers stay uniform.
func IsValid(id string) bool {
	if len(id) != canonicalLen {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
