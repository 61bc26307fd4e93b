package domain

import (
	dErrors "dialogmotekandidat/pkg/domain-errors"
)

// Personident is the 11-digit national identifier for a person. It is an
// opaque value type: equality by value, no date-of-birth parsing anywhere in
// this codebase. Identifiers can become inactive when the population registry
// merges them into a new active identifier; both shapes are valid here.
type Personident string

// ParsePersonident validates the fixed format at trust boundaries (API
// headers, Kafka payloads). It never checks mod11 control digits: synthetic
// test identifiers would fail those, and the registry owns validity.
func ParsePersonident(s string) (Personident, error) {
	if len(s) != 11 {
		return "", dErrors.New(dErrors.CodeBadRequest, "personident must be 11 digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeBadRequest, "personident must be 11 digits")
		}
	}
	return Personident(s), nil
}

func (p Personident) String() string {
	return string(p)
}

// IsEmpty reports whether the identifier is unset.
func (p Personident) IsEmpty() bool {
	return p == ""
}
