package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: uniqueness or concurrent-update conflict
// - ErrAlreadyProcessed: checkpoint already carries a terminal status
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, reserved reasons), use pkg/domain-errors
// directly.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrUnavailable      = errors.New("unavailable")
)
