package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain behavior.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: row does not exist in the store (for change detection this
//   is the brand-new-drug path, never a failure)
// - ErrConflict: unique constraint would be violated
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
