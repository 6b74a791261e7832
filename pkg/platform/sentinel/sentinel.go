package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so the registry service can translate them into registry error kinds.
//
// - ErrNotFound: no domain with that id or name
// - ErrAlreadyUsed: the full name is already indexed
// - ErrUnavailable: backing store or cache temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
