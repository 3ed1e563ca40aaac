package types

import "errors"

// Sentinel errors classifying domain failures. Handlers map these to HTTP
// status codes with errors.Is; the wrapped message text is part of the
// observable contract.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
