package manager

import "errors"

var (
	// ErrNullIdentity is returned by Register when id is the zero value.
	ErrNullIdentity = errors.New("manager: null identity")
	// ErrRegistrationConflict is returned when an id or tag is already
	// registered, whichever transceiver holds it.
	ErrRegistrationConflict = errors.New("manager: identity or tag already registered")
)
