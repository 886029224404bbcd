package session

import "errors"

var (
	// ErrSessionNotFound is returned when no session blob exists for a cid
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidStatus is returned for a status outside the settable set
	ErrInvalidStatus = errors.New("invalid presence status")
)
