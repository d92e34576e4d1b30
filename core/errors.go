package core

import "errors"

var (
	ErrNoSession     = errors.New("no active session")
	ErrSessionClosed = errors.New("session manager is closed")
)
