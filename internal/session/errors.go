package session

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session is no longer in progress")
	ErrInvalidTransition = errors.New("action not allowed in current state")
	ErrInputDisabled     = errors.New("input is disabled in current state")
	ErrEmptyAnswer       = errors.New("an answer is required before continuing")
	ErrMalformedAnswer   = errors.New("answer is not one of the listed options")
	ErrNotFinalized      = errors.New("session has not been finalized")
)
